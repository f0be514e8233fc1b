package host

import "sync"

// Maintenance is the host's temporary-unavailable window. Lifecycle operations
// enter it before touching shared routing or module state so request handling
// never observes a half-rebuilt table.
//
// Enter reports whether this caller actually entered the window; only a caller
// that entered may Exit. This makes nested lifecycle calls safe: the inner
// call observes the window already active and leaves it alone.
type Maintenance struct {
	mu     sync.Mutex
	active bool
}

// NewMaintenance creates an inactive maintenance window.
func NewMaintenance() *Maintenance {
	return &Maintenance{}
}

// Enter activates the window if it is not already active. It reports whether
// this call activated it.
func (m *Maintenance) Enter() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return false
	}
	m.active = true
	return true
}

// Exit deactivates the window. Callers must only Exit if their Enter returned
// true.
func (m *Maintenance) Exit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

// Active reports whether the window is currently active.
func (m *Maintenance) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
