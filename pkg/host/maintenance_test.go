package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaintenanceEnterExit(t *testing.T) {
	m := NewMaintenance()
	assert.False(t, m.Active())

	assert.True(t, m.Enter())
	assert.True(t, m.Active())

	// A nested caller does not own the window.
	assert.False(t, m.Enter())
	assert.True(t, m.Active())

	m.Exit()
	assert.False(t, m.Active())

	// The window can be re-entered after release.
	assert.True(t, m.Enter())
	m.Exit()
}
