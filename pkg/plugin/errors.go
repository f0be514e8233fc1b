package plugin

import (
	"errors"
	"fmt"
)

// ErrSchedulerUnavailable indicates the task scheduler is not provisioned.
// Schedule activation treats this as transient: logged, skipped for the pass.
var ErrSchedulerUnavailable = errors.New("task scheduler unavailable")

// DiscoveryError records a plugin source that failed to resolve. The source
// is skipped; discovery of other sources continues.
type DiscoveryError struct {
	Source string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.Source, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ActivationError records a plugin that failed during instantiation or a
// capability phase. Source carries the offending plugin's slug so the retry
// loop can quarantine exactly that plugin.
type ActivationError struct {
	Source string
	Phase  string
	Err    error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.Source, e.Phase, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// capture runs fn, converting a panic into an error so a misbehaving plugin
// cannot escape its own activation phase.
func capture(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// contain funnels a plugin failure through one classification point: it logs
// structured context, records the failure on the registry and returns the
// typed error consumed by the retry loop.
func (r *Registry) contain(source, phase string, err error) *ActivationError {
	ae := &ActivationError{Source: source, Phase: phase, Err: err}
	r.log.WithField("source", source).WithField("phase", phase).Errorf("Plugin failure: %v", err)
	key := source
	if key == "" {
		key = "unknown"
	}
	r.recordError(key, ae.Error())
	return ae
}
