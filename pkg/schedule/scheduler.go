package schedule

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler is the host's named-task scheduling surface.
type Scheduler interface {
	// Register schedules a job under a unique name with a cron spec.
	// Registering an already-known name leaves the existing entry in place.
	Register(name, spec string, job func()) error

	// List returns the sorted names of scheduled tasks with the given prefix.
	List(prefix string) []string

	// Delete removes a named task. Deleting an unknown name is an error.
	Delete(name string) error
}

// CronScheduler is a Scheduler backed by a robfig/cron runner.
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// NewCronScheduler creates a scheduler. Start must be called before jobs run;
// registration works either way.
func NewCronScheduler() *CronScheduler {
	return &CronScheduler{
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins running scheduled jobs.
func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop stops the runner and waits for running jobs to finish.
func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Register schedules a job under name. An existing entry with the same name
// is kept as-is.
func (s *CronScheduler) Register(name, spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return nil
	}

	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

// List returns the sorted task names matching prefix.
func (s *CronScheduler) List(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name := range s.entries {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Delete removes a named task from the runner.
func (s *CronScheduler) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("no scheduled task named %s", name)
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	return nil
}

// Len returns the number of scheduled tasks.
func (s *CronScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
