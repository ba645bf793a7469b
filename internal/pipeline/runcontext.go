package pipeline

import (
	"sort"
	"sync"
)

// AccessionSet is an append-only, goroutine-safe set of accessions.
type AccessionSet struct {
	mu    sync.Mutex
	items map[string]struct{}
}

// NewAccessionSet returns an empty set.
func NewAccessionSet() *AccessionSet {
	return &AccessionSet{items: make(map[string]struct{})}
}

// Add inserts accession and reports whether it was new.
func (s *AccessionSet) Add(accession string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[accession]; ok {
		return false
	}
	s.items[accession] = struct{}{}
	return true
}

func (s *AccessionSet) Contains(accession string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[accession]
	return ok
}

func (s *AccessionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// List returns the accessions in sorted order.
func (s *AccessionSet) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for a := range s.items {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// RunContext is the state shared by the tasks of one run.
type RunContext struct {
	Failed  *AccessionSet
	Handled *AccessionSet

	mu    sync.Mutex
	abort error
}

// Abort stops the run with err. Only the first error is kept.
func (rc *RunContext) Abort(err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.abort == nil {
		rc.abort = err
	}
}

// Err returns the error that aborted the run, if any.
func (rc *RunContext) Err() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.abort
}

// NewRunContext creates the state for a new run.
func NewRunContext() *RunContext {
	return &RunContext{
		Failed:  NewAccessionSet(),
		Handled: NewAccessionSet(),
	}
}
