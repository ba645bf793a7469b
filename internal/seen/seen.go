// Package seen remembers which accessions the suppressed/killed sweep has
// already handled on a given day, so repeated runs skip them.
package seen

import (
	"context"
	"sync"
	"time"
)

// Store records handled accessions per day.
type Store interface {
	// Mark records accession for day and reports whether it was new.
	Mark(ctx context.Context, day time.Time, accession string) (bool, error)
	Seen(ctx context.Context, day time.Time, accession string) (bool, error)
	Close() error
}

func dayKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.Mutex
	days map[string]map[string]struct{}
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{days: make(map[string]map[string]struct{})}
}

func (m *Memory) Mark(_ context.Context, day time.Time, accession string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := dayKey(day)
	set, ok := m.days[k]
	if !ok {
		// only today's set is worth keeping
		m.days = map[string]map[string]struct{}{}
		set = make(map[string]struct{})
		m.days[k] = set
	}
	if _, dup := set[accession]; dup {
		return false, nil
	}
	set[accession] = struct{}{}
	return true, nil
}

func (m *Memory) Seen(_ context.Context, day time.Time, accession string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.days[dayKey(day)][accession]
	return ok, nil
}

func (m *Memory) Close() error { return nil }
