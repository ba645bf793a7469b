package testutil

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/models"
)

// FakeClient is an in-memory biosamples.Client.
type FakeClient struct {
	mu        sync.Mutex
	stored    map[string]*models.Sample
	persisted []string
	attempts  map[string]int

	// FailAlways lists accessions whose Persist always fails with a
	// retryable error.
	FailAlways map[string]bool
	// FailTimes makes Persist fail that many times before succeeding.
	FailTimes map[string]int
	// FetchErr is returned by every Fetch when set.
	FetchErr error
}

// NewFakeClient returns an empty fake.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		stored:     make(map[string]*models.Sample),
		attempts:   make(map[string]int),
		FailAlways: make(map[string]bool),
		FailTimes:  make(map[string]int),
	}
}

// Persist stores a copy of s.
func (f *FakeClient) Persist(_ context.Context, s *models.Sample) (*models.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts[s.Accession]++
	if f.FailAlways[s.Accession] || f.attempts[s.Accession] <= f.FailTimes[s.Accession] {
		return nil, apperrors.E(apperrors.Op("fake.Persist"), apperrors.KindSubmission,
			fmt.Errorf("%s: status 503", s.Accession))
	}
	f.stored[s.Accession] = s.Clone()
	f.persisted = append(f.persisted, s.Accession)
	return s.Clone(), nil
}

// Fetch returns the stored sample or nil.
func (f *FakeClient) Fetch(_ context.Context, accession string) (*models.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	s, ok := f.stored[accession]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// Put seeds the store without counting as a submission.
func (f *FakeClient) Put(s *models.Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[s.Accession] = s.Clone()
}

// Stored returns the stored sample for accession.
func (f *FakeClient) Stored(accession string) (*models.Sample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stored[accession]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Attempts returns how many times Persist was called for accession.
func (f *FakeClient) Attempts(accession string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[accession]
}

// Persisted returns the accessions successfully persisted, in call order.
func (f *FakeClient) Persisted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.persisted))
	copy(out, f.persisted)
	return out
}
