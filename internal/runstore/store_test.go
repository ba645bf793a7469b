package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nishad/enaimport/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs", "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := &models.PipelineRun{
		ID:               "run-1",
		Timestamp:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		PipelineName:     "ena",
		Status:           models.RunCompleted,
		FailedAccessions: "SAMEA1,SAMEA2",
	}
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PipelineName != "ena" || got.Status != models.RunCompleted || !got.Timestamp.Equal(run.Timestamp) {
		t.Errorf("unexpected run %+v", got)
	}
	if len(got.Failed()) != 2 || got.FailureCause != "" {
		t.Errorf("failures lost: %+v", got)
	}

	if err := s.Save(ctx, run); err == nil {
		t.Error("saving a run twice should fail")
	}
}

func TestGetMissing(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	runs := []*models.PipelineRun{
		{ID: "a", Timestamp: base, PipelineName: "ena", Status: models.RunCompleted},
		{ID: "b", Timestamp: base.Add(time.Hour), PipelineName: "ena", Status: models.RunFailed, FailureCause: "query attempts exhausted"},
		{ID: "c", Timestamp: base.Add(2 * time.Hour), PipelineName: "ncbi", Status: models.RunCompleted},
	}
	for _, r := range runs {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save(%s): %v", r.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"c", "b", "a"}},
		{"by pipeline", Filter{PipelineName: "ena"}, []string{"b", "a"}},
		{"by status", Filter{Status: models.RunFailed}, []string{"b"}},
		{"limit", Filter{Limit: 1}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d runs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}
