package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nishad/enaimport/internal/erapro"
)

// Mirror creates an empty ERAPRO mirror in the test's temp dir. The
// returned func closes it.
func Mirror(t *testing.T) (*erapro.DB, func()) {
	t.Helper()

	db, err := erapro.Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "erapro.db"), erapro.Options{}, nil)
	if err != nil {
		t.Fatalf("failed to open mirror: %v", err)
	}
	if err := db.CreateSchema(context.Background()); err != nil {
		db.Close()
		t.Fatalf("failed to create mirror schema: %v", err)
	}

	return db, func() { db.Close() }
}

// MirrorWithRows creates a mirror holding rows.
func MirrorWithRows(t *testing.T, rows ...erapro.Row) (*erapro.DB, func()) {
	t.Helper()

	db, cleanup := Mirror(t)
	for _, r := range rows {
		if err := db.PutSample(context.Background(), r); err != nil {
			cleanup()
			t.Fatalf("failed to insert %s: %v", r.BioSampleID, err)
		}
	}
	return db, cleanup
}

// Day parses a YYYY-MM-DD date in UTC and panics on bad input.
func Day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// DayPtr is Day returning a pointer, for nullable row columns.
func DayPtr(s string) *time.Time {
	d := Day(s)
	return &d
}
