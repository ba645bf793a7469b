// Package artifacts writes the accession lists produced by a pipeline run.
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/nishad/enaimport/internal/errors"
)

// Sink stores a named list of accessions and returns where it went.
type Sink interface {
	Write(ctx context.Context, name string, accessions []string) (string, error)
}

// FailedName is the artifact name for the accessions a run permanently
// failed. Every run gets its own name, including reruns on the same day.
func FailedName(pipeline string, day time.Time, runID string) string {
	return artifactName(pipeline, "failed", day, runID)
}

// SuppressedName is the artifact name for accessions handled by the sweep
// of run.
func SuppressedName(pipeline string, day time.Time, runID string) string {
	return artifactName(pipeline, "suppressed", day, runID)
}

func artifactName(pipeline, list string, day time.Time, runID string) string {
	return fmt.Sprintf("%s_%s_%s_%s.txt", pipeline, list, day.UTC().Format("2006-01-02"), runID)
}

// render produces one sorted accession per line.
func render(accessions []string) []byte {
	sorted := append([]string(nil), accessions...)
	sort.Strings(sorted)
	var b bytes.Buffer
	for _, a := range sorted {
		b.WriteString(a)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// FileSink writes lists into a directory.
type FileSink struct {
	Dir string
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.E(apperrors.Op("artifacts.NewFileSink"), apperrors.KindIO, err)
	}
	return &FileSink{Dir: dir}, nil
}

// Write replaces the file atomically.
func (f *FileSink) Write(_ context.Context, name string, accessions []string) (string, error) {
	const op = apperrors.Op("artifacts.FileSink.Write")
	if strings.ContainsAny(name, `/\`) {
		return "", apperrors.E(op, apperrors.KindValidation, fmt.Errorf("invalid artifact name %q", name))
	}

	path := filepath.Join(f.Dir, name)
	tmp, err := os.CreateTemp(f.Dir, "."+name+".*")
	if err != nil {
		return "", apperrors.E(op, apperrors.KindIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(render(accessions)); err != nil {
		tmp.Close()
		return "", apperrors.E(op, apperrors.KindIO, err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperrors.E(op, apperrors.KindIO, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", apperrors.E(op, apperrors.KindIO, err)
	}
	return path, nil
}
