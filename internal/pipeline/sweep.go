package pipeline

import (
	"context"
	"strings"

	"github.com/nishad/enaimport/internal/enrichment"
	"github.com/nishad/enaimport/internal/erapro"
	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/workerpool"
)

var sweepKinds = []erapro.SweepKind{erapro.SweepSuppressed, erapro.SweepKilled}

// sweep brings the status of suppressed and killed samples in BioSamples in
// line with ERAPRO.
func (r *Runner) sweep(ctx context.Context, rc *RunContext) error {
	f := r.factory()
	for _, kind := range sweepKinds {
		r.log.Info("sweep started", "kind", string(kind))
		pool := workerpool.New(ctx, r.cfg.Pool)
		err := r.deps.Source.StreamSuppressedOrKilled(ctx, kind, func(acc string) error {
			if err := rc.Err(); err != nil {
				return err
			}
			day := r.Now()
			done, err := r.deps.Seen.Seen(ctx, day, acc)
			if err != nil {
				r.log.Warn("handled-today lookup failed", "accession", acc, "error", err)
			}
			if done {
				return nil
			}
			t := f.newTask(rc, acc, r.sweepAttempt(kind))
			t.onSuccess = func(ctx context.Context, acc string) {
				rc.Handled.Add(acc)
				if _, err := r.deps.Seen.Mark(ctx, day, acc); err != nil {
					r.log.Warn("failed to mark accession handled", "accession", acc, "error", err)
				}
			}
			return pool.Submit(ctx, func(ctx context.Context) { t.Run(ctx) })
		})
		pool.Wait()
		if err := rc.Err(); err != nil {
			return err
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// sweepAttempt returns the attempt for one accession of kind.
func (r *Runner) sweepAttempt(kind erapro.SweepKind) attemptFunc {
	return func(ctx context.Context, accession string) Result {
		expected, err := r.expectedStatus(ctx, kind, accession)
		if err != nil {
			return classify(err)
		}

		existing, err := r.deps.Client.Fetch(ctx, accession)
		if err != nil {
			return classify(err)
		}
		if existing == nil {
			if enrichment.IsNCBI(accession) {
				r.log.Info("not creating NCBI/DDBJ sample from sweep", "accession", accession)
				return skipped()
			}
			return r.importAttempt(ctx, accession)
		}

		if current, ok := statusOf(existing); !ok || current != string(expected) {
			existing.Attributes.RemoveType(enrichment.AttrStatus, true)
			existing.Attributes.Add(models.NewAttribute(enrichment.AttrStatus, string(expected)))
			r.log.Debug("status rewritten", "accession", accession, "from", current, "to", string(expected))
		}
		existing.StructuredData = nil
		_, err = r.deps.Client.Persist(ctx, existing)
		return classify(err)
	}
}

// expectedStatus prefers the status recorded in ERAPRO, which tells the
// temporary variants apart, and falls back to the kind of the sweep.
func (r *Runner) expectedStatus(ctx context.Context, kind erapro.SweepKind, accession string) (enrichment.Status, error) {
	fallback := enrichment.StatusSuppressed
	if kind == erapro.SweepKilled {
		fallback = enrichment.StatusKilled
	}

	rec, err := r.deps.Source.GetRecord(ctx, accession)
	if err != nil {
		return "", apperrors.Wrap(apperrors.Op("pipeline.expectedStatus"), err)
	}
	if rec == nil {
		return fallback, nil
	}
	s1, s2, _ := kind.Statuses()
	if rec.StatusID != s1 && rec.StatusID != s2 {
		return fallback, nil
	}
	return enrichment.StatusFromID(rec.StatusID)
}

// statusOf returns the INSDC status of a stored sample, matching the type
// name case-insensitively. Samples with conflicting status attributes
// report no status.
func statusOf(s *models.Sample) (string, bool) {
	var values []string
	for _, a := range s.Attributes.All() {
		if strings.EqualFold(a.Type, enrichment.AttrStatus) {
			values = append(values, a.Value)
		}
	}
	if len(values) != 1 {
		return "", false
	}
	return values[0], true
}
