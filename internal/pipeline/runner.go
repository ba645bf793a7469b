// Package pipeline imports ENA samples into BioSamples.
//
// A run streams candidate accessions from ERAPRO, enriches each one and
// submits it on a bounded worker pool. Per-accession failures are collected
// and never stop the run; only a failure of the metadata queries does. A
// summary of every run is persisted, whatever the outcome.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nishad/enaimport/internal/artifacts"
	"github.com/nishad/enaimport/internal/biosamples"
	"github.com/nishad/enaimport/internal/enrichment"
	"github.com/nishad/enaimport/internal/erapro"
	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/logger"
	"github.com/nishad/enaimport/internal/metrics"
	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/seen"
	"github.com/nishad/enaimport/internal/workerpool"
)

const (
	DefaultName       = "ena"
	DefaultMaxRetries = 5
)

// Source streams candidate accessions and raw rows.
type Source interface {
	StreamCandidates(ctx context.Context, from, to time.Time, fn func(erapro.Candidate) error) error
	StreamSuppressedOrKilled(ctx context.Context, kind erapro.SweepKind, fn func(string) error) error
	GetRecord(ctx context.Context, accession string) (*erapro.SampleRecord, error)
}

// Enricher builds the sample to submit for an accession.
type Enricher interface {
	EnrichSample(ctx context.Context, accession string, isNCBI bool) (*models.Sample, error)
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	Save(ctx context.Context, run *models.PipelineRun) error
}

// Config tunes a runner.
type Config struct {
	Name          string
	Pool          workerpool.Options
	MaxRetries    int
	RetryDelay    time.Duration
	SubmitTimeout time.Duration
}

// Deps are the collaborators of a runner. Runs, Artifacts, Seen and Metrics
// are optional.
type Deps struct {
	Source    Source
	Enricher  Enricher
	Client    biosamples.Client
	Runs      RunRecorder
	Artifacts artifacts.Sink
	Seen      seen.Store
	Metrics   *metrics.Metrics
	Log       *logger.Logger
}

// Options select what a date-range run covers. From and Until are calendar
// days; both are inclusive.
type Options struct {
	From  time.Time
	Until time.Time
	Sweep bool
}

// Runner executes pipeline runs.
type Runner struct {
	cfg  Config
	deps Deps
	log  *logger.Logger

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// New creates a runner.
func New(cfg Config, deps Deps) *Runner {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Seen == nil {
		deps.Seen = seen.NewMemory()
	}
	return &Runner{
		cfg:   cfg,
		deps:  deps,
		log:   deps.Log.With("pipeline", cfg.Name),
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

func (r *Runner) factory() *taskFactory {
	return &taskFactory{
		name:          r.cfg.Name,
		maxRetries:    r.cfg.MaxRetries,
		retryDelay:    r.cfg.RetryDelay,
		submitTimeout: r.cfg.SubmitTimeout,
		metrics:       r.deps.Metrics,
		log:           r.log,
	}
}

// Run imports every candidate in the date range, then runs the
// suppressed/killed sweep when requested.
func (r *Runner) Run(ctx context.Context, opts Options) (run *models.PipelineRun, err error) {
	const op = apperrors.Op("pipeline.Run")
	rc := NewRunContext()
	start := r.Now().UTC()
	defer func() { run, err = r.finish(ctx, rc, start, opts.Sweep, err) }()

	from, to := dayRange(opts.From, opts.Until)
	if to.Before(from) {
		return nil, apperrors.E(op, apperrors.KindValidation,
			fmt.Errorf("until %s is before from %s", opts.Until.Format("2006-01-02"), opts.From.Format("2006-01-02")))
	}
	r.log.Info("run started", "from", from, "until", to, "sweep", opts.Sweep)

	f := r.factory()
	pool := workerpool.New(ctx, r.cfg.Pool)
	streamErr := r.deps.Source.StreamCandidates(ctx, from, to, func(c erapro.Candidate) error {
		if err := rc.Err(); err != nil {
			return err
		}
		t := f.newTask(rc, c.Accession, r.importAttempt)
		return pool.Submit(ctx, func(ctx context.Context) { t.Run(ctx) })
	})
	pool.Wait()
	if err := rc.Err(); err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if streamErr != nil {
		return nil, apperrors.Wrap(op, streamErr)
	}

	if opts.Sweep {
		if err := r.sweep(ctx, rc); err != nil {
			return nil, apperrors.Wrap(op, err)
		}
	}
	return nil, nil
}

// RunAccessions imports the given accessions regardless of their dates.
func (r *Runner) RunAccessions(ctx context.Context, accessions []string) (run *models.PipelineRun, err error) {
	const op = apperrors.Op("pipeline.RunAccessions")
	rc := NewRunContext()
	start := r.Now().UTC()
	defer func() { run, err = r.finish(ctx, rc, start, false, err) }()

	r.log.Info("accession run started", "count", len(accessions))
	f := r.factory()
	pool := workerpool.New(ctx, r.cfg.Pool)
	queued := NewAccessionSet()
	for _, acc := range accessions {
		if rc.Err() != nil {
			break
		}
		acc = strings.TrimSpace(acc)
		if acc == "" || !queued.Add(acc) {
			continue
		}
		t := f.newTask(rc, acc, r.importAttempt)
		if err := pool.Submit(ctx, func(ctx context.Context) { t.Run(ctx) }); err != nil {
			pool.Wait()
			return nil, apperrors.Wrap(op, err)
		}
	}
	pool.Wait()
	if err := rc.Err(); err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	return nil, nil
}

// importAttempt enriches and submits one accession.
func (r *Runner) importAttempt(ctx context.Context, accession string) Result {
	sample, err := r.deps.Enricher.EnrichSample(ctx, accession, enrichment.IsNCBI(accession))
	if err != nil {
		return classify(err)
	}
	if sample == nil {
		return skipped()
	}
	_, err = r.deps.Client.Persist(ctx, sample)
	return classify(err)
}

// finish writes the run summary and the artifacts. It runs on every exit
// path of a run, including failures.
func (r *Runner) finish(ctx context.Context, rc *RunContext, start time.Time, sweep bool, runErr error) (*models.PipelineRun, error) {
	ctx = context.WithoutCancel(ctx)
	run := &models.PipelineRun{
		ID:               r.NewID(),
		Timestamp:        start,
		PipelineName:     r.cfg.Name,
		Status:           models.RunCompleted,
		FailedAccessions: strings.Join(rc.Failed.List(), ","),
	}
	if runErr != nil {
		run.Status = models.RunFailed
		run.FailureCause = runErr.Error()
	}

	log := r.log.With("run", run.ID)
	if r.deps.Runs != nil {
		if err := r.deps.Runs.Save(ctx, run); err != nil {
			log.Error("failed to save run summary", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	if r.deps.Artifacts != nil {
		r.writeArtifact(ctx, log, artifacts.FailedName(r.cfg.Name, start, run.ID), rc.Failed.List())
		if sweep {
			r.writeArtifact(ctx, log, artifacts.SuppressedName(r.cfg.Name, start, run.ID), rc.Handled.List())
		}
	}
	r.deps.Metrics.RunDone(r.cfg.Name, string(run.Status))

	log.Info("run finished", "status", string(run.Status), "failed", rc.Failed.Len(),
		"handled", rc.Handled.Len(), "elapsed", r.Now().Sub(start))
	return run, runErr
}

func (r *Runner) writeArtifact(ctx context.Context, log *logger.Logger, name string, accessions []string) {
	loc, err := r.deps.Artifacts.Write(ctx, name, accessions)
	if err != nil {
		log.Error("failed to write artifact", "name", name, "error", err)
		return
	}
	log.Info("artifact written", "location", loc, "count", len(accessions))
}

// dayRange widens calendar days to [start of from, end of until] in UTC.
func dayRange(from, until time.Time) (time.Time, time.Time) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, time.UTC)
	return start, end.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
