package pipeline

import (
	"context"
	"time"

	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/logger"
	"github.com/nishad/enaimport/internal/metrics"
)

// Outcome classifies one attempt, or the final result of an accession.
type Outcome int

const (
	Succeeded Outcome = iota
	Retryable
	Fatal
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is what a unit of work reports back to the retry harness.
type Result struct {
	Accession string
	Outcome   Outcome
	Attempts  int
	Err       error
}

func succeeded() Result { return Result{Outcome: Succeeded} }

func skipped() Result { return Result{Outcome: Skipped} }

// classify turns an error into a typed result.
func classify(err error) Result {
	switch {
	case err == nil:
		return succeeded()
	case apperrors.IsRetryable(err):
		return Result{Outcome: Retryable, Err: err}
	default:
		return Result{Outcome: Fatal, Err: err}
	}
}

// abortsRun reports whether res means ERAPRO itself is unusable: a fatal
// database error is what the query layer returns once its retries are spent.
func abortsRun(res Result) bool {
	return res.Outcome == Fatal && apperrors.IsFatal(res.Err) && apperrors.IsKind(res.Err, apperrors.KindDatabase)
}

// attemptFunc performs one SUBMITTING step for an accession.
type attemptFunc func(ctx context.Context, accession string) Result

// taskFactory holds the stateless collaborators shared by every task of a
// run and builds one task per accession.
type taskFactory struct {
	name          string
	maxRetries    int
	retryDelay    time.Duration
	submitTimeout time.Duration
	metrics       *metrics.Metrics
	log           *logger.Logger
}

// task is the retry harness around attempt for a single accession.
type task struct {
	f         *taskFactory
	rc        *RunContext
	accession string
	attempt   attemptFunc
	onSuccess func(ctx context.Context, accession string)
}

func (f *taskFactory) newTask(rc *RunContext, accession string, attempt attemptFunc) *task {
	return &task{f: f, rc: rc, accession: accession, attempt: attempt}
}

// Run drives the accession from PENDING to SUCCEEDED, SKIPPED or FAILED.
// Failures are recorded in the run context and never returned.
func (t *task) Run(ctx context.Context) Result {
	if err := t.rc.Err(); err != nil {
		return Result{Accession: t.accession, Outcome: Skipped, Err: err}
	}
	f := t.f
	log := f.log.With("accession", t.accession)
	start := time.Now()
	f.metrics.Started()
	defer f.metrics.Finished()

	delay := f.retryDelay
	var res Result
	for n := 1; n <= f.maxRetries; n++ {
		res = t.once(ctx)
		res.Attempts = n
		f.metrics.Attempt(f.name, res.Err)

		if res.Outcome == Succeeded || res.Outcome == Skipped || res.Outcome == Fatal {
			break
		}
		log.Warn("attempt failed", "attempt", n, "max", f.maxRetries, "error", res.Err)
		if n == f.maxRetries {
			break
		}
		if !sleep(ctx, delay) {
			res = Result{Outcome: Fatal, Err: ctx.Err(), Attempts: n}
			break
		}
		delay *= 2
	}
	res.Accession = t.accession

	switch res.Outcome {
	case Succeeded:
		if t.onSuccess != nil {
			t.onSuccess(ctx, t.accession)
		}
		log.Debug("submitted", "attempts", res.Attempts)
		f.metrics.AccessionDone(f.name, metrics.OutcomeSucceeded, time.Since(start))
	case Skipped:
		log.Debug("nothing to submit")
		f.metrics.AccessionDone(f.name, metrics.OutcomeSkipped, time.Since(start))
	default:
		t.rc.Failed.Add(t.accession)
		if abortsRun(res) {
			t.rc.Abort(res.Err)
			log.Error("metadata queries exhausted, aborting run", "error", res.Err)
		}
		log.Error("accession failed", "outcome", res.Outcome.String(), "attempts", res.Attempts, "error", res.Err)
		f.metrics.AccessionDone(f.name, metrics.OutcomeFailed, time.Since(start))
	}
	return res
}

// once runs a single attempt under the per-attempt deadline.
func (t *task) once(ctx context.Context) (res Result) {
	actx := ctx
	if t.f.submitTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, t.f.submitTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			res = Result{Outcome: Fatal, Err: apperrors.E(apperrors.Op("pipeline.attempt"), apperrors.KindUnknown,
				apperrors.New("panic while processing accession"), t.accession)}
			t.f.log.Error("panic in attempt", "accession", t.accession, "panic", p)
		}
	}()
	return t.attempt(actx, t.accession)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
