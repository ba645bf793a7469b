package erapro

import (
	"context"
	"database/sql"

	apperrors "github.com/nishad/enaimport/internal/errors"
)

// callbackError marks an error returned by a stream consumer. Those are never
// retried by the query layer.
type callbackError struct{ err error }

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// withRetry runs fn up to QueryAttempts times, immediately, and turns
// exhaustion into a fatal database error.
func (d *DB) withRetry(ctx context.Context, op apperrors.Op, fn func() error) error {
	var err error
	for attempt := 1; attempt <= d.opts.QueryAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var cbErr *callbackError
		if apperrors.As(err, &cbErr) {
			return cbErr.err
		}
		if ctx.Err() != nil {
			return apperrors.E(op, apperrors.KindDatabase, ctx.Err())
		}
		d.log.Warn("query failed", "op", string(op), "attempt", attempt, "error", err)
	}
	return apperrors.MarkFatal(apperrors.E(op, apperrors.KindDatabase, err, "query attempts exhausted"))
}

// stream runs an accession-ordered query and scans every row. When the
// cursor fails midway the query is reopened after the last accession that
// was handed to the consumer, so a retry never emits a row twice.
func (d *DB) stream(ctx context.Context, op apperrors.Op,
	query func(last string) (*sql.Rows, error),
	scan func(*sql.Rows) (string, error)) error {

	last := ""
	return d.withRetry(ctx, op, func() error {
		rows, err := query(last)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			acc, err := scan(rows)
			if acc == "" && err != nil {
				return err
			}
			last = acc
			if err != nil {
				return &callbackError{err: err}
			}
		}
		return rows.Err()
	})
}
