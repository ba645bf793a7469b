// Package erapro reads ENA sample rows from the ERAPRO metadata store.
//
// The store is reached through database/sql. Production uses the pgx driver
// against the replicated schema; local mirrors and tests use SQLite. Queries
// number their placeholders in order of first appearance so the same text
// runs on both.
package erapro

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/logger"
)

// Status codes of the sample table.
const (
	StatusDraft               = 1
	StatusPrivate             = 2
	StatusCancelled           = 3
	StatusPublic              = 4
	StatusSuppressed          = 5
	StatusKilled              = 6
	StatusTemporarySuppressed = 7
	StatusTemporaryKilled     = 8
)

const (
	DefaultAccessionPattern = "SAMEA%"
	DefaultSweepPattern     = "SAM%"
	DefaultQueryAttempts    = 5

	// dateLayout is how metadata dates are handed to the XML rules.
	dateLayout = "2006-01-02T15:04:05Z"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// SampleRecord is the raw state of one sample row.
type SampleRecord struct {
	Accession    string
	XML          string
	FirstPublic  *time.Time
	LastUpdated  *time.Time
	FirstCreated *time.Time
	StatusID     int
	SubmitterID  string
	TaxonID      *int64
}

// Candidate is one row of the date-range stream.
type Candidate struct {
	Accession   string
	StatusID    int
	EgaID       string
	LastUpdated *time.Time
}

// Metadata is the side-channel information used by the XML rules.
type Metadata struct {
	BioSampleID         string
	BrokerName          string
	CentreName          string
	FixedTaxonomy       bool
	TaxonID             int64
	ScientificName      string
	FixedScientificName string
	FixedCommonName     string
	FixedTaxonID        int64
	FirstPublic         string
	LastUpdated         string
}

// SweepKind selects the statuses visited by the suppressed/killed sweep.
type SweepKind string

const (
	SweepSuppressed SweepKind = "SUPPRESSED"
	SweepKilled     SweepKind = "KILLED"
)

// Statuses returns the status codes covered by the sweep kind.
func (k SweepKind) Statuses() (int, int, error) {
	switch k {
	case SweepSuppressed:
		return StatusSuppressed, StatusTemporarySuppressed, nil
	case SweepKilled:
		return StatusKilled, StatusTemporaryKilled, nil
	default:
		return 0, 0, fmt.Errorf("unknown sweep kind %q", k)
	}
}

// Options tune the access layer.
type Options struct {
	AccessionPattern string
	SweepPattern     string
	QueryAttempts    int
}

// DB wraps the SQL connection to ERAPRO.
type DB struct {
	db   *sql.DB
	opts Options
	log  *logger.Logger
}

// Open connects using driver ("pgx" or "sqlite3") and dsn.
func Open(ctx context.Context, driver, dsn string, opts Options, log *logger.Logger) (*DB, error) {
	const op = apperrors.Op("erapro.Open")

	openMu.Lock()
	db, err := sqlOpen(driver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err, "open "+driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.E(op, apperrors.KindDatabase, err, "ping "+driver)
	}
	// Workers read rows while the candidate cursor is still open, so the
	// pool must allow more than one connection.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return New(db, opts, log), nil
}

// New wraps an existing connection.
func New(db *sql.DB, opts Options, log *logger.Logger) *DB {
	if opts.AccessionPattern == "" {
		opts.AccessionPattern = DefaultAccessionPattern
	}
	if opts.SweepPattern == "" {
		opts.SweepPattern = DefaultSweepPattern
	}
	if opts.QueryAttempts <= 0 {
		opts.QueryAttempts = DefaultQueryAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DB{db: db, opts: opts, log: log.With("component", "erapro")}
}

// Close closes the connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks that ERAPRO is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return apperrors.E(apperrors.Op("erapro.Ping"), apperrors.KindDatabase, err)
	}
	return nil
}

// SQL exposes the underlying connection.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// excludeClause is shared by streaming and single-record lookups.
const excludeClause = `ega_id IS NULL AND biosample_authority = 'N'`

// StreamCandidates calls fn for every importable sample whose last update
// or first public date falls within [from, to], in accession order.
func (d *DB) StreamCandidates(ctx context.Context, from, to time.Time, fn func(Candidate) error) error {
	const op = apperrors.Op("erapro.StreamCandidates")
	query := `SELECT biosample_id, status_id, ega_id, last_updated FROM sample
		WHERE biosample_id LIKE $1 AND ` + excludeClause + `
		AND status_id IN (4, 5, 6, 7, 8)
		AND ((last_updated >= $2 AND last_updated <= $3) OR (first_public >= $2 AND first_public <= $3))
		AND biosample_id > $4
		ORDER BY biosample_id`

	return d.stream(ctx, op, func(last string) (*sql.Rows, error) {
		return d.db.QueryContext(ctx, query, d.opts.AccessionPattern, from.UTC(), to.UTC(), last)
	}, func(rows *sql.Rows) (string, error) {
		var (
			c       Candidate
			ega     sql.NullString
			updated sql.NullTime
		)
		if err := rows.Scan(&c.Accession, &c.StatusID, &ega, &updated); err != nil {
			return "", err
		}
		c.EgaID = ega.String
		c.LastUpdated = nullTime(updated)
		return c.Accession, fn(c)
	})
}

// StreamSuppressedOrKilled calls fn with every accession in the sweep kind.
func (d *DB) StreamSuppressedOrKilled(ctx context.Context, kind SweepKind, fn func(string) error) error {
	const op = apperrors.Op("erapro.StreamSuppressedOrKilled")
	s1, s2, err := kind.Statuses()
	if err != nil {
		return apperrors.MarkFatal(apperrors.E(op, apperrors.KindValidation, err))
	}
	query := `SELECT biosample_id FROM sample
		WHERE biosample_id LIKE $1 AND ega_id IS NULL AND status_id IN ($2, $3)
		AND biosample_id > $4
		ORDER BY biosample_id`

	return d.stream(ctx, op, func(last string) (*sql.Rows, error) {
		return d.db.QueryContext(ctx, query, d.opts.SweepPattern, s1, s2, last)
	}, func(rows *sql.Rows) (string, error) {
		var acc string
		if err := rows.Scan(&acc); err != nil {
			return "", err
		}
		return acc, fn(acc)
	})
}

// GetRecord returns the sample row for accession, or nil when it does not
// exist or is excluded from import.
func (d *DB) GetRecord(ctx context.Context, accession string) (*SampleRecord, error) {
	const op = apperrors.Op("erapro.GetRecord")
	query := `SELECT biosample_id, sample_xml, first_public, last_updated, first_created,
		status_id, submission_account_id, tax_id
		FROM sample WHERE biosample_id = $1 AND ` + excludeClause

	var rec *SampleRecord
	err := d.withRetry(ctx, op, func() error {
		var (
			r                        SampleRecord
			xml, submitter           sql.NullString
			public, updated, created sql.NullTime
			taxon                    sql.NullInt64
		)
		err := d.db.QueryRowContext(ctx, query, accession).Scan(
			&r.Accession, &xml, &public, &updated, &created, &r.StatusID, &submitter, &taxon)
		if err == sql.ErrNoRows {
			rec = nil
			return nil
		}
		if err != nil {
			return err
		}
		r.XML = xml.String
		r.FirstPublic = nullTime(public)
		r.LastUpdated = nullTime(updated)
		r.FirstCreated = nullTime(created)
		r.SubmitterID = submitter.String
		if taxon.Valid {
			v := taxon.Int64
			r.TaxonID = &v
		}
		rec = &r
		return nil
	})
	return rec, err
}

// GetMetadata returns the broker, centre and taxonomy side-channel for
// accession. Names are normalized through the alias lookup tables. A missing
// row yields empty metadata, which turns every dependent rule into a no-op.
func (d *DB) GetMetadata(ctx context.Context, accession string) (Metadata, error) {
	const op = apperrors.Op("erapro.GetMetadata")
	query := `SELECT s.biosample_id,
		COALESCE(ba.broker_name, sub.broker_name, ''),
		COALESCE(ca.center_name, sub.center_name, ''),
		COALESCE(s.fixed, 0), s.tax_id, s.scientific_name,
		s.fixed_tax_id, s.fixed_scientific_name, s.fixed_common_name,
		s.first_public, s.last_updated
		FROM sample s
		LEFT JOIN submission sub ON sub.submission_id = s.submission_id
		LEFT JOIN cv_broker_alias ba ON ba.alias = sub.broker_name
		LEFT JOIN cv_center_alias ca ON ca.alias = sub.center_name
		WHERE s.biosample_id = $1`

	var md Metadata
	err := d.withRetry(ctx, op, func() error {
		var (
			m                        Metadata
			fixed                    int64
			taxon, fixedTaxon        sql.NullInt64
			sciName, fixedSci, fixCN sql.NullString
			public, updated          sql.NullTime
		)
		err := d.db.QueryRowContext(ctx, query, accession).Scan(
			&m.BioSampleID, &m.BrokerName, &m.CentreName, &fixed, &taxon, &sciName,
			&fixedTaxon, &fixedSci, &fixCN, &public, &updated)
		if err == sql.ErrNoRows {
			md = Metadata{}
			return nil
		}
		if err != nil {
			return err
		}
		m.FixedTaxonomy = fixed != 0
		m.TaxonID = taxon.Int64
		m.ScientificName = sciName.String
		m.FixedTaxonID = fixedTaxon.Int64
		m.FixedScientificName = fixedSci.String
		m.FixedCommonName = fixCN.String
		if public.Valid {
			m.FirstPublic = public.Time.UTC().Format(dateLayout)
		}
		if updated.Valid {
			m.LastUpdated = updated.Time.UTC().Format(dateLayout)
		}
		md = m
		return nil
	})
	return md, err
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
