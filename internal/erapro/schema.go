package erapro

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/nishad/enaimport/internal/errors"
)

// schema is the subset of the ERAPRO layout read by the pipeline. It is used
// to create local mirrors and test fixtures.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS submission (
		submission_id TEXT PRIMARY KEY,
		broker_name TEXT,
		center_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS sample (
		biosample_id TEXT PRIMARY KEY,
		sample_id TEXT,
		submission_id TEXT,
		biosample_authority TEXT NOT NULL DEFAULT 'N',
		submission_account_id TEXT,
		sample_xml TEXT,
		first_public TIMESTAMP,
		last_updated TIMESTAMP,
		first_created TIMESTAMP,
		status_id INTEGER NOT NULL,
		ega_id TEXT,
		tax_id INTEGER,
		scientific_name TEXT,
		fixed INTEGER NOT NULL DEFAULT 0,
		fixed_tax_id INTEGER,
		fixed_scientific_name TEXT,
		fixed_common_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS cv_broker_alias (
		alias TEXT PRIMARY KEY,
		broker_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cv_center_alias (
		alias TEXT PRIMARY KEY,
		center_name TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sample_last_updated ON sample(last_updated)`,
	`CREATE INDEX IF NOT EXISTS idx_sample_first_public ON sample(first_public)`,
	`CREATE INDEX IF NOT EXISTS idx_sample_status ON sample(status_id)`,
}

// CreateSchema creates the mirror tables when they are missing.
func (d *DB) CreateSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.E(apperrors.Op("erapro.CreateSchema"), apperrors.KindDatabase, err)
		}
	}
	return nil
}

// Row is a full sample row as written into a mirror.
type Row struct {
	BioSampleID         string
	SampleID            string
	SubmissionID        string
	Authority           string
	SubmitterID         string
	XML                 string
	FirstPublic         *time.Time
	LastUpdated         *time.Time
	FirstCreated        *time.Time
	StatusID            int
	EgaID               string
	TaxonID             *int64
	ScientificName      string
	Fixed               bool
	FixedTaxonID        *int64
	FixedScientificName string
	FixedCommonName     string
}

// PutSample inserts or replaces a sample row.
func (d *DB) PutSample(ctx context.Context, r Row) error {
	if r.Authority == "" {
		r.Authority = "N"
	}
	fixed := 0
	if r.Fixed {
		fixed = 1
	}
	_, err := d.db.ExecContext(ctx, `DELETE FROM sample WHERE biosample_id = $1`, r.BioSampleID)
	if err == nil {
		_, err = d.db.ExecContext(ctx, `INSERT INTO sample (
			biosample_id, sample_id, submission_id, biosample_authority, submission_account_id,
			sample_xml, first_public, last_updated, first_created, status_id, ega_id, tax_id,
			scientific_name, fixed, fixed_tax_id, fixed_scientific_name, fixed_common_name)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			r.BioSampleID, nullString(r.SampleID), nullString(r.SubmissionID), r.Authority,
			nullString(r.SubmitterID), r.XML, timeArg(r.FirstPublic), timeArg(r.LastUpdated),
			timeArg(r.FirstCreated), r.StatusID, nullString(r.EgaID), int64Arg(r.TaxonID),
			nullString(r.ScientificName), fixed, int64Arg(r.FixedTaxonID),
			nullString(r.FixedScientificName), nullString(r.FixedCommonName))
	}
	if err != nil {
		return apperrors.E(apperrors.Op("erapro.PutSample"), apperrors.KindDatabase, err, r.BioSampleID)
	}
	return nil
}

// PutSubmission inserts or replaces a submission row.
func (d *DB) PutSubmission(ctx context.Context, id, broker, center string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM submission WHERE submission_id = $1`, id)
	if err == nil {
		_, err = d.db.ExecContext(ctx,
			`INSERT INTO submission (submission_id, broker_name, center_name) VALUES ($1, $2, $3)`,
			id, nullString(broker), nullString(center))
	}
	if err != nil {
		return apperrors.E(apperrors.Op("erapro.PutSubmission"), apperrors.KindDatabase, err, id)
	}
	return nil
}

// PutAlias records a normalized name for a broker or centre alias. kind is
// "broker" or "center".
func (d *DB) PutAlias(ctx context.Context, kind, alias, name string) error {
	table := "cv_center_alias"
	column := "center_name"
	if kind == "broker" {
		table = "cv_broker_alias"
		column = "broker_name"
	}
	_, err := d.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE alias = $1`, alias)
	if err == nil {
		_, err = d.db.ExecContext(ctx,
			`INSERT INTO `+table+` (alias, `+column+`) VALUES ($1, $2)`, alias, name)
	}
	if err != nil {
		return apperrors.E(apperrors.Op("erapro.PutAlias"), apperrors.KindDatabase, err, alias)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timeArg(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func int64Arg(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
