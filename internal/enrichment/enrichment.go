// Package enrichment produces submission-ready samples from ERAPRO rows.
package enrichment

import (
	"context"
	"time"

	"github.com/nishad/enaimport/internal/converter"
	"github.com/nishad/enaimport/internal/erapro"
	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/logger"
	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/parser"
	"github.com/nishad/enaimport/internal/rules"
)

// Attribute types added during enrichment.
const (
	AttrStatus      = "INSDC status"
	AttrFirstPublic = "INSDC first public"
	AttrLastUpdate  = "INSDC last update"
)

// EmbargoPeriod is how far in the future private samples without a first
// public date are released.
const EmbargoPeriod = 100

const enaBrowserURL = "https://www.ebi.ac.uk/ena/browser/view/"

// Source supplies raw sample rows and their side-channel metadata.
type Source interface {
	GetRecord(ctx context.Context, accession string) (*erapro.SampleRecord, error)
	GetMetadata(ctx context.Context, accession string) (erapro.Metadata, error)
}

// Options configure ownership and rule selection.
type Options struct {
	ENADomain          string
	WebinSuperuser     string
	ApplyFixedTaxonomy bool
}

// Service combines rules, conversion and status policy.
type Service struct {
	src   Source
	conv  *converter.Converter
	chain rules.Chain
	opts  Options
	log   *logger.Logger

	// Now is the clock used for release dates.
	Now func() time.Time
}

// New creates an enrichment service.
func New(src Source, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	chain := rules.Standard()
	if opts.ApplyFixedTaxonomy {
		chain = rules.WithFixedTaxonomy()
	}
	return &Service{
		src:   src,
		conv:  converter.New(log),
		chain: chain,
		opts:  opts,
		log:   log.With("component", "enrichment"),
		Now:   time.Now,
	}
}

// EnrichSample builds the sample for accession. It returns nil, nil when the
// row does not exist or is excluded from import.
func (s *Service) EnrichSample(ctx context.Context, accession string, isNCBI bool) (*models.Sample, error) {
	const op = apperrors.Op("enrichment.EnrichSample")

	rec, err := s.src.GetRecord(ctx, accession)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	if rec == nil {
		s.log.Debug("no importable record", "accession", accession)
		return nil, nil
	}

	doc, err := parser.Parse(rec.XML)
	if err != nil {
		return nil, apperrors.WrapMsg(op, accession, err)
	}
	md, err := s.src.GetMetadata(ctx, accession)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	doc = s.chain.ApplyAll(doc, md)

	sample, err := s.conv.Convert(doc, accession, isNCBI)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}

	status, err := StatusFromID(rec.StatusID)
	if err != nil {
		return nil, apperrors.WrapMsg(op, accession, err)
	}
	s.applyDates(sample, rec, status)
	sample.Attributes.Replace(models.NewAttribute(AttrStatus, string(status)))
	sample.AddExternalReference(models.ExternalReference{URL: enaBrowserURL + accession})
	s.assignOwner(sample, rec, isNCBI)
	sample.StructuredData = nil
	return sample, nil
}

func (s *Service) applyDates(sample *models.Sample, rec *erapro.SampleRecord, status Status) {
	now := s.Now().UTC()

	sample.Update = now
	if rec.LastUpdated != nil {
		sample.Update = rec.LastUpdated.UTC()
		sample.Attributes.Replace(models.NewAttribute(AttrLastUpdate, formatTime(sample.Update)))
	}

	switch {
	case rec.FirstPublic != nil:
		sample.Release = rec.FirstPublic.UTC()
		sample.Attributes.Replace(models.NewAttribute(AttrFirstPublic, formatTime(sample.Release)))
	case status == StatusPrivate:
		sample.Release = now.AddDate(EmbargoPeriod, 0, 0)
	default:
		sample.Release = now
	}

	if rec.FirstCreated != nil {
		created := rec.FirstCreated.UTC()
		submitted := created
		sample.Create = &created
		sample.Submitted = &submitted
	}
}

func (s *Service) assignOwner(sample *models.Sample, rec *erapro.SampleRecord, isNCBI bool) {
	if !isNCBI {
		sample.Domain = s.opts.ENADomain
		sample.WebinSubmissionAccountID = ""
		return
	}
	sample.Domain = ""
	sample.WebinSubmissionAccountID = rec.SubmitterID
	if sample.WebinSubmissionAccountID == "" {
		sample.WebinSubmissionAccountID = s.opts.WebinSuperuser
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
