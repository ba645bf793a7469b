package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nishad/enaimport/internal/erapro"
	apperrors "github.com/nishad/enaimport/internal/errors"
)

type fakeSource struct {
	records  map[string]*erapro.SampleRecord
	metadata map[string]erapro.Metadata
	err      error
}

func (f *fakeSource) GetRecord(_ context.Context, acc string) (*erapro.SampleRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[acc], nil
}

func (f *fakeSource) GetMetadata(_ context.Context, acc string) (erapro.Metadata, error) {
	return f.metadata[acc], nil
}

const minimalXML = `<SAMPLE alias="foo" accession="ERS123"><IDENTIFIERS/><SAMPLE_NAME><TAXON_ID>9606</TAXON_ID></SAMPLE_NAME></SAMPLE>`

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newService(rec *erapro.SampleRecord) *Service {
	src := &fakeSource{
		records:  map[string]*erapro.SampleRecord{rec.Accession: rec},
		metadata: map[string]erapro.Metadata{},
	}
	svc := New(src, Options{ENADomain: "self.ENA", WebinSuperuser: "Webin-40894"}, nil)
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func TestStatusFromIDIsTotal(t *testing.T) {
	want := []Status{StatusDraft, StatusPrivate, StatusCancelled, StatusPublic,
		StatusSuppressed, StatusKilled, StatusTemporarySuppressed, StatusTemporaryKilled}
	for i, w := range want {
		got, err := StatusFromID(i + 1)
		if err != nil || got != w {
			t.Errorf("StatusFromID(%d) = %q, %v; want %q", i+1, got, err, w)
		}
	}
	for _, bad := range []int{0, 9, -1} {
		_, err := StatusFromID(bad)
		if err == nil || !apperrors.IsKind(err, apperrors.KindStatus) || !apperrors.IsFatal(err) {
			t.Errorf("StatusFromID(%d) should be a fatal status error, got %v", bad, err)
		}
	}
}

func TestIsNCBI(t *testing.T) {
	tests := map[string]bool{
		"SAMN01": true, "SAMD01": true, "SRS1": true, "DRS1": true,
		"SAMEA1": false, "ERS1": false,
	}
	for acc, want := range tests {
		if got := IsNCBI(acc); got != want {
			t.Errorf("IsNCBI(%s) = %v", acc, got)
		}
	}
}

func TestEnrichMinimalPublicSample(t *testing.T) {
	svc := newService(&erapro.SampleRecord{Accession: "ERS123", XML: minimalXML, StatusID: 4})

	s, err := svc.EnrichSample(context.Background(), "ERS123", false)
	if err != nil {
		t.Fatalf("EnrichSample: %v", err)
	}
	if s.Accession != "ERS123" {
		t.Errorf("accession = %q", s.Accession)
	}
	if a, ok := s.Attributes.Get("SRA accession"); !ok || a.Value != "ERS123" {
		t.Errorf("SRA accession = %+v", a)
	}
	org, ok := s.Attributes.Get("organism")
	if !ok || len(org.IRI) != 1 || org.IRI[0] != "http://purl.obolibrary.org/obo/NCBITaxon_9606" {
		t.Errorf("organism = %+v", org)
	}
	if a, ok := s.Attributes.Get(AttrStatus); !ok || a.Value != "public" {
		t.Errorf("status = %+v", a)
	}
	if !s.Release.Equal(fixedNow) {
		t.Errorf("release = %v, want now", s.Release)
	}
	if s.Domain != "self.ENA" || s.WebinSubmissionAccountID != "" {
		t.Errorf("owner domain=%q webin=%q", s.Domain, s.WebinSubmissionAccountID)
	}
	if len(s.ExternalReferences) != 1 || s.ExternalReferences[0].URL != "https://www.ebi.ac.uk/ena/browser/view/ERS123" {
		t.Errorf("external references = %+v", s.ExternalReferences)
	}
	if s.StructuredData != nil {
		t.Error("structured data must be cleared")
	}
}

func TestReleasePolicy(t *testing.T) {
	public := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		status      int
		firstPublic *time.Time
		check       func(t *testing.T, release time.Time)
	}{
		{"private embargoed", 2, nil, func(t *testing.T, r time.Time) {
			if !r.After(fixedNow.AddDate(99, 0, 0)) {
				t.Errorf("release %v not embargoed", r)
			}
			if r.Before(time.Date(2123, 1, 1, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("release %v before 2123", r)
			}
		}},
		{"public now", 4, nil, func(t *testing.T, r time.Time) {
			if d := r.Sub(fixedNow); d < -5*time.Second || d > 5*time.Second {
				t.Errorf("release %v not now", r)
			}
		}},
		{"first public wins", 2, &public, func(t *testing.T, r time.Time) {
			if !r.Equal(public) {
				t.Errorf("release %v, want %v", r, public)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(&erapro.SampleRecord{Accession: "SAMEA1", XML: minimalXML, StatusID: tt.status, FirstPublic: tt.firstPublic})
			s, err := svc.EnrichSample(context.Background(), "SAMEA1", false)
			if err != nil {
				t.Fatalf("EnrichSample: %v", err)
			}
			tt.check(t, s.Release)
		})
	}
}

func TestEnrichDatesAndCreate(t *testing.T) {
	public := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(&erapro.SampleRecord{
		Accession: "SAMEA1", XML: minimalXML, StatusID: 5,
		FirstPublic: &public, LastUpdated: &updated, FirstCreated: &created,
	})

	s, err := svc.EnrichSample(context.Background(), "SAMEA1", false)
	if err != nil {
		t.Fatalf("EnrichSample: %v", err)
	}
	if !s.Update.Equal(updated) {
		t.Errorf("update = %v", s.Update)
	}
	if a, _ := s.Attributes.Get(AttrLastUpdate); a.Value != "2020-06-01T12:00:00Z" {
		t.Errorf("last update attribute = %q", a.Value)
	}
	if a, _ := s.Attributes.Get(AttrFirstPublic); a.Value != "2019-05-01T00:00:00Z" {
		t.Errorf("first public attribute = %q", a.Value)
	}
	if s.Create == nil || !s.Create.Equal(created) || s.Submitted == nil || !s.Submitted.Equal(created) {
		t.Errorf("create=%v submitted=%v", s.Create, s.Submitted)
	}
	if a, _ := s.Attributes.Get(AttrStatus); a.Value != "suppressed" {
		t.Errorf("status = %q", a.Value)
	}
}

func TestEnrichStatusReplacesExisting(t *testing.T) {
	xml := `<SAMPLE alias="foo"><SAMPLE_ATTRIBUTES><SAMPLE_ATTRIBUTE><TAG>INSDC status</TAG><VALUE>live</VALUE></SAMPLE_ATTRIBUTE></SAMPLE_ATTRIBUTES></SAMPLE>`
	svc := newService(&erapro.SampleRecord{Accession: "SAMEA1", XML: xml, StatusID: 6})

	s, err := svc.EnrichSample(context.Background(), "SAMEA1", false)
	if err != nil {
		t.Fatalf("EnrichSample: %v", err)
	}
	n := 0
	for _, a := range s.Attributes.All() {
		if a.Type == AttrStatus {
			n++
			if a.Value != "killed" {
				t.Errorf("status = %q", a.Value)
			}
		}
	}
	if n != 1 {
		t.Errorf("expected exactly one status attribute, got %d", n)
	}
}

func TestEnrichNCBIOwnership(t *testing.T) {
	tests := []struct {
		submitter string
		want      string
	}{
		{"Webin-123", "Webin-123"},
		{"", "Webin-40894"},
	}
	for _, tt := range tests {
		svc := newService(&erapro.SampleRecord{Accession: "SAMN1", XML: minimalXML, StatusID: 4, SubmitterID: tt.submitter})
		s, err := svc.EnrichSample(context.Background(), "SAMN1", true)
		if err != nil {
			t.Fatalf("EnrichSample: %v", err)
		}
		if s.Domain != "" || s.WebinSubmissionAccountID != tt.want {
			t.Errorf("domain=%q webin=%q, want webin %q", s.Domain, s.WebinSubmissionAccountID, tt.want)
		}
	}
}

func TestEnrichFailures(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		svc := newService(&erapro.SampleRecord{Accession: "SAMEA1", XML: minimalXML, StatusID: 4})
		s, err := svc.EnrichSample(context.Background(), "SAMEA404", false)
		if s != nil || err != nil {
			t.Errorf("got %v, %v; want nil, nil", s, err)
		}
	})

	t.Run("parse", func(t *testing.T) {
		svc := newService(&erapro.SampleRecord{Accession: "SAMEA1", XML: "<SAMPLE", StatusID: 4})
		_, err := svc.EnrichSample(context.Background(), "SAMEA1", false)
		if !apperrors.IsKind(err, apperrors.KindParse) || !apperrors.IsFatal(err) {
			t.Errorf("expected fatal parse error, got %v", err)
		}
	})

	t.Run("status", func(t *testing.T) {
		svc := newService(&erapro.SampleRecord{Accession: "SAMEA1", XML: minimalXML, StatusID: 42})
		_, err := svc.EnrichSample(context.Background(), "SAMEA1", false)
		if !apperrors.IsKind(err, apperrors.KindStatus) || !apperrors.IsFatal(err) {
			t.Errorf("expected fatal status error, got %v", err)
		}
	})

	t.Run("source", func(t *testing.T) {
		boom := errors.New("connection refused")
		svc := New(&fakeSource{err: boom}, Options{}, nil)
		_, err := svc.EnrichSample(context.Background(), "SAMEA1", false)
		if !errors.Is(err, boom) {
			t.Errorf("expected source error, got %v", err)
		}
	})
}

func TestEnrichAppliesRules(t *testing.T) {
	xml := `<SAMPLE accession="ERS1" center_name="Sanger"><IDENTIFIERS><SUBMITTER_ID>x</SUBMITTER_ID></IDENTIFIERS></SAMPLE>`
	rec := &erapro.SampleRecord{Accession: "SAMEA1", XML: xml, StatusID: 4}
	src := &fakeSource{
		records:  map[string]*erapro.SampleRecord{"SAMEA1": rec},
		metadata: map[string]erapro.Metadata{"SAMEA1": {BioSampleID: "SAMEA1", BrokerName: "EBI", CentreName: "WTSI"}},
	}
	svc := New(src, Options{ENADomain: "self.ENA"}, nil)

	s, err := svc.EnrichSample(context.Background(), "SAMEA1", false)
	if err != nil {
		t.Fatalf("EnrichSample: %v", err)
	}
	if a, _ := s.Attributes.Get("broker name"); a.Value != "EBI" {
		t.Errorf("broker = %q", a.Value)
	}
	if a, _ := s.Attributes.Get("INSDC center name"); a.Value != "WTSI" {
		t.Errorf("centre = %q", a.Value)
	}
	if a, _ := s.Attributes.Get("INSDC center alias"); a.Value != "Sanger" {
		t.Errorf("centre alias = %q", a.Value)
	}
	if _, ok := s.Attributes.Get("Submitter Id"); ok {
		t.Error("submitter id without alias should be removed by the rules")
	}
}
