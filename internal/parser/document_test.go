package parser

import (
	"strings"
	"testing"

	apperrors "github.com/nishad/enaimport/internal/errors"
)

const fullSample = `<?xml version="1.0" encoding="UTF-8"?>
<SAMPLE_SET>
  <SAMPLE alias="liver-1" accession="ERS000789" center_name="WTSI" broker_name="BROKER">
    <IDENTIFIERS>
      <PRIMARY_ID>ERS000789</PRIMARY_ID>
      <EXTERNAL_ID namespace="BioSample">SAMEA000789</EXTERNAL_ID>
      <SUBMITTER_ID namespace="WTSI">liver-1</SUBMITTER_ID>
      <UUID>5d1e2c1a-0000-4000-8000-000000000001</UUID>
    </IDENTIFIERS>
    <TITLE>Liver biopsy</TITLE>
    <SAMPLE_NAME>
      <TAXON_ID> 9606 </TAXON_ID>
      <SCIENTIFIC_NAME>Homo sapiens</SCIENTIFIC_NAME>
      <COMMON_NAME>human</COMMON_NAME>
    </SAMPLE_NAME>
    <DESCRIPTION>Tissue from patient 1</DESCRIPTION>
    <SAMPLE_LINKS>
      <SAMPLE_LINK><URL_LINK><LABEL>old</LABEL><URL>http://example.org</URL></URL_LINK></SAMPLE_LINK>
      <SAMPLE_LINK><XREF_LINK><DB>pubmed_id</DB><ID>12345</ID></XREF_LINK></SAMPLE_LINK>
    </SAMPLE_LINKS>
    <SAMPLE_ATTRIBUTES>
      <SAMPLE_ATTRIBUTE><TAG>age</TAG><VALUE>42</VALUE><UNITS>years</UNITS></SAMPLE_ATTRIBUTE>
      <SAMPLE_ATTRIBUTE><TAG>ENA-CHECKLIST</TAG><VALUE>ERC000011</VALUE></SAMPLE_ATTRIBUTE>
    </SAMPLE_ATTRIBUTES>
  </SAMPLE>
</SAMPLE_SET>`

func TestParseSampleSet(t *testing.T) {
	s, err := Parse(fullSample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if s.Alias != "liver-1" || s.Accession != "ERS000789" || s.CenterName != "WTSI" {
		t.Errorf("unexpected top-level attributes: %+v", s)
	}
	if s.SampleName == nil || s.SampleName.TaxonID != 9606 {
		t.Errorf("expected taxon 9606, got %+v", s.SampleName)
	}
	if !s.HasExternalID(NamespaceBioSample) {
		t.Error("expected BioSample external id")
	}
	if len(s.SampleLinks.Links) != 2 || s.SampleLinks.Links[0].URLLink == nil {
		t.Errorf("unexpected links: %+v", s.SampleLinks)
	}
	if got := GetAttributeValue(s.Attributes(), "age"); got != "42" {
		t.Errorf("age = %q", got)
	}
}

func TestParseBareSample(t *testing.T) {
	s, err := Parse(`<SAMPLE alias="foo" accession="ERS123"><IDENTIFIERS/><SAMPLE_NAME><TAXON_ID>9606</TAXON_ID></SAMPLE_NAME></SAMPLE>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Alias != "foo" || s.Identifiers == nil || s.SampleName.TaxonID != 9606 {
		t.Errorf("unexpected sample %+v", s)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"truncated", "<SAMPLE alias=\"x\"><IDENTIFIERS>"},
		{"wrong root", "<STUDY/>"},
		{"lowercase root", "<sample alias=\"x\"/>"},
		{"lowercase set", "<sample_set><SAMPLE/></sample_set>"},
		{"empty set", "<SAMPLE_SET></SAMPLE_SET>"},
		{"bad taxon", "<SAMPLE><SAMPLE_NAME><TAXON_ID>human</TAXON_ID></SAMPLE_NAME></SAMPLE>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperrors.IsKind(err, apperrors.KindParse) {
				t.Errorf("expected parse kind, got %v", apperrors.GetKind(err))
			}
			if !apperrors.IsFatal(err) {
				t.Error("parse errors should be fatal")
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s, err := Parse(fullSample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cp := s.Clone()
	cp.Identifiers.SubmitterIDs = nil
	cp.SampleLinks.Links[1].XRefLink.ID = "changed"
	cp.SetAttribute("age", "1")
	cp.SampleName.CommonName = "changed"

	if len(s.Identifiers.SubmitterIDs) != 1 {
		t.Error("clone shares identifiers")
	}
	if s.SampleLinks.Links[1].XRefLink.ID != "12345" {
		t.Error("clone shares links")
	}
	if GetAttributeValue(s.Attributes(), "age") != "42" {
		t.Error("clone shares attributes")
	}
	if s.SampleName.CommonName != "human" {
		t.Error("clone shares sample name")
	}
}

func TestSetAttributeReplaces(t *testing.T) {
	s := &Sample{}
	s.SetAttribute(TagFirstPublic, "2020-01-01")
	s.SetAttribute(TagFirstPublic, "2021-01-01")

	if n := len(s.Attributes()); n != 1 {
		t.Fatalf("expected one attribute, got %d", n)
	}
	if got := GetAttributeValue(s.Attributes(), TagFirstPublic); got != "2021-01-01" {
		t.Errorf("got %q", got)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	s, err := Parse(fullSample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := s.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasPrefix(out, "<SAMPLE ") {
		t.Errorf("unexpected output prefix: %.40s", out)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	out2, _ := again.Marshal()
	if out != out2 {
		t.Errorf("marshal not stable:\n%s\n%s", out, out2)
	}
}
