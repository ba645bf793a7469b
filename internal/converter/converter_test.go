package converter

import (
	"testing"

	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/parser"
)

const richSample = `<SAMPLE alias="liver-1" accession="ERS000789" center_name="WTSI" center_alias="Sanger" broker_name="EBI">
  <IDENTIFIERS>
    <PRIMARY_ID>ERS000789</PRIMARY_ID>
    <SECONDARY_ID>ERS-OLD-1</SECONDARY_ID>
    <EXTERNAL_ID namespace="BioSample">SAMEA000789</EXTERNAL_ID>
    <EXTERNAL_ID namespace="ArrayExpress">E-MTAB-1</EXTERNAL_ID>
    <SUBMITTER_ID namespace="WTSI">liver-1</SUBMITTER_ID>
    <SUBMITTER_ID namespace="WTSI">liver-1-b</SUBMITTER_ID>
    <UUID>5d1e2c1a-0000-4000-8000-000000000001</UUID>
  </IDENTIFIERS>
  <TITLE>  </TITLE>
  <SAMPLE_NAME>
    <TAXON_ID>9606</TAXON_ID>
    <SCIENTIFIC_NAME>Homo sapiens</SCIENTIFIC_NAME>
    <COMMON_NAME>human</COMMON_NAME>
    <ANONYMIZED_NAME>P1</ANONYMIZED_NAME>
    <INDIVIDUAL_NAME>patient one</INDIVIDUAL_NAME>
  </SAMPLE_NAME>
  <DESCRIPTION>Tissue from patient 1</DESCRIPTION>
  <SAMPLE_LINKS>
    <SAMPLE_LINK><URI_LINK><LABEL>protocol</LABEL><URL>https://example.org/p</URL></URI_LINK></SAMPLE_LINK>
    <SAMPLE_LINK><XREF_LINK><DB>PUBMED_ID</DB><ID>111</ID></XREF_LINK></SAMPLE_LINK>
    <SAMPLE_LINK><XREF_LINK><DB>ENA-STUDY</DB><ID>PRJEB1</ID></XREF_LINK></SAMPLE_LINK>
    <SAMPLE_LINK><XREF_LINK><DB></DB><ID>orphan</ID></XREF_LINK></SAMPLE_LINK>
  </SAMPLE_LINKS>
  <SAMPLE_ATTRIBUTES>
    <SAMPLE_ATTRIBUTE><TAG>age</TAG><VALUE>42</VALUE><UNITS>years</UNITS></SAMPLE_ATTRIBUTE>
    <SAMPLE_ATTRIBUTE><TAG>Pubmed_ID</TAG><VALUE>222</VALUE></SAMPLE_ATTRIBUTE>
    <SAMPLE_ATTRIBUTE><TAG>ENA-FIRST-PUBLIC</TAG><VALUE>2020-01-01</VALUE></SAMPLE_ATTRIBUTE>
    <SAMPLE_ATTRIBUTE><TAG>sex</TAG><VALUE></VALUE></SAMPLE_ATTRIBUTE>
  </SAMPLE_ATTRIBUTES>
</SAMPLE>`

func convert(t *testing.T, raw, accession string, isNCBI bool) *models.Sample {
	t.Helper()
	doc, err := parser.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s, err := New(nil).Convert(doc, accession, isNCBI)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return s
}

func attr(s *models.Sample, typ string) string {
	a, _ := s.Attributes.Get(typ)
	return a.Value
}

func count(s *models.Sample, typ string) int {
	n := 0
	for _, a := range s.Attributes.All() {
		if a.Type == typ {
			n++
		}
	}
	return n
}

func TestConvertRichSample(t *testing.T) {
	s := convert(t, richSample, "SAMEA000789", false)

	if s.Name != "liver-1" || s.Accession != "SAMEA000789" {
		t.Errorf("name=%q accession=%q", s.Name, s.Accession)
	}
	if s.TaxID == nil || *s.TaxID != 9606 {
		t.Errorf("taxid = %v", s.TaxID)
	}

	tests := []struct {
		typ  string
		want string
	}{
		{AttrSRAAccession, "ERS000789"},
		{AttrBrokerName, "EBI"},
		{AttrCenterName, "WTSI"},
		{AttrCenterAlias, "Sanger"},
		{AttrTitle, "Homo sapiens"},
		{AttrDescription, "Tissue from patient 1"},
		{AttrSecondaryID, "ERS-OLD-1"},
		{AttrExternalID, "E-MTAB-1"},
		{AttrSubmitterID, "liver-1-b"},
		{AttrUUID, "5d1e2c1a-0000-4000-8000-000000000001"},
		{AttrAnonymizedName, "P1"},
		{AttrIndividualName, "patient one"},
		{AttrOrganism, "Homo sapiens"},
		{AttrScientificName, "Homo sapiens"},
		{AttrCommonName, "human"},
		{"age", "42"},
		{"sex", MissingAttributeValue},
		{"protocol", "https://example.org/p"},
	}
	for _, tt := range tests {
		if got := attr(s, tt.typ); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.typ, got, tt.want)
		}
	}

	if n := count(s, AttrSubmitterID); n != 1 {
		t.Errorf("submitter id equal to the name should be skipped, got %d", n)
	}
	if n := count(s, AttrExternalID); n != 1 {
		t.Errorf("BioSample external id must not be a synonym, got %d external ids", n)
	}
	if n := count(s, "ENA-FIRST-PUBLIC"); n != 0 {
		t.Error("ENA- tags should be dropped")
	}
	if n := count(s, "Pubmed_ID"); n != 0 {
		t.Error("pubmed attribute should become a publication")
	}

	age, _ := s.Attributes.Get("age")
	if age.Unit != "years" {
		t.Errorf("age unit = %q", age.Unit)
	}
	org, _ := s.Attributes.Get(AttrOrganism)
	if len(org.IRI) != 1 || org.IRI[0] != "http://purl.obolibrary.org/obo/NCBITaxon_9606" {
		t.Errorf("organism IRI = %v", org.IRI)
	}
	sub, _ := s.Attributes.Get(AttrSubmitterID)
	if sub.Tag != "WTSI" {
		t.Errorf("submitter namespace tag = %q", sub.Tag)
	}

	if len(s.Publications) != 2 || s.Publications[0].PubMedID != "111" || s.Publications[1].PubMedID != "222" {
		t.Errorf("publications = %+v", s.Publications)
	}
	if len(s.ExternalReferences) != 1 || s.ExternalReferences[0].URL != "https://identifiers.org/ena-study:PRJEB1" {
		t.Errorf("external references = %+v", s.ExternalReferences)
	}
}

func TestConvertMinimalSample(t *testing.T) {
	s := convert(t, `<SAMPLE alias="foo" accession="ERS123"><IDENTIFIERS/><SAMPLE_NAME><TAXON_ID>9606</TAXON_ID></SAMPLE_NAME></SAMPLE>`, "ERS123", false)

	if s.Accession != "ERS123" || s.Name != "foo" {
		t.Errorf("accession=%q name=%q", s.Accession, s.Name)
	}
	if attr(s, AttrSRAAccession) != "ERS123" {
		t.Error("missing SRA accession attribute")
	}
	org, ok := s.Attributes.Get(AttrOrganism)
	if !ok || org.Value != "9606" || len(org.IRI) != 1 {
		t.Errorf("organism = %+v", org)
	}
	if count(s, AttrScientificName) != 0 || count(s, AttrTitle) != 0 {
		t.Error("no scientific name should mean no scientific_name or title")
	}
}

func TestConvertNameFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		acc  string
		want string
	}{
		{"alias", `<SAMPLE alias="a" accession="ERS1"/>`, "SAMEA1", "a"},
		{"sra accession", `<SAMPLE accession="ERS1"/>`, "SAMEA1", "ERS1"},
		{"primary id", `<SAMPLE><IDENTIFIERS><PRIMARY_ID>ERS9</PRIMARY_ID></IDENTIFIERS></SAMPLE>`, "SAMEA1", "ERS9"},
		{"accession", `<SAMPLE/>`, "SAMEA1", "SAMEA1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convert(t, tt.raw, tt.acc, false).Name; got != tt.want {
				t.Errorf("name = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvertUsesBioSampleIDWhenAccessionMissing(t *testing.T) {
	s := convert(t, richSample, "", false)
	if s.Accession != "SAMEA000789" {
		t.Errorf("accession = %q", s.Accession)
	}
}

func TestConvertNCBISkipsCenterAlias(t *testing.T) {
	s := convert(t, richSample, "SAMEA000789", true)
	if count(s, AttrCenterAlias) != 0 {
		t.Error("NCBI samples should not carry an ENA centre alias")
	}
	if attr(s, AttrCenterName) != "WTSI" {
		t.Error("centre name should still be recorded")
	}
}

func TestConvertNilDocument(t *testing.T) {
	if _, err := New(nil).Convert(nil, "SAMEA1", false); err == nil {
		t.Error("expected error for nil document")
	}
}
