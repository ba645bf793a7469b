package rules

import (
	"testing"

	"github.com/nishad/enaimport/internal/erapro"
	"github.com/nishad/enaimport/internal/parser"
)

const doc = `<SAMPLE accession="ERS000789" center_name="Sanger">
  <IDENTIFIERS>
    <PRIMARY_ID>ERS000789</PRIMARY_ID>
    <SUBMITTER_ID>liver-1</SUBMITTER_ID>
  </IDENTIFIERS>
  <SAMPLE_LINKS>
    <SAMPLE_LINK><URL_LINK><LABEL>old</LABEL><URL>http://example.org</URL></URL_LINK></SAMPLE_LINK>
    <SAMPLE_LINK><XREF_LINK><DB>pubmed_id</DB><ID>12345</ID></XREF_LINK></SAMPLE_LINK>
  </SAMPLE_LINKS>
</SAMPLE>`

func mustParse(t *testing.T, raw string) *parser.Sample {
	t.Helper()
	s, err := parser.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func mustMarshal(t *testing.T, s *parser.Sample) string {
	t.Helper()
	out, err := s.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return out
}

var fullMetadata = erapro.Metadata{
	BioSampleID: "SAMEA000789",
	BrokerName:  "EBI",
	CentreName:  "WTSI",
	FirstPublic: "2020-01-01T00:00:00Z",
	LastUpdated: "2021-01-01T00:00:00Z",
}

func TestApplyAllIsIdempotent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		md   erapro.Metadata
	}{
		{"no alias with submitter id", doc, fullMetadata},
		{"empty metadata", doc, erapro.Metadata{}},
		{"with alias", `<SAMPLE alias="a" accession="SRS1" center_name="C"><IDENTIFIERS><SUBMITTER_ID>a</SUBMITTER_ID></IDENTIFIERS></SAMPLE>`, fullMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := ApplyAll(mustParse(t, tt.raw), tt.md)
			twice := ApplyAll(once, tt.md)
			if a, b := mustMarshal(t, once), mustMarshal(t, twice); a != b {
				t.Errorf("second pass changed the document:\n%s\n%s", a, b)
			}
		})
	}
}

func TestApplyAllLeavesInputUntouched(t *testing.T) {
	in := mustParse(t, doc)
	before := mustMarshal(t, in)
	ApplyAll(in, fullMetadata)
	if after := mustMarshal(t, in); after != before {
		t.Error("ApplyAll modified its input")
	}
}

func TestStandardOrder(t *testing.T) {
	want := []string{"alias", "namespace", "broker", "link-removal", "center-name", "dates", "biosample-id"}
	got := Standard().Names()
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rule %d = %s, want %s", i, got[i], want[i])
		}
	}
	if n := len(WithFixedTaxonomy()); n != len(want)+1 {
		t.Errorf("extended chain has %d rules", n)
	}
}

func TestAlias(t *testing.T) {
	s := Alias(mustParse(t, doc), erapro.Metadata{})
	if len(s.Identifiers.SubmitterIDs) != 0 {
		t.Error("SUBMITTER_ID should be removed without alias")
	}

	s = Alias(mustParse(t, `<SAMPLE alias="x"><IDENTIFIERS><SUBMITTER_ID>x</SUBMITTER_ID></IDENTIFIERS></SAMPLE>`), erapro.Metadata{})
	if len(s.Identifiers.SubmitterIDs) != 1 {
		t.Error("SUBMITTER_ID should be kept with alias")
	}
}

func TestNamespace(t *testing.T) {
	s := Namespace(mustParse(t, doc), erapro.Metadata{})
	if ns := s.Identifiers.SubmitterIDs[0].Namespace; ns != "Sanger" {
		t.Errorf("namespace = %q", ns)
	}

	s = Namespace(mustParse(t, `<SAMPLE center_name="C"><IDENTIFIERS><SUBMITTER_ID namespace="N">x</SUBMITTER_ID></IDENTIFIERS></SAMPLE>`), erapro.Metadata{})
	if ns := s.Identifiers.SubmitterIDs[0].Namespace; ns != "N" {
		t.Errorf("existing namespace overwritten: %q", ns)
	}
}

func TestBroker(t *testing.T) {
	tests := []struct {
		accession string
		md        erapro.Metadata
		want      string
	}{
		{"SRS000123", erapro.Metadata{BrokerName: "EBI"}, "NCBI"},
		{"SRS000123", erapro.Metadata{}, "NCBI"},
		{"DRS000456", erapro.Metadata{BrokerName: "EBI"}, "DDBJ"},
		{"ERS000789", erapro.Metadata{BrokerName: "EBI"}, "EBI"},
		{"ERS000789", erapro.Metadata{}, "ORIGINAL"},
		{"XYZ1", erapro.Metadata{BrokerName: "EBI"}, "ORIGINAL"},
	}
	for _, tt := range tests {
		t.Run(tt.accession+"/"+tt.md.BrokerName, func(t *testing.T) {
			s := &parser.Sample{Accession: tt.accession, BrokerName: "ORIGINAL"}
			if got := Broker(s, tt.md).BrokerName; got != tt.want {
				t.Errorf("broker = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoveURLLinks(t *testing.T) {
	s := RemoveURLLinks(mustParse(t, doc), erapro.Metadata{})
	if len(s.SampleLinks.Links) != 1 || s.SampleLinks.Links[0].XRefLink == nil {
		t.Errorf("unexpected links %+v", s.SampleLinks.Links)
	}
}

func TestCenterName(t *testing.T) {
	s := CenterName(mustParse(t, doc), fullMetadata)
	if s.CenterName != "WTSI" || s.CenterAlias != "Sanger" {
		t.Errorf("center = %q alias = %q", s.CenterName, s.CenterAlias)
	}

	s = CenterName(&parser.Sample{}, fullMetadata)
	if s.CenterName != "" || s.CenterAlias != "" {
		t.Error("rule should not create center_name")
	}
}

func TestDates(t *testing.T) {
	s := Dates(mustParse(t, doc), fullMetadata)
	if v := parser.GetAttributeValue(s.Attributes(), parser.TagFirstPublic); v != fullMetadata.FirstPublic {
		t.Errorf("first public = %q", v)
	}
	if v := parser.GetAttributeValue(s.Attributes(), parser.TagLastUpdate); v != fullMetadata.LastUpdated {
		t.Errorf("last update = %q", v)
	}

	s = Dates(mustParse(t, doc), erapro.Metadata{FirstPublic: "2020-01-01T00:00:00Z"})
	if len(s.Attributes()) != 0 {
		t.Error("dates should be skipped when one is missing")
	}
}

func TestBioSampleID(t *testing.T) {
	s := BioSampleID(mustParse(t, doc), fullMetadata)
	if !s.HasExternalID(parser.NamespaceBioSample) {
		t.Fatal("expected BioSample external id")
	}
	s = BioSampleID(s, fullMetadata)
	if n := len(s.Identifiers.ExternalIDs); n != 1 {
		t.Errorf("expected a single external id, got %d", n)
	}

	s = BioSampleID(&parser.Sample{}, fullMetadata)
	if !s.HasExternalID(parser.NamespaceBioSample) {
		t.Error("identifiers should be created when missing")
	}
}

func TestFixedTaxonomy(t *testing.T) {
	md := erapro.Metadata{FixedTaxonomy: true, FixedTaxonID: 10090, FixedScientificName: "Mus musculus"}
	s := FixedTaxonomy(mustParse(t, `<SAMPLE><SAMPLE_NAME><TAXON_ID>9606</TAXON_ID><SCIENTIFIC_NAME>Homo sapiens</SCIENTIFIC_NAME></SAMPLE_NAME></SAMPLE>`), md)
	if s.SampleName.TaxonID != 10090 || s.SampleName.ScientificName != "Mus musculus" {
		t.Errorf("unexpected sample name %+v", s.SampleName)
	}

	md.FixedTaxonomy = false
	s = FixedTaxonomy(&parser.Sample{}, md)
	if s.SampleName != nil {
		t.Error("unflagged rows should be left alone")
	}
}
