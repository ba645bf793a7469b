package testutil

import (
	"fmt"

	"github.com/nishad/enaimport/internal/erapro"
)

// Fixture data for tests

// SampleXML returns a small sample document with alias, SRA accession and a
// human taxon.
func SampleXML(alias, sraAccession string) string {
	return fmt.Sprintf(`<SAMPLE_SET><SAMPLE alias=%q accession=%q center_name="WTSI">
  <IDENTIFIERS><PRIMARY_ID>%s</PRIMARY_ID></IDENTIFIERS>
  <TITLE>Test sample %s</TITLE>
  <SAMPLE_NAME><TAXON_ID>9606</TAXON_ID><SCIENTIFIC_NAME>Homo sapiens</SCIENTIFIC_NAME></SAMPLE_NAME>
  <SAMPLE_ATTRIBUTES>
    <SAMPLE_ATTRIBUTE><TAG>tissue</TAG><VALUE>liver</VALUE></SAMPLE_ATTRIBUTE>
  </SAMPLE_ATTRIBUTES>
</SAMPLE></SAMPLE_SET>`, alias, sraAccession, sraAccession, alias)
}

// PublicRow returns an importable public row updated on day.
func PublicRow(biosampleID, sraAccession, day string) erapro.Row {
	return erapro.Row{
		BioSampleID: biosampleID,
		SampleID:    sraAccession,
		StatusID:    erapro.StatusPublic,
		XML:         SampleXML("alias-"+biosampleID, sraAccession),
		FirstPublic: DayPtr(day),
		LastUpdated: DayPtr(day),
		SubmitterID: "Webin-1",
	}
}

// StatusRow returns a row with the given status and no dates.
func StatusRow(biosampleID string, status int) erapro.Row {
	return erapro.Row{
		BioSampleID: biosampleID,
		StatusID:    status,
		XML:         SampleXML("alias-"+biosampleID, "ERS-"+biosampleID),
	}
}
