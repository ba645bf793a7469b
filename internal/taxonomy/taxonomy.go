// Package taxonomy resolves NCBI taxon ids to ontology terms.
package taxonomy

import (
	"strconv"
	"strings"
)

const iriPrefix = "http://purl.obolibrary.org/obo/NCBITaxon_"

// IRI returns the OBO term for taxonID, or "" when the id is not usable.
func IRI(taxonID int64) string {
	if taxonID <= 0 {
		return ""
	}
	return iriPrefix + strconv.FormatInt(taxonID, 10)
}

// TaxonID extracts the numeric id from an NCBITaxon IRI.
func TaxonID(iri string) (int64, bool) {
	if !strings.HasPrefix(iri, iriPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(iri, iriPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
