// Package converter maps a normalized ENA sample document onto the
// BioSamples sample model.
package converter

import (
	"strconv"
	"strings"

	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/logger"
	"github.com/nishad/enaimport/internal/models"
	"github.com/nishad/enaimport/internal/parser"
	"github.com/nishad/enaimport/internal/taxonomy"
)

// Attribute types written by the converter.
const (
	AttrSRAAccession      = "SRA accession"
	AttrBrokerName        = "broker name"
	AttrCenterName        = "INSDC center name"
	AttrCenterAlias       = "INSDC center alias"
	AttrTitle             = "title"
	AttrDescription       = "description"
	AttrSubmitterID       = "Submitter Id"
	AttrExternalID        = "External Id"
	AttrSecondaryID       = "Secondary Id"
	AttrUUID              = "uuid"
	AttrAnonymizedName    = "anonymized name"
	AttrIndividualName    = "individual name"
	AttrOrganism          = "organism"
	AttrScientificName    = "scientific_name"
	AttrCommonName        = "common name"
	MissingAttributeValue = "unknown"
)

const (
	pubmedTag          = "pubmed_id"
	internalTagPrefix  = "ENA-"
	identifiersOrgBase = "https://identifiers.org/"
)

// Converter turns sample documents into BioSamples samples.
type Converter struct {
	log *logger.Logger
}

// New creates a converter. A nil logger discards output.
func New(log *logger.Logger) *Converter {
	if log == nil {
		log = logger.Nop()
	}
	return &Converter{log: log.With("component", "converter")}
}

// Convert builds the base sample for accession. Status and date attributes
// are left to the enrichment step.
//
// NCBI and DDBJ documents carry no ENA centre normalization, so the centre
// alias is only recorded for ENA-sourced samples.
func (c *Converter) Convert(doc *parser.Sample, accession string, isNCBI bool) (*models.Sample, error) {
	const op = apperrors.Op("converter.Convert")
	if doc == nil {
		return nil, apperrors.MarkFatal(apperrors.E(op, apperrors.KindValidation, "nil document"))
	}

	s := &models.Sample{Accession: accession}
	if s.Accession == "" {
		s.Accession = bioSampleID(doc)
	}
	s.Name = sampleName(doc, s.Accession)

	if doc.Accession != "" {
		s.Attributes.Add(models.NewAttribute(AttrSRAAccession, doc.Accession))
	}
	addIfSet(s, AttrBrokerName, doc.BrokerName)
	addIfSet(s, AttrCenterName, doc.CenterName)
	if !isNCBI {
		addIfSet(s, AttrCenterAlias, doc.CenterAlias)
	}

	title := firstNonBlank(doc.Title)
	if doc.SampleName != nil {
		title = firstNonBlank(doc.Title, doc.SampleName.ScientificName)
	}
	addIfSet(s, AttrTitle, title)
	addIfSet(s, AttrDescription, strings.TrimSpace(doc.Description))

	c.convertIdentifiers(doc, s)
	convertSampleName(doc, s)

	skips := apperrors.NewSkipCounter(string(op))
	c.convertAttributes(doc, s, skips)
	convertLinks(doc, s, skips)
	if msg := skips.Summary(); msg != "" {
		c.log.Warn("malformed sample content skipped", "accession", s.Accession, "summary", msg)
	}
	return s, nil
}

func (c *Converter) convertIdentifiers(doc *parser.Sample, s *models.Sample) {
	ids := doc.Identifiers
	if ids == nil {
		return
	}
	synonym := func(typ, value, tag string) {
		value = strings.TrimSpace(value)
		if value == "" || value == s.Name || value == s.Accession {
			return
		}
		s.Attributes.Add(models.NewAttribute(typ, value).WithTag(tag))
	}
	for _, id := range ids.SubmitterIDs {
		synonym(AttrSubmitterID, id.Value, id.Namespace)
	}
	for _, id := range ids.ExternalIDs {
		if id.Namespace == parser.NamespaceBioSample {
			continue
		}
		synonym(AttrExternalID, id.Value, id.Namespace)
	}
	for _, id := range ids.SecondaryIDs {
		synonym(AttrSecondaryID, id.Value, "")
	}
	for _, id := range ids.UUIDs {
		synonym(AttrUUID, id.Value, "")
	}
	if doc.SampleName != nil {
		synonym(AttrAnonymizedName, doc.SampleName.AnonymizedName, "")
		synonym(AttrIndividualName, doc.SampleName.IndividualName, "")
	}
}

func convertSampleName(doc *parser.Sample, s *models.Sample) {
	sn := doc.SampleName
	if sn == nil {
		return
	}
	var iri []string
	if sn.TaxonID > 0 {
		tax := sn.TaxonID
		s.TaxID = &tax
		iri = append(iri, taxonomy.IRI(tax))
	}

	if name := strings.TrimSpace(sn.ScientificName); name != "" {
		s.Attributes.Add(models.NewAttribute(AttrOrganism, name, iri...))
		s.Attributes.Add(models.NewAttribute(AttrScientificName, name, iri...))
	} else if sn.TaxonID > 0 {
		s.Attributes.Add(models.NewAttribute(AttrOrganism, strconv.FormatInt(sn.TaxonID, 10), iri...))
	}
	addIfSet(s, AttrCommonName, strings.TrimSpace(sn.CommonName))
}

func (c *Converter) convertAttributes(doc *parser.Sample, s *models.Sample, skips *apperrors.SkipCounter) {
	for _, a := range doc.Attributes() {
		tag := strings.TrimSpace(a.Tag)
		value := strings.TrimSpace(a.Value)
		switch {
		case tag == "":
			skips.Skip(apperrors.New("attribute without tag"), value)
		case strings.EqualFold(tag, pubmedTag):
			if value == "" {
				skips.Skip(apperrors.New("empty pubmed id"), tag)
				continue
			}
			s.AddPublication(models.Publication{PubMedID: value})
		case strings.HasPrefix(tag, internalTagPrefix):
			// bookkeeping written by the rules, not submitter content
		default:
			if value == "" {
				value = MissingAttributeValue
			}
			s.Attributes.Add(models.NewAttribute(tag, value).WithUnit(strings.TrimSpace(a.Units)))
		}
	}
}

func convertLinks(doc *parser.Sample, s *models.Sample, skips *apperrors.SkipCounter) {
	if doc.SampleLinks == nil {
		return
	}
	for _, l := range doc.SampleLinks.Links {
		if l.URILink != nil {
			label := strings.TrimSpace(l.URILink.Label)
			url := strings.TrimSpace(l.URILink.URL)
			if label == "" || url == "" {
				skips.Skip(apperrors.New("incomplete URI_LINK"), label+" "+url)
				continue
			}
			s.Attributes.Add(models.NewAttribute(label, url))
		}
		for _, x := range []*parser.XRef{l.XRefLink, l.EntrezLink} {
			if x == nil {
				continue
			}
			db := strings.TrimSpace(x.DB)
			id := strings.TrimSpace(x.ID)
			if db == "" || id == "" {
				skips.Skip(apperrors.New("incomplete XREF_LINK"), db+":"+id)
				continue
			}
			if isPubMed(db) {
				s.AddPublication(models.Publication{PubMedID: id})
				continue
			}
			s.AddExternalReference(models.ExternalReference{URL: identifiersOrgBase + strings.ToLower(db) + ":" + id})
		}
	}
}

func isPubMed(db string) bool {
	return strings.EqualFold(db, pubmedTag) || strings.EqualFold(db, "pubmed")
}

func sampleName(doc *parser.Sample, accession string) string {
	var primary string
	if doc.Identifiers != nil && doc.Identifiers.PrimaryID != nil {
		primary = doc.Identifiers.PrimaryID.Value
	}
	if name := firstNonBlank(doc.Alias, doc.Accession, primary); name != "" {
		return name
	}
	return accession
}

func bioSampleID(doc *parser.Sample) string {
	if doc.Identifiers == nil {
		return ""
	}
	for _, id := range doc.Identifiers.ExternalIDs {
		if id.Namespace == parser.NamespaceBioSample {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

func addIfSet(s *models.Sample, typ, value string) {
	if value != "" {
		s.Attributes.Add(models.NewAttribute(typ, value))
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
