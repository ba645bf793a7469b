// Package rules normalizes ENA sample documents before conversion.
//
// Each rule inspects one concern of the document and rewrites it using the
// side-channel metadata from ERAPRO. Rules are guarded by existence checks,
// so running a chain twice gives the same document as running it once.
package rules

import (
	"strings"

	"github.com/nishad/enaimport/internal/erapro"
	"github.com/nishad/enaimport/internal/parser"
)

// Rule rewrites one aspect of a sample document.
type Rule interface {
	Name() string
	Apply(doc *parser.Sample, md erapro.Metadata) *parser.Sample
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(doc *parser.Sample, md erapro.Metadata) *parser.Sample
}

func (r RuleFunc) Name() string { return r.RuleName }

func (r RuleFunc) Apply(doc *parser.Sample, md erapro.Metadata) *parser.Sample {
	return r.Fn(doc, md)
}

// Chain is an ordered list of rules.
type Chain []Rule

// Standard returns the default rule chain in application order.
func Standard() Chain {
	return Chain{
		RuleFunc{"alias", Alias},
		RuleFunc{"namespace", Namespace},
		RuleFunc{"broker", Broker},
		RuleFunc{"link-removal", RemoveURLLinks},
		RuleFunc{"center-name", CenterName},
		RuleFunc{"dates", Dates},
		RuleFunc{"biosample-id", BioSampleID},
	}
}

// WithFixedTaxonomy returns the standard chain followed by the curated
// taxonomy override.
func WithFixedTaxonomy() Chain {
	return append(Standard(), RuleFunc{"fixed-taxonomy", FixedTaxonomy})
}

// Names lists the rule names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name()
	}
	return names
}

// ApplyAll runs every rule in order on a copy of doc. The input document is
// never modified.
func (c Chain) ApplyAll(doc *parser.Sample, md erapro.Metadata) *parser.Sample {
	if doc == nil {
		return nil
	}
	out := doc.Clone()
	for _, r := range c {
		out = r.Apply(out, md)
	}
	return out
}

// ApplyAll runs the standard chain.
func ApplyAll(doc *parser.Sample, md erapro.Metadata) *parser.Sample {
	return Standard().ApplyAll(doc, md)
}

// Alias drops SUBMITTER_ID identifiers from documents that carry no alias.
func Alias(doc *parser.Sample, _ erapro.Metadata) *parser.Sample {
	if doc.Alias == "" && doc.Identifiers != nil {
		doc.Identifiers.SubmitterIDs = nil
	}
	return doc
}

// Namespace fills empty SUBMITTER_ID namespaces with the centre name.
func Namespace(doc *parser.Sample, _ erapro.Metadata) *parser.Sample {
	if doc.CenterName == "" || doc.Identifiers == nil {
		return doc
	}
	for i := range doc.Identifiers.SubmitterIDs {
		if strings.TrimSpace(doc.Identifiers.SubmitterIDs[i].Namespace) == "" {
			doc.Identifiers.SubmitterIDs[i].Namespace = doc.CenterName
		}
	}
	return doc
}

// Broker derives broker_name from the archive prefix of the accession.
func Broker(doc *parser.Sample, md erapro.Metadata) *parser.Sample {
	switch {
	case strings.HasPrefix(doc.Accession, "ERS"):
		if md.BrokerName != "" {
			doc.BrokerName = md.BrokerName
		}
	case strings.HasPrefix(doc.Accession, "SRS"):
		doc.BrokerName = "NCBI"
	case strings.HasPrefix(doc.Accession, "DRS"):
		doc.BrokerName = "DDBJ"
	}
	return doc
}

// RemoveURLLinks drops SAMPLE_LINK entries holding a URL_LINK.
func RemoveURLLinks(doc *parser.Sample, _ erapro.Metadata) *parser.Sample {
	if doc.SampleLinks == nil {
		return doc
	}
	kept := doc.SampleLinks.Links[:0]
	for _, l := range doc.SampleLinks.Links {
		if l.URLLink == nil {
			kept = append(kept, l)
		}
	}
	doc.SampleLinks.Links = kept
	return doc
}

// CenterName replaces center_name with the normalized ERAPRO name and keeps
// the submitted value as center_alias.
func CenterName(doc *parser.Sample, md erapro.Metadata) *parser.Sample {
	if md.CentreName == "" || doc.CenterName == "" || doc.CenterName == md.CentreName {
		return doc
	}
	doc.CenterAlias = doc.CenterName
	doc.CenterName = md.CentreName
	return doc
}

// Dates records the ERAPRO first public and last update dates as attributes.
func Dates(doc *parser.Sample, md erapro.Metadata) *parser.Sample {
	if md.FirstPublic == "" || md.LastUpdated == "" {
		return doc
	}
	doc.SetAttribute(parser.TagFirstPublic, md.FirstPublic)
	doc.SetAttribute(parser.TagLastUpdate, md.LastUpdated)
	return doc
}

// BioSampleID appends the BioSamples accession as an EXTERNAL_ID.
func BioSampleID(doc *parser.Sample, md erapro.Metadata) *parser.Sample {
	if md.BioSampleID == "" || doc.HasExternalID(parser.NamespaceBioSample) {
		return doc
	}
	if doc.Identifiers == nil {
		doc.Identifiers = &parser.Identifiers{}
	}
	doc.Identifiers.ExternalIDs = append(doc.Identifiers.ExternalIDs, parser.QualifiedID{
		Namespace: parser.NamespaceBioSample,
		Value:     md.BioSampleID,
	})
	return doc
}

// FixedTaxonomy overwrites SAMPLE_NAME with the curated taxonomy when the
// row is flagged as fixed.
func FixedTaxonomy(doc *parser.Sample, md erapro.Metadata) *parser.Sample {
	if !md.FixedTaxonomy || md.FixedTaxonID <= 0 {
		return doc
	}
	if doc.SampleName == nil {
		doc.SampleName = &parser.SampleName{}
	}
	doc.SampleName.TaxonID = md.FixedTaxonID
	if md.FixedScientificName != "" {
		doc.SampleName.ScientificName = md.FixedScientificName
	}
	if md.FixedCommonName != "" {
		doc.SampleName.CommonName = md.FixedCommonName
	}
	return doc
}
