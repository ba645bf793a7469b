// Package parser holds the typed tree of an ENA <SAMPLE> document as stored
// in the ERAPRO sample XML column.
package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/nishad/enaimport/internal/errors"
)

// Namespace and tag values with special meaning in sample documents.
const (
	NamespaceBioSample = "BioSample"
	TagFirstPublic     = "ENA-FIRST-PUBLIC"
	TagLastUpdate      = "ENA-LAST-UPDATE"
)

// SampleSet is the wrapper ERAPRO usually stores around a sample.
type SampleSet struct {
	XMLName xml.Name `xml:"SAMPLE_SET"`
	Samples []Sample `xml:"SAMPLE"`
}

// Sample represents one ENA sample record.
type Sample struct {
	XMLName xml.Name `xml:"SAMPLE"`

	// Attributes from NameGroup
	Alias       string `xml:"alias,attr,omitempty"`
	CenterName  string `xml:"center_name,attr,omitempty"`
	CenterAlias string `xml:"center_alias,attr,omitempty"`
	BrokerName  string `xml:"broker_name,attr,omitempty"`
	Accession   string `xml:"accession,attr,omitempty"`

	// Elements
	Identifiers      *Identifiers      `xml:"IDENTIFIERS"`
	Title            string            `xml:"TITLE,omitempty"`
	SampleName       *SampleName       `xml:"SAMPLE_NAME"`
	Description      string            `xml:"DESCRIPTION,omitempty"`
	SampleLinks      *SampleLinks      `xml:"SAMPLE_LINKS"`
	SampleAttributes *SampleAttributes `xml:"SAMPLE_ATTRIBUTES"`
}

// SampleName contains taxonomic information
type SampleName struct {
	DisplayName    string `xml:"display_name,attr,omitempty"`
	TaxonID        int64  `xml:"TAXON_ID,omitempty"`
	ScientificName string `xml:"SCIENTIFIC_NAME,omitempty"`
	CommonName     string `xml:"COMMON_NAME,omitempty"`
	AnonymizedName string `xml:"ANONYMIZED_NAME,omitempty"`
	IndividualName string `xml:"INDIVIDUAL_NAME,omitempty"`
}

// SampleLinks contains external links
type SampleLinks struct {
	Links []Link `xml:"SAMPLE_LINK"`
}

// SampleAttributes contains custom attributes
type SampleAttributes struct {
	Attributes []Attribute `xml:"SAMPLE_ATTRIBUTE"`
}

// Identifiers contains record identifiers
type Identifiers struct {
	PrimaryID    *Identifier   `xml:"PRIMARY_ID"`
	SecondaryIDs []Identifier  `xml:"SECONDARY_ID"`
	ExternalIDs  []QualifiedID `xml:"EXTERNAL_ID"`
	SubmitterIDs []QualifiedID `xml:"SUBMITTER_ID"`
	UUIDs        []Identifier  `xml:"UUID"`
}

// Identifier represents a simple identifier
type Identifier struct {
	Label string `xml:"label,attr,omitempty"`
	Value string `xml:",chardata"`
}

// QualifiedID represents an identifier with namespace
type QualifiedID struct {
	Namespace string `xml:"namespace,attr,omitempty"`
	Label     string `xml:"label,attr,omitempty"`
	Value     string `xml:",chardata"`
}

// Attribute represents a tag-value pair with optional units
type Attribute struct {
	Tag   string `xml:"TAG"`
	Value string `xml:"VALUE"`
	Units string `xml:"UNITS,omitempty"`
}

// Link represents one SAMPLE_LINK; exactly one member is normally set.
type Link struct {
	URLLink    *URLLink `xml:"URL_LINK"`
	URILink    *URLLink `xml:"URI_LINK"`
	XRefLink   *XRef    `xml:"XREF_LINK"`
	EntrezLink *XRef    `xml:"ENTREZ_LINK"`
}

// URLLink represents a URL link
type URLLink struct {
	Label string `xml:"LABEL"`
	URL   string `xml:"URL"`
}

// XRef represents a cross-reference
type XRef struct {
	DB    string `xml:"DB"`
	ID    string `xml:"ID"`
	Label string `xml:"LABEL,omitempty"`
}

// Parse decodes a sample document. The root may be SAMPLE or a SAMPLE_SET
// holding at least one SAMPLE; only the first sample is returned. Element
// names are case-sensitive.
func Parse(raw string) (*Sample, error) {
	const op = apperrors.Op("parser.Parse")

	dec := xml.NewDecoder(strings.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, parseErr(op, fmt.Errorf("no SAMPLE element"))
		}
		if err != nil {
			return nil, parseErr(op, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "SAMPLE":
			var s Sample
			if err := dec.DecodeElement(&s, &start); err != nil {
				return nil, parseErr(op, err)
			}
			return &s, nil
		case "SAMPLE_SET":
			var set SampleSet
			if err := dec.DecodeElement(&set, &start); err != nil {
				return nil, parseErr(op, err)
			}
			if len(set.Samples) == 0 {
				return nil, parseErr(op, fmt.Errorf("empty SAMPLE_SET"))
			}
			s := set.Samples[0]
			return &s, nil
		default:
			return nil, parseErr(op, fmt.Errorf("unexpected root element %q", start.Name.Local))
		}
	}
}

// Parse failures are deterministic, so they are never worth retrying.
func parseErr(op apperrors.Op, err error) error {
	return apperrors.MarkFatal(apperrors.E(op, apperrors.KindParse, err))
}

// Marshal renders the document back to XML.
func (s *Sample) Marshal() (string, error) {
	out, err := xml.Marshal(s)
	if err != nil {
		return "", apperrors.E(apperrors.Op("parser.Marshal"), apperrors.KindParse, err)
	}
	return string(out), nil
}

// Clone returns a deep copy so callers can keep the original untouched.
func (s *Sample) Clone() *Sample {
	cp := *s
	if s.Identifiers != nil {
		ids := *s.Identifiers
		if s.Identifiers.PrimaryID != nil {
			p := *s.Identifiers.PrimaryID
			ids.PrimaryID = &p
		}
		ids.SecondaryIDs = append([]Identifier(nil), s.Identifiers.SecondaryIDs...)
		ids.ExternalIDs = append([]QualifiedID(nil), s.Identifiers.ExternalIDs...)
		ids.SubmitterIDs = append([]QualifiedID(nil), s.Identifiers.SubmitterIDs...)
		ids.UUIDs = append([]Identifier(nil), s.Identifiers.UUIDs...)
		cp.Identifiers = &ids
	}
	if s.SampleName != nil {
		n := *s.SampleName
		cp.SampleName = &n
	}
	if s.SampleLinks != nil {
		links := make([]Link, len(s.SampleLinks.Links))
		for i, l := range s.SampleLinks.Links {
			links[i] = l.clone()
		}
		cp.SampleLinks = &SampleLinks{Links: links}
	}
	if s.SampleAttributes != nil {
		cp.SampleAttributes = &SampleAttributes{
			Attributes: append([]Attribute(nil), s.SampleAttributes.Attributes...),
		}
	}
	return &cp
}

func (l Link) clone() Link {
	cp := l
	if l.URLLink != nil {
		v := *l.URLLink
		cp.URLLink = &v
	}
	if l.URILink != nil {
		v := *l.URILink
		cp.URILink = &v
	}
	if l.XRefLink != nil {
		v := *l.XRefLink
		cp.XRefLink = &v
	}
	if l.EntrezLink != nil {
		v := *l.EntrezLink
		cp.EntrezLink = &v
	}
	return cp
}

// Attributes returns the SAMPLE_ATTRIBUTE list, or nil.
func (s *Sample) Attributes() []Attribute {
	if s.SampleAttributes == nil {
		return nil
	}
	return s.SampleAttributes.Attributes
}

// SetAttribute replaces every SAMPLE_ATTRIBUTE with the given tag by a single
// one carrying value, creating the container when needed.
func (s *Sample) SetAttribute(tag, value string) {
	if s.SampleAttributes == nil {
		s.SampleAttributes = &SampleAttributes{}
	}
	kept := s.SampleAttributes.Attributes[:0]
	for _, a := range s.SampleAttributes.Attributes {
		if a.Tag != tag {
			kept = append(kept, a)
		}
	}
	s.SampleAttributes.Attributes = append(kept, Attribute{Tag: tag, Value: value})
}

// GetAttributeValue returns the value of the first attribute with tag.
func GetAttributeValue(attributes []Attribute, tag string) string {
	for _, attr := range attributes {
		if attr.Tag == tag {
			return attr.Value
		}
	}
	return ""
}

// HasExternalID reports whether an EXTERNAL_ID in namespace is present.
func (s *Sample) HasExternalID(namespace string) bool {
	if s.Identifiers == nil {
		return false
	}
	for _, id := range s.Identifiers.ExternalIDs {
		if id.Namespace == namespace {
			return true
		}
	}
	return false
}
