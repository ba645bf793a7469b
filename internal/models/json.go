package models

import (
	"encoding/json"
	"time"
)

// characteristic is the BioSamples wire form of an attribute value.
type characteristic struct {
	Text          string   `json:"text"`
	OntologyTerms []string `json:"ontologyTerms,omitempty"`
	Unit          string   `json:"unit,omitempty"`
	Tag           string   `json:"tag,omitempty"`
}

type sampleJSON struct {
	Name                     string                      `json:"name"`
	Accession                string                      `json:"accession,omitempty"`
	Domain                   string                      `json:"domain,omitempty"`
	WebinSubmissionAccountID string                      `json:"webinSubmissionAccountId,omitempty"`
	TaxID                    *int64                      `json:"taxId,omitempty"`
	Release                  time.Time                   `json:"release"`
	Update                   time.Time                   `json:"update"`
	Create                   *time.Time                  `json:"create,omitempty"`
	Submitted                *time.Time                  `json:"submitted,omitempty"`
	Characteristics          map[string][]characteristic `json:"characteristics,omitempty"`
	Relationships            []Relationship              `json:"relationships,omitempty"`
	ExternalReferences       []ExternalReference         `json:"externalReferences,omitempty"`
	Publications             []Publication               `json:"publications,omitempty"`
	StructuredData           []map[string]interface{}    `json:"structuredData,omitempty"`
}

// MarshalJSON encodes the sample in the BioSamples characteristics layout.
func (s Sample) MarshalJSON() ([]byte, error) {
	out := sampleJSON{
		Name:                     s.Name,
		Accession:                s.Accession,
		Domain:                   s.Domain,
		WebinSubmissionAccountID: s.WebinSubmissionAccountID,
		TaxID:                    s.TaxID,
		Release:                  s.Release.UTC(),
		Update:                   s.Update.UTC(),
		Create:                   s.Create,
		Submitted:                s.Submitted,
		Relationships:            s.Relationships,
		ExternalReferences:       s.ExternalReferences,
		Publications:             s.Publications,
		StructuredData:           s.StructuredData,
	}
	if s.Attributes.Len() > 0 {
		out.Characteristics = make(map[string][]characteristic)
		for _, a := range s.Attributes.All() {
			out.Characteristics[a.Type] = append(out.Characteristics[a.Type], characteristic{
				Text:          a.Value,
				OntologyTerms: a.IRI,
				Unit:          a.Unit,
				Tag:           a.Tag,
			})
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the BioSamples characteristics layout.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var in sampleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Sample{
		Name:                     in.Name,
		Accession:                in.Accession,
		Domain:                   in.Domain,
		WebinSubmissionAccountID: in.WebinSubmissionAccountID,
		TaxID:                    in.TaxID,
		Release:                  in.Release,
		Update:                   in.Update,
		Create:                   in.Create,
		Submitted:                in.Submitted,
		StructuredData:           in.StructuredData,
	}
	for typ, values := range in.Characteristics {
		for _, c := range values {
			a := NewAttribute(typ, c.Text, c.OntologyTerms...).WithUnit(c.Unit).WithTag(c.Tag)
			s.Attributes.Add(a)
		}
	}
	for _, r := range in.Relationships {
		s.AddRelationship(r)
	}
	for _, ref := range in.ExternalReferences {
		s.AddExternalReference(ref)
	}
	for _, p := range in.Publications {
		s.AddPublication(p)
	}
	return nil
}
