// Package models defines the canonical BioSamples sample produced by the
// import pipeline and the run summary it records.
package models

import (
	"sort"
	"strings"
	"time"
)

// Attribute is one characteristic of a sample. Two attributes are the same
// when their Type and Value match; IRI, Unit and Tag are annotations.
type Attribute struct {
	Type  string   `json:"type"`
	Value string   `json:"value"`
	Tag   string   `json:"tag,omitempty"`
	Unit  string   `json:"unit,omitempty"`
	IRI   []string `json:"iri,omitempty"`
}

// NewAttribute builds an attribute with its ontology terms sorted and deduplicated.
func NewAttribute(typ, value string, iri ...string) Attribute {
	return Attribute{Type: typ, Value: value, IRI: normalizeTerms(iri)}
}

// WithUnit returns a copy of a with the given unit.
func (a Attribute) WithUnit(unit string) Attribute {
	a.Unit = unit
	return a
}

// WithTag returns a copy of a with the given term source tag.
func (a Attribute) WithTag(tag string) Attribute {
	a.Tag = tag
	return a
}

func (a Attribute) less(b Attribute) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Value < b.Value
}

func normalizeTerms(terms []string) []string {
	var out []string
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AttributeSet keeps attributes sorted by type then value with no duplicate pairs.
type AttributeSet struct {
	items []Attribute
}

// Add inserts a, returning false when an attribute with the same type and
// value is already present.
func (s *AttributeSet) Add(a Attribute) bool {
	i := sort.Search(len(s.items), func(i int) bool { return !s.items[i].less(a) })
	if i < len(s.items) && s.items[i].Type == a.Type && s.items[i].Value == a.Value {
		return false
	}
	s.items = append(s.items, Attribute{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = a
	return true
}

// RemoveType drops every attribute whose type equals typ, ignoring case when fold is set.
func (s *AttributeSet) RemoveType(typ string, fold bool) int {
	kept := s.items[:0]
	removed := 0
	for _, a := range s.items {
		if a.Type == typ || (fold && strings.EqualFold(a.Type, typ)) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.items = kept
	return removed
}

// Replace removes all attributes of a's type and adds a.
func (s *AttributeSet) Replace(a Attribute) {
	s.RemoveType(a.Type, false)
	s.Add(a)
}

// Get returns the first attribute of the given type.
func (s *AttributeSet) Get(typ string) (Attribute, bool) {
	for _, a := range s.items {
		if a.Type == typ {
			return a, true
		}
	}
	return Attribute{}, false
}

// All returns a copy of the attributes in order.
func (s *AttributeSet) All() []Attribute {
	out := make([]Attribute, len(s.items))
	copy(out, s.items)
	return out
}

func (s *AttributeSet) Len() int { return len(s.items) }

// Relationship links two samples.
type Relationship struct {
	Source string `json:"source"`
	Type   string `json:"type"`
	Target string `json:"target"`
}

func (r Relationship) less(o Relationship) bool {
	if r.Source != o.Source {
		return r.Source < o.Source
	}
	if r.Type != o.Type {
		return r.Type < o.Type
	}
	return r.Target < o.Target
}

// ExternalReference points at a record of the sample in another archive.
type ExternalReference struct {
	URL string   `json:"url"`
	DUO []string `json:"duo,omitempty"`
}

// Publication references literature describing the sample.
type Publication struct {
	DOI      string `json:"doi,omitempty"`
	PubMedID string `json:"pubmed_id,omitempty"`
}

func (p Publication) less(o Publication) bool {
	if p.PubMedID != o.PubMedID {
		return p.PubMedID < o.PubMedID
	}
	return p.DOI < o.DOI
}

// Sample is the canonical record submitted to BioSamples. Exactly one of
// Domain and WebinSubmissionAccountID identifies the owner.
type Sample struct {
	Name                     string
	Accession                string
	Domain                   string
	WebinSubmissionAccountID string
	TaxID                    *int64
	Release                  time.Time
	Update                   time.Time
	Create                   *time.Time
	Submitted                *time.Time
	Attributes               AttributeSet
	Relationships            []Relationship
	ExternalReferences       []ExternalReference
	Publications             []Publication
	StructuredData           []map[string]interface{}
}

// AddRelationship inserts r in order, ignoring duplicates.
func (s *Sample) AddRelationship(r Relationship) {
	i := sort.Search(len(s.Relationships), func(i int) bool { return !s.Relationships[i].less(r) })
	if i < len(s.Relationships) && s.Relationships[i] == r {
		return
	}
	s.Relationships = append(s.Relationships, Relationship{})
	copy(s.Relationships[i+1:], s.Relationships[i:])
	s.Relationships[i] = r
}

// AddExternalReference inserts ref ordered by URL, ignoring duplicate URLs.
func (s *Sample) AddExternalReference(ref ExternalReference) {
	i := sort.Search(len(s.ExternalReferences), func(i int) bool { return s.ExternalReferences[i].URL >= ref.URL })
	if i < len(s.ExternalReferences) && s.ExternalReferences[i].URL == ref.URL {
		return
	}
	ref.DUO = normalizeTerms(ref.DUO)
	s.ExternalReferences = append(s.ExternalReferences, ExternalReference{})
	copy(s.ExternalReferences[i+1:], s.ExternalReferences[i:])
	s.ExternalReferences[i] = ref
}

// AddPublication inserts p in order, ignoring duplicates.
func (s *Sample) AddPublication(p Publication) {
	i := sort.Search(len(s.Publications), func(i int) bool { return !s.Publications[i].less(p) })
	if i < len(s.Publications) && s.Publications[i] == p {
		return
	}
	s.Publications = append(s.Publications, Publication{})
	copy(s.Publications[i+1:], s.Publications[i:])
	s.Publications[i] = p
}

// Clone returns a deep copy of s.
func (s *Sample) Clone() *Sample {
	cp := *s
	cp.Attributes = AttributeSet{items: s.Attributes.All()}
	cp.Relationships = append([]Relationship(nil), s.Relationships...)
	cp.ExternalReferences = append([]ExternalReference(nil), s.ExternalReferences...)
	cp.Publications = append([]Publication(nil), s.Publications...)
	cp.StructuredData = append([]map[string]interface{}(nil), s.StructuredData...)
	if s.TaxID != nil {
		v := *s.TaxID
		cp.TaxID = &v
	}
	if s.Create != nil {
		v := *s.Create
		cp.Create = &v
	}
	if s.Submitted != nil {
		v := *s.Submitted
		cp.Submitted = &v
	}
	return &cp
}

// RunStatus is the completion state of a pipeline run.
type RunStatus string

const (
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// PipelineRun summarizes one invocation of the import pipeline.
type PipelineRun struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	PipelineName     string    `json:"pipeline_name"`
	Status           RunStatus `json:"status"`
	FailedAccessions string    `json:"failed_accessions"`
	FailureCause     string    `json:"failure_cause,omitempty"`
}

// Failed splits FailedAccessions back into a list.
func (r *PipelineRun) Failed() []string {
	if r.FailedAccessions == "" {
		return nil
	}
	return strings.Split(r.FailedAccessions, ",")
}
