// Package source models the authoring system boundary: records made of typed
// properties, the best-effort extractors that turn them into canonical
// values, and clients that page through collections and patch status fields.
package source

import "strings"

type PropertyKind string

const (
	KindTitle       PropertyKind = "title"
	KindRichText    PropertyKind = "rich_text"
	KindSelect      PropertyKind = "select"
	KindMultiSelect PropertyKind = "multi_select"
	KindNumber      PropertyKind = "number"
	KindCheckbox    PropertyKind = "checkbox"
	KindRelation    PropertyKind = "relation"
	KindRollup      PropertyKind = "rollup"
	KindURL         PropertyKind = "url"
	KindDate        PropertyKind = "date"
	KindUnknown     PropertyKind = "unknown"
)

// PropertyValue is a closed union; only the types in this file implement it.
type PropertyValue interface {
	Kind() PropertyKind
	isPropertyValue()
}

type TitleProperty struct {
	Text string
}

type RichTextProperty struct {
	Text string
}

// SelectProperty also carries status properties, which share its shape;
// Status records which of the two the source declared.
type SelectProperty struct {
	Name   string
	Status bool
}

type MultiSelectProperty struct {
	Names []string
}

type NumberProperty struct {
	Value *float64
}

type CheckboxProperty struct {
	Checked bool
}

type RelationProperty struct {
	IDs []string
}

// RollupProperty holds either an aggregated number or the rolled-up values.
type RollupProperty struct {
	Number *float64
	Items  []PropertyValue
}

type URLProperty struct {
	URL string
}

type DateProperty struct {
	Start string
}

// UnknownProperty stands in for kinds the extractors do not understand.
type UnknownProperty struct {
	Type string
}

func (TitleProperty) Kind() PropertyKind       { return KindTitle }
func (RichTextProperty) Kind() PropertyKind    { return KindRichText }
func (SelectProperty) Kind() PropertyKind      { return KindSelect }
func (MultiSelectProperty) Kind() PropertyKind { return KindMultiSelect }
func (NumberProperty) Kind() PropertyKind      { return KindNumber }
func (CheckboxProperty) Kind() PropertyKind    { return KindCheckbox }
func (RelationProperty) Kind() PropertyKind    { return KindRelation }
func (RollupProperty) Kind() PropertyKind      { return KindRollup }
func (URLProperty) Kind() PropertyKind         { return KindURL }
func (DateProperty) Kind() PropertyKind        { return KindDate }
func (UnknownProperty) Kind() PropertyKind     { return KindUnknown }

func (TitleProperty) isPropertyValue()       {}
func (RichTextProperty) isPropertyValue()    {}
func (SelectProperty) isPropertyValue()      {}
func (MultiSelectProperty) isPropertyValue() {}
func (NumberProperty) isPropertyValue()      {}
func (CheckboxProperty) isPropertyValue()    {}
func (RelationProperty) isPropertyValue()    {}
func (RollupProperty) isPropertyValue()      {}
func (URLProperty) isPropertyValue()         {}
func (DateProperty) isPropertyValue()        {}
func (UnknownProperty) isPropertyValue()     {}

// Properties is the property bag of one record keyed by property name.
type Properties map[string]PropertyValue

// First returns the first property that exists under any of names. An
// existing but empty property still wins, matching how aliases are declared.
func (p Properties) First(names ...string) PropertyValue {
	for _, name := range names {
		if value, ok := p[name]; ok && value != nil {
			return value
		}
	}
	return nil
}

func (p Properties) Has(name string) bool {
	value, ok := p[name]
	return ok && value != nil
}

type Record struct {
	ID         string
	Properties Properties
}

// Page is one cursor page of a collection listing.
type Page struct {
	Records    []Record
	NextCursor string
	HasMore    bool
}

// NormalizeID strips dashes and lowercases a page id so hyphenated and compact
// forms compare equal.
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
}
