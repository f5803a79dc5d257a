// Package contract holds the declarative schema every synchronized payload is
// checked against: entities split into field sections, per-field rules, and the
// shared enum registry.
package contract

import (
	"sort"
	"strings"
)

type FieldKind string

const (
	FieldKindScalar   FieldKind = "scalar"
	FieldKindEnum     FieldKind = "enum"
	FieldKindRelation FieldKind = "relation"
)

// Mode selects which write rules apply during validation.
type Mode string

const (
	ModeImport  Mode = "IMPORT"
	ModeRuntime Mode = "RUNTIME"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModeImport, ModeRuntime:
		return true
	default:
		return false
	}
}

// ParseMode accepts the mode names case-insensitively; empty means IMPORT.
func ParseMode(value string) (Mode, bool) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return ModeImport, true
	}
	mode := Mode(value)
	return mode, mode.IsValid()
}

type FieldRule struct {
	Type      string `yaml:"type" json:"type"`
	Required  bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Immutable bool   `yaml:"immutable,omitempty" json:"immutable,omitempty"`
	Enum      string `yaml:"enum,omitempty" json:"enum,omitempty"`
	Relation  string `yaml:"relation,omitempty" json:"relation,omitempty"`

	kind    FieldKind
	section string
}

func (r FieldRule) Kind() FieldKind {
	return r.kind
}

func (r FieldRule) Section() string {
	return r.section
}

type Entity struct {
	Name       string                          `yaml:"-" json:"name"`
	Collection string                          `yaml:"collection" json:"collection"`
	Identity   string                          `yaml:"identity" json:"identity"`
	Sections   map[string]map[string]FieldRule `yaml:"sections" json:"sections"`

	fields map[string]FieldRule
	names  []string
}

// Field looks a field up across every section of the entity.
func (e *Entity) Field(name string) (FieldRule, bool) {
	if e == nil {
		return FieldRule{}, false
	}
	rule, ok := e.fields[name]
	return rule, ok
}

// FieldNames returns every declared field, sorted.
func (e *Entity) FieldNames() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.names...)
}

func (e *Entity) ImmutableFields() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0)
	for _, name := range e.names {
		if e.fields[name].Immutable {
			out = append(out, name)
		}
	}
	return out
}

type Contract struct {
	Enums    map[string][]string `yaml:"enums" json:"enums"`
	Entities map[string]*Entity  `yaml:"entities" json:"entities"`

	enumSets map[string]map[string]struct{}
}

func (c *Contract) Entity(name string) (*Entity, bool) {
	if c == nil {
		return nil, false
	}
	entity, ok := c.Entities[name]
	return entity, ok && entity != nil
}

func (c *Contract) EntityNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Entities))
	for name := range c.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasEnumValue reports exact-match membership; no case folding.
func (c *Contract) HasEnumValue(enum string, value string) bool {
	if c == nil {
		return false
	}
	set, ok := c.enumSets[enum]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}
