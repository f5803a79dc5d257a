package transform

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-content-sync/source"
	goerrors "github.com/goliatone/go-errors"
)

const TextCodeUnknownEntity = "TRANSFORM_UNKNOWN_ENTITY"

// SourceIDField is stamped on every payload so later stages can correlate a
// target record with the source page it came from.
const SourceIDField = "notionPageId"

type Transformer struct {
	table       Table
	stampSource bool
}

type Option func(*Transformer)

// WithoutSourceStamp disables stamping the source record id onto payloads.
func WithoutSourceStamp() Option {
	return func(t *Transformer) {
		t.stampSource = false
	}
}

func New(table Table, opts ...Option) *Transformer {
	if table == nil {
		table = DefaultTable()
	}
	t := &Transformer{table: table, stampSource: true}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Transform applies the entity's extractors to record and returns a payload
// holding only the fields that produced a value.
func (t *Transformer) Transform(entity string, record source.Record) (map[string]any, error) {
	fields, ok := t.table[entity]
	if !ok {
		return nil, goerrors.New(fmt.Sprintf("transform: no field table for entity %q", entity), goerrors.CategoryNotFound).
			WithCode(http.StatusNotFound).
			WithTextCode(TextCodeUnknownEntity).
			WithMetadata(map[string]any{"entity": entity})
	}
	props := record.Properties
	if props == nil {
		props = source.Properties{}
	}
	payload := make(map[string]any, len(fields)+1)
	for _, field := range fields {
		if field.Extract == nil {
			continue
		}
		if value, ok := field.Extract(props); ok {
			payload[field.Name] = value
		}
	}
	if t.stampSource && strings.TrimSpace(record.ID) != "" {
		payload[SourceIDField] = record.ID
	}
	return payload, nil
}

// Fields lists the payload fields the table can produce for entity, including
// the stamped source id.
func (t *Transformer) Fields(entity string) []string {
	fields := t.table[entity]
	out := make([]string, 0, len(fields)+1)
	for _, field := range fields {
		out = append(out, field.Name)
	}
	if t.stampSource {
		out = append(out, SourceIDField)
	}
	return out
}

func (t *Transformer) Entities() []string {
	out := make([]string, 0, len(t.table))
	for name := range t.table {
		out = append(out, name)
	}
	return out
}
