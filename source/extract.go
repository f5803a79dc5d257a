package source

import (
	"strconv"
	"strings"
)

// Extractors never fail: a missing or mismatched property yields ok=false and
// all strictness is left to contract validation.

func Text(value PropertyValue) (string, bool) {
	var text string
	switch typed := value.(type) {
	case TitleProperty:
		text = typed.Text
	case RichTextProperty:
		text = typed.Text
	case URLProperty:
		text = typed.URL
	case SelectProperty:
		text = typed.Name
	case NumberProperty:
		if typed.Value == nil {
			return "", false
		}
		return strconv.FormatFloat(*typed.Value, 'f', -1, 64), true
	case DateProperty:
		text = typed.Start
	case RollupProperty:
		parts := make([]string, 0, len(typed.Items))
		for _, item := range typed.Items {
			if part, ok := Text(item); ok {
				parts = append(parts, part)
			}
		}
		text = strings.Join(parts, ", ")
	case MultiSelectProperty, CheckboxProperty, RelationProperty, UnknownProperty, nil:
		return "", false
	default:
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func Select(value PropertyValue) (string, bool) {
	typed, ok := value.(SelectProperty)
	if !ok {
		return "", false
	}
	name := strings.TrimSpace(typed.Name)
	return name, name != ""
}

func MultiSelect(value PropertyValue) ([]string, bool) {
	typed, ok := value.(MultiSelectProperty)
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(typed.Names))
	for _, name := range typed.Names {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names, len(names) > 0
}

func Number(value PropertyValue) (float64, bool) {
	switch typed := value.(type) {
	case NumberProperty:
		if typed.Value == nil {
			return 0, false
		}
		return *typed.Value, true
	case RollupProperty:
		if typed.Number != nil {
			return *typed.Number, true
		}
		if len(typed.Items) == 1 {
			return Number(typed.Items[0])
		}
		return 0, false
	default:
		return 0, false
	}
}

func Checkbox(value PropertyValue) (bool, bool) {
	typed, ok := value.(CheckboxProperty)
	if !ok {
		return false, false
	}
	return typed.Checked, true
}

// RelationIDs returns the referenced page ids of a relation, looking inside
// rollups of relations as well.
func RelationIDs(value PropertyValue) []string {
	switch typed := value.(type) {
	case RelationProperty:
		out := make([]string, 0, len(typed.IDs))
		for _, id := range typed.IDs {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
		return out
	case RollupProperty:
		var out []string
		for _, item := range typed.Items {
			out = append(out, RelationIDs(item)...)
		}
		return out
	default:
		return nil
	}
}

func FirstRelationID(value PropertyValue) (string, bool) {
	ids := RelationIDs(value)
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}
