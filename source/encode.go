package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EncodeValue converts a plain value into a patch property shaped like the
// existing property on the record. Read-only kinds (rollup, unknown) and
// values that cannot be represented return ok=false.
func EncodeValue(existing PropertyValue, value any) (PropertyValue, bool) {
	if value == nil {
		return nil, false
	}
	switch typed := existing.(type) {
	case CheckboxProperty:
		return CheckboxProperty{Checked: truthy(value)}, true
	case SelectProperty:
		return SelectProperty{Name: stringify(value), Status: typed.Status}, true
	case MultiSelectProperty:
		switch list := value.(type) {
		case []string:
			return MultiSelectProperty{Names: append([]string(nil), list...)}, true
		case []any:
			names := make([]string, 0, len(list))
			for _, item := range list {
				names = append(names, stringify(item))
			}
			return MultiSelectProperty{Names: names}, true
		default:
			return MultiSelectProperty{Names: []string{stringify(value)}}, true
		}
	case NumberProperty:
		number, ok := numeric(value)
		if !ok {
			return nil, false
		}
		return NumberProperty{Value: &number}, true
	case DateProperty:
		if at, ok := value.(time.Time); ok {
			return DateProperty{Start: at.UTC().Format(time.RFC3339)}, true
		}
		return DateProperty{Start: stringify(value)}, true
	case TitleProperty:
		return TitleProperty{Text: stringify(value)}, true
	case URLProperty:
		return URLProperty{URL: stringify(value)}, true
	case RichTextProperty:
		return RichTextProperty{Text: stringify(value)}, true
	case RollupProperty, RelationProperty, UnknownProperty:
		return nil, false
	default:
		return RichTextProperty{Text: stringify(value)}, true
	}
}

func stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return false
	}
}

func numeric(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return parsed, err == nil
	default:
		parsed, err := strconv.ParseFloat(fmt.Sprint(value), 64)
		return parsed, err == nil
	}
}
