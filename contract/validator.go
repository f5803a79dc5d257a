package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Validate checks payload against the named entity using the package-level
// contract argument. It is a convenience over (*Contract).Validate.
func Validate(entityName string, payload map[string]any, c *Contract, mode Mode) (map[string]any, error) {
	if c == nil {
		return nil, contractError("contract: contract is required", nil)
	}
	return c.Validate(entityName, payload, mode)
}

// Validate enforces the closed-world rules for one payload. The payload is
// returned unchanged on success. Checks run in a fixed order so the first
// reported violation is deterministic: unknown entity, undeclared fields,
// then per field (sorted) required, immutable, enum and relation rules.
func (c *Contract) Validate(entityName string, payload map[string]any, mode Mode) (map[string]any, error) {
	entity, ok := c.Entity(entityName)
	if !ok {
		return nil, validationError(
			TextCodeUnknownEntity,
			fmt.Sprintf("Unknown entity %q", entityName),
			map[string]any{"entity": entityName},
		)
	}
	if mode == "" {
		mode = ModeImport
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, declared := entity.Field(key); !declared {
			return nil, validationError(
				TextCodeIllegalField,
				fmt.Sprintf("Illegal field %q on %s", key, entity.Name),
				map[string]any{"entity": entity.Name, "field": key},
			)
		}
	}

	for _, name := range entity.names {
		rule := entity.fields[name]
		value, present := payload[name]
		present = present && value != nil
		meta := map[string]any{"entity": entity.Name, "field": name}

		if !present {
			if !rule.Required {
				continue
			}
			if rule.kind == FieldKindRelation {
				return nil, validationError(
					TextCodeInvalidRelationValue,
					fmt.Sprintf("Missing required relation %q on %s", name, entity.Name),
					meta,
				)
			}
			return nil, validationError(
				TextCodeMissingRequiredField,
				fmt.Sprintf("Missing required field %q on %s", name, entity.Name),
				meta,
			)
		}

		if rule.Immutable && mode != ModeImport {
			meta["mode"] = string(mode)
			return nil, validationError(
				TextCodeImmutableFieldViolation,
				fmt.Sprintf("Field %q on %s is immutable outside IMPORT mode", name, entity.Name),
				meta,
			)
		}

		switch rule.kind {
		case FieldKindEnum:
			if bad, ok := c.checkEnum(rule.Enum, value); !ok {
				meta["enum"] = rule.Enum
				meta["value"] = bad
				return nil, validationError(
					TextCodeInvalidEnumValue,
					fmt.Sprintf("Invalid value %q for enum field %q on %s (allowed: %s)",
						bad, name, entity.Name, strings.Join(c.Enums[rule.Enum], ", ")),
					meta,
				)
			}
		case FieldKindRelation:
			if !isRelationRef(value) {
				meta["value"] = fmt.Sprint(value)
				return nil, validationError(
					TextCodeInvalidRelationValue,
					fmt.Sprintf("Invalid relation value for %q on %s: expected an id, got %T", name, entity.Name, value),
					meta,
				)
			}
		}
	}

	return payload, nil
}

// checkEnum accepts a single string or a list of strings; it returns the first
// offending value when membership fails.
func (c *Contract) checkEnum(enum string, value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, c.HasEnumValue(enum, typed)
	case []string:
		for _, item := range typed {
			if !c.HasEnumValue(enum, item) {
				return item, false
			}
		}
		return "", true
	case []any:
		for _, item := range typed {
			text, ok := item.(string)
			if !ok || !c.HasEnumValue(enum, text) {
				return fmt.Sprint(item), false
			}
		}
		return "", true
	default:
		return fmt.Sprint(value), false
	}
}

func isRelationRef(value any) bool {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed) != ""
	case int, int32, int64, uint, uint32, uint64:
		return true
	case float64:
		return typed > 0 && typed == math.Trunc(typed)
	case json.Number:
		_, err := typed.Int64()
		return err == nil
	default:
		return false
	}
}
