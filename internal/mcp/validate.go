package mcp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValidationError reports a request argument that failed schema validation.
// It names the offending field so callers can correct the call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// ValidateArgs checks raw tool arguments against a schema and returns the
// validated argument map with defaults applied. The handler is only invoked
// with the result of a successful validation; all checks are interpreted from
// the declarative schema rather than repeated per handler.
func ValidateArgs(schema JSONSchema, raw json.RawMessage) (map[string]any, error) {
	args := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, &ValidationError{Field: "", Reason: "arguments are not a JSON object"}
		}
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	for name, prop := range schema.Properties {
		val, present := args[name]
		if !present {
			if required[name] {
				return nil, &ValidationError{Field: name, Reason: "required field missing"}
			}
			if prop.Default != nil {
				args[name] = prop.Default
			}
			continue
		}

		coerced, err := coerceValue(name, prop, val)
		if err != nil {
			return nil, err
		}
		args[name] = coerced
	}

	return args, nil
}

func coerceValue(name string, prop JSONSchema, val any) (any, error) {
	switch prop.Type {
	case "string":
		s, ok := val.(string)
		if !ok {
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("expected string, got %T", val)}
		}
		if len(prop.Enum) > 0 {
			for _, allowed := range prop.Enum {
				if s == allowed {
					return s, nil
				}
			}
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("value %q not in %v", s, prop.Enum)}
		}
		return s, nil

	case "number", "integer":
		n, err := coerceNumber(name, val)
		if err != nil {
			return nil, err
		}
		if prop.Type == "integer" {
			if n != math.Trunc(n) {
				return nil, &ValidationError{Field: name, Reason: "expected an integer"}
			}
		}
		if prop.Minimum != nil && n < *prop.Minimum {
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("must be >= %v", *prop.Minimum)}
		}
		if prop.Maximum != nil && n > *prop.Maximum {
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("must be <= %v", *prop.Maximum)}
		}
		if prop.Type == "integer" {
			return int(n), nil
		}
		return n, nil

	case "boolean":
		b, ok := val.(bool)
		if !ok {
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("expected boolean, got %T", val)}
		}
		return b, nil

	case "object":
		m, ok := val.(map[string]any)
		if !ok {
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("expected object, got %T", val)}
		}
		return m, nil

	case "array":
		a, ok := val.([]any)
		if !ok {
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("expected array, got %T", val)}
		}
		return a, nil

	default:
		// No type declared: pass through as-is.
		return val, nil
	}
}

// coerceNumber accepts JSON numbers directly and numeric strings that parse
// cleanly. Anything else is a validation failure.
func coerceNumber(name string, val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &ValidationError{Field: name, Reason: fmt.Sprintf("cannot coerce %q to a number", v)}
		}
		return n, nil
	default:
		return 0, &ValidationError{Field: name, Reason: fmt.Sprintf("expected number, got %T", val)}
	}
}

// Typed accessors for validated argument maps. Defaults have already been
// applied by ValidateArgs, so missing values mean the schema had no default.

// ArgString returns a string argument, or "" if absent.
func ArgString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// ArgInt returns an integer argument, or 0 if absent.
func ArgInt(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// ArgBool returns a boolean argument, or false if absent.
func ArgBool(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

// ArgMap returns an object argument, or nil if absent.
func ArgMap(args map[string]any, name string) map[string]any {
	m, _ := args[name].(map[string]any)
	return m
}

// ArgArray returns an array argument, or nil if absent.
func ArgArray(args map[string]any, name string) []any {
	a, _ := args[name].([]any)
	return a
}
