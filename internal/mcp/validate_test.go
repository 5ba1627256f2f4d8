package mcp

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

func TestValidateArgs_RequiredMissing(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]JSONSchema{
			"collection": {Type: "string"},
		},
		Required: []string{"collection"},
	}

	_, err := ValidateArgs(schema, json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "collection" {
		t.Errorf("error should name the field, got %q", verr.Field)
	}
}

func TestValidateArgs_DefaultApplied(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]JSONSchema{
			"limit":  {Type: "integer", Default: 10},
			"filter": {Type: "object"},
		},
	}

	args, err := ValidateArgs(schema, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ArgInt(args, "limit") != 10 {
		t.Errorf("expected default 10, got %v", args["limit"])
	}
	if _, present := args["filter"]; present {
		t.Error("field with no default should stay absent")
	}
}

func TestValidateArgs_IntegerCoercion(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]JSONSchema{
			"limit": {Type: "integer"},
		},
		Required: []string{"limit"},
	}

	// JSON numbers arrive as float64 and coerce to int.
	args, err := ValidateArgs(schema, json.RawMessage(`{"limit":5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := args["limit"].(int); !ok || v != 5 {
		t.Errorf("expected int 5, got %T %v", args["limit"], args["limit"])
	}

	// Numeric strings parse cleanly.
	args, err = ValidateArgs(schema, json.RawMessage(`{"limit":"7"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := args["limit"].(int); !ok || v != 7 {
		t.Errorf("expected int 7, got %T %v", args["limit"], args["limit"])
	}

	// Fractional values are not integers.
	if _, err := ValidateArgs(schema, json.RawMessage(`{"limit":2.5}`)); err == nil {
		t.Error("expected error for fractional integer")
	}

	// Non-numeric strings fail, naming the field.
	_, err = ValidateArgs(schema, json.RawMessage(`{"limit":"ten"}`))
	if err == nil {
		t.Fatal("expected error for non-numeric string")
	}
	if !strings.Contains(err.Error(), "limit") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestValidateArgs_Bounds(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]JSONSchema{
			"limit": {Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(1000)},
		},
	}

	if _, err := ValidateArgs(schema, json.RawMessage(`{"limit":0}`)); err == nil {
		t.Error("expected error below minimum")
	}
	if _, err := ValidateArgs(schema, json.RawMessage(`{"limit":1001}`)); err == nil {
		t.Error("expected error above maximum")
	}
	if _, err := ValidateArgs(schema, json.RawMessage(`{"limit":1000}`)); err != nil {
		t.Errorf("maximum itself should pass: %v", err)
	}
}

func TestValidateArgs_Enum(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]JSONSchema{
			"verbosity": {Type: "string", Enum: []string{"queryPlanner", "executionStats"}},
		},
	}

	if _, err := ValidateArgs(schema, json.RawMessage(`{"verbosity":"executionStats"}`)); err != nil {
		t.Errorf("allowed enum value rejected: %v", err)
	}
	if _, err := ValidateArgs(schema, json.RawMessage(`{"verbosity":"bogus"}`)); err == nil {
		t.Error("expected error for value outside enum")
	}
}

func TestValidateArgs_TypeMismatches(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]JSONSchema{
			"filter":    {Type: "object"},
			"pipeline":  {Type: "array"},
			"dryRun":    {Type: "boolean"},
			"namefield": {Type: "string"},
		},
	}

	for _, tc := range []struct {
		name string
		raw  string
	}{
		{"object", `{"filter":[1,2]}`},
		{"array", `{"pipeline":{"a":1}}`},
		{"boolean", `{"dryRun":"yes"}`},
		{"string", `{"namefield":42}`},
	} {
		if _, err := ValidateArgs(schema, json.RawMessage(tc.raw)); err == nil {
			t.Errorf("%s: expected type mismatch error for %s", tc.name, tc.raw)
		}
	}
}

func TestValidateArgs_NotAnObject(t *testing.T) {
	schema := JSONSchema{Type: "object"}
	if _, err := ValidateArgs(schema, json.RawMessage(`[1,2,3]`)); err == nil {
		t.Fatal("expected error for non-object arguments")
	}
}

func TestValidateArgs_EmptyArguments(t *testing.T) {
	schema := JSONSchema{Type: "object"}
	args, err := ValidateArgs(schema, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("expected empty args, got %v", args)
	}
}

func TestArgAccessors(t *testing.T) {
	args := map[string]any{
		"s": "text",
		"i": 3,
		"f": float64(4),
		"b": true,
		"m": map[string]any{"k": "v"},
		"a": []any{"x"},
	}

	if ArgString(args, "s") != "text" {
		t.Error("ArgString")
	}
	if ArgInt(args, "i") != 3 || ArgInt(args, "f") != 4 {
		t.Error("ArgInt")
	}
	if !ArgBool(args, "b") {
		t.Error("ArgBool")
	}
	if ArgMap(args, "m")["k"] != "v" {
		t.Error("ArgMap")
	}
	if len(ArgArray(args, "a")) != 1 {
		t.Error("ArgArray")
	}
	if ArgString(args, "missing") != "" || ArgInt(args, "missing") != 0 {
		t.Error("missing keys should yield zero values")
	}
}
