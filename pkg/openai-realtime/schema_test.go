package openairealtime

import (
	"reflect"
	"testing"
)

func TestNormalizeParameters_Nil(t *testing.T) {
	got := NormalizeParameters(nil)
	want := map[string]any{"type": "object", "properties": map[string]any{}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeParameters(nil) = %v, want %v", got, want)
	}
}

func TestNormalizeParameters_Unwrap(t *testing.T) {
	in := map[string]any{
		"parameters": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
		},
	}
	got := NormalizeParameters(in)
	props, ok := got["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", got)
	}
	if _, ok := props["city"]; !ok {
		t.Errorf("properties = %v, want city", props)
	}
	if got["type"] != "object" {
		t.Errorf("type = %v, want object", got["type"])
	}
}

func TestNormalizeParameters_KeepsRealProperty(t *testing.T) {
	// A schema whose single property happens to be called "schema" is not
	// a wrapper.
	in := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"schema": map[string]any{"type": "string"},
		},
	}
	got := NormalizeParameters(in)
	props := got["properties"].(map[string]any)
	if _, ok := props["schema"]; !ok {
		t.Errorf("properties = %v, want schema kept", props)
	}
}

func TestNormalizeParameters_StripNulls(t *testing.T) {
	in := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": []any{"string", "null"}},
			"tags": map[string]any{"type": []any{"array", "null", "string"}},
			"unit": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string", "enum": []any{"c", "f"}},
					map[string]any{"type": "null"},
				},
				"description": "temperature unit",
			},
			"value": map[string]any{
				"oneOf": []any{
					map[string]any{"type": "number"},
					map[string]any{"type": "string"},
					map[string]any{"type": "null"},
				},
			},
		},
	}
	got := NormalizeParameters(in)
	props := got["properties"].(map[string]any)

	if typ := props["name"].(map[string]any)["type"]; typ != "string" {
		t.Errorf("name.type = %v, want string", typ)
	}
	tags := props["tags"].(map[string]any)["type"]
	if !reflect.DeepEqual(tags, []any{"array", "string"}) {
		t.Errorf("tags.type = %v, want [array string]", tags)
	}
	unit := props["unit"].(map[string]any)
	if _, ok := unit["anyOf"]; ok {
		t.Errorf("unit.anyOf should be inlined: %v", unit)
	}
	if unit["type"] != "string" || unit["description"] != "temperature unit" {
		t.Errorf("unit = %v", unit)
	}
	value := props["value"].(map[string]any)
	if list, _ := value["oneOf"].([]any); len(list) != 2 {
		t.Errorf("value.oneOf = %v, want 2 variants", value["oneOf"])
	}
}

func TestNormalizeParameters_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": []any{"string", "null"}},
		},
	}
	NormalizeParameters(in)
	a := in["properties"].(map[string]any)["a"].(map[string]any)
	if !reflect.DeepEqual(a["type"], []any{"string", "null"}) {
		t.Errorf("input mutated: %v", a)
	}
}
