package openairealtime

// wrapperKeys are property names that tool authors commonly use to nest the
// real parameter schema one level too deep.
var wrapperKeys = map[string]bool{
	"parameters":   true,
	"schema":       true,
	"inputSchema":  true,
	"input_schema": true,
	"jsonSchema":   true,
}

// NormalizeParameters rewrites a tool parameter schema into the form the
// realtime endpoint accepts:
//
//   - a nil schema becomes an empty object schema;
//   - one redundant wrapping level ({"parameters": {...}}) is removed;
//   - null variants are stripped from type unions and anyOf/oneOf lists,
//     and a list left with a single variant is inlined;
//   - the root always has "type": "object" and a "properties" map.
//
// The input is not modified.
func NormalizeParameters(schema map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	root := unwrap(schema)
	out, _ := stripNulls(root).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if _, ok := out["properties"].(map[string]any); !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

// unwrap removes a single wrapper level: a schema that is not itself an
// object schema and whose only key holds one.
func unwrap(schema map[string]any) map[string]any {
	if _, ok := schema["properties"]; ok {
		return schema
	}
	if t, _ := schema["type"].(string); t != "" {
		return schema
	}
	if len(schema) != 1 {
		return schema
	}
	for k, v := range schema {
		inner, ok := v.(map[string]any)
		if !ok || !wrapperKeys[k] {
			return schema
		}
		return inner
	}
	return schema
}

func stripNulls(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[k] = stripNulls(val)
		}
		if t, ok := out["type"].([]any); ok {
			out["type"] = stripNullTypes(t)
		}
		for _, key := range []string{"anyOf", "oneOf"} {
			list, ok := out[key].([]any)
			if !ok {
				continue
			}
			kept := list[:0:0]
			for _, variant := range list {
				if isNullSchema(variant) {
					continue
				}
				kept = append(kept, variant)
			}
			switch len(kept) {
			case 0:
				delete(out, key)
			case 1:
				delete(out, key)
				if inner, ok := kept[0].(map[string]any); ok {
					for k, val := range inner {
						if _, exists := out[k]; !exists {
							out[k] = val
						}
					}
				}
			default:
				out[key] = kept
			}
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, val := range node {
			out[i] = stripNulls(val)
		}
		return out
	default:
		return v
	}
}

func stripNullTypes(types []any) any {
	kept := make([]any, 0, len(types))
	for _, t := range types {
		if s, _ := t.(string); s == "null" {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return kept
}

func isNullSchema(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	t, _ := m["type"].(string)
	return t == "null" && len(m) == 1
}
