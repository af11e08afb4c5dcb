package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// NewFunc builds a Tool whose parameter schema is inferred from T and whose
// handler receives the arguments decoded into T.
func NewFunc[T any](name, description string, fn func(ctx context.Context, arg T) (any, error)) (Tool, error) {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		return Tool{}, fmt.Errorf("tool %s: %w", name, err)
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return Tool{}, fmt.Errorf("tool %s: encode schema: %w", name, err)
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return Tool{}, fmt.Errorf("tool %s: decode schema: %w", name, err)
	}

	return Tool{
		Name:        name,
		Description: description,
		Parameters:  params,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			raw, err := json.Marshal(args)
			if err != nil {
				return nil, err
			}
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("unmarshal %s error: %w", raw, err)
			}
			return fn(ctx, v)
		},
	}, nil
}

// MustNewFunc is like NewFunc but panics on error.
func MustNewFunc[T any](name, description string, fn func(ctx context.Context, arg T) (any, error)) Tool {
	t, err := NewFunc(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}
