package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

const defaultMaxResponseSizeMB = 1

// HTTPToolDef declares a tool backed by an HTTP endpoint.
//
// Header values, the endpoint and the bearer token support ${ENV_VAR}
// expansion.
type HTTPToolDef struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	Method            string            `yaml:"method"`
	Endpoint          string            `yaml:"endpoint"`
	Headers           map[string]string `yaml:"headers"`
	BearerToken       string            `yaml:"bearer_token"`
	Parameters        map[string]any    `yaml:"parameters"`
	RequestJQ         *JQExpr           `yaml:"request_jq"`
	ResponseJQ        *JQExpr           `yaml:"response_jq"`
	MaxResponseSizeMB int64             `yaml:"max_response_size_mb"`
	Quiet             bool              `yaml:"quiet"`
}

func (d *HTTPToolDef) validate() error {
	if d.Name == "" {
		return fmt.Errorf("http tool: name is required")
	}
	if d.Endpoint == "" {
		return fmt.Errorf("tool %s: endpoint is required", d.Name)
	}
	switch strings.ToUpper(d.Method) {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("tool %s: unsupported method %q", d.Name, d.Method)
	}
	return nil
}

// LoadHTTPTools reads a YAML document of the form
//
//	tools:
//	  - name: lookup_order
//	    endpoint: https://example.com/orders
//	    ...
func LoadHTTPTools(r io.Reader) ([]HTTPToolDef, error) {
	var doc struct {
		Tools []HTTPToolDef `yaml:"tools"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode tools: %w", err)
	}
	for i := range doc.Tools {
		if err := doc.Tools[i].validate(); err != nil {
			return nil, err
		}
	}
	return doc.Tools, nil
}

// LoadHTTPToolsFile reads tool declarations from path.
func LoadHTTPToolsFile(path string) ([]HTTPToolDef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadHTTPTools(f)
}

// Tool converts the declaration into a registrable Tool using client.
func (d *HTTPToolDef) Tool(client *http.Client) Tool {
	if client == nil {
		client = http.DefaultClient
	}
	def := *d
	return Tool{
		Name:        def.Name,
		Description: def.Description,
		Parameters:  normalizeYAML(def.Parameters),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return def.execute(ctx, client, args)
		},
	}
}

func (d *HTTPToolDef) execute(ctx context.Context, client *http.Client, args map[string]any) (any, error) {
	var body any = args
	if d.RequestJQ != nil {
		v, err := d.RequestJQ.Run(args)
		if err != nil {
			return nil, fmt.Errorf("build request body: %w", err)
		}
		body = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	method := strings.ToUpper(d.Method)
	if method == "" {
		method = http.MethodPost
	}
	var reqBody io.Reader
	if method != http.MethodGet {
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, expandEnvVars(d.Endpoint), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range d.Headers {
		req.Header.Set(k, expandEnvVars(v))
	}
	if d.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+expandEnvVars(d.BearerToken))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	maxSizeMB := d.MaxResponseSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxResponseSizeMB
	}
	limited := io.LimitReader(resp.Body, maxSizeMB<<20)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(limited)
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(errBody))
	}

	var respBody any
	if err := json.NewDecoder(limited).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if d.ResponseJQ != nil {
		v, err := d.ResponseJQ.Run(respBody)
		if err != nil {
			return nil, fmt.Errorf("extract response: %w", err)
		}
		return v, nil
	}
	return respBody, nil
}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

// normalizeYAML converts YAML-decoded values into the shapes produced by
// encoding/json so schemas compare and normalize the same way.
func normalizeYAML(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := toJSONValue(m).(map[string]any)
	return v
}

func toJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = toJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONValue(item)
		}
		return out
	case int:
		return float64(val)
	default:
		return v
	}
}

// JQExpr is a jq expression parsed when the declaration is loaded.
type JQExpr struct {
	Expr  string
	Query *gojq.Query
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *JQExpr) UnmarshalYAML(node *yaml.Node) error {
	if err := node.Decode(&e.Expr); err != nil {
		return err
	}
	if e.Expr == "" {
		return nil
	}
	query, err := gojq.Parse(e.Expr)
	if err != nil {
		return fmt.Errorf("invalid jq expression %q: %w", e.Expr, err)
	}
	e.Query = query
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (e JQExpr) MarshalYAML() (any, error) {
	return e.Expr, nil
}

// Run executes the query and returns its first result.
func (e *JQExpr) Run(input any) (any, error) {
	if e == nil || e.Query == nil {
		return input, nil
	}
	iter := e.Query.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("jq expression returned no result")
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("jq error: %w", err)
	}
	return v, nil
}
