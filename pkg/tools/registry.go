package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
)

// Handler runs a tool with parsed arguments. The result is JSON-encoded
// and returned to the model.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is a named, described function the model may call.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON Schema for the arguments. It is normalized
	// when the catalog is built.
	Parameters map[string]any

	Handler Handler
}

// ErrInvalidTool is returned when registering a tool without a name or handler.
var ErrInvalidTool = errors.New("tools: invalid tool")

// Registry is a concurrency-safe, case-insensitive tool table. Registration
// order is preserved so the advertised catalog is stable.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*Tool
	order    []string
	watchers []func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) error {
	k := key(t.Name)
	if k == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTool)
	}
	if t.Handler == nil {
		return fmt.Errorf("%w: %s: handler is required", ErrInvalidTool, t.Name)
	}

	r.mu.Lock()
	if _, exists := r.tools[k]; !exists {
		r.order = append(r.order, k)
	}
	r.tools[k] = &t
	watchers := append([]func(){}, r.watchers...)
	r.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
	return nil
}

// RegisterFunc registers a bare handler with an empty parameter schema.
func (r *Registry) RegisterFunc(name string, h Handler) error {
	return r.Register(Tool{Name: name, Handler: h})
}

// Unregister removes a tool. It reports whether the tool existed.
func (r *Registry) Unregister(name string) bool {
	k := key(name)
	r.mu.Lock()
	if _, ok := r.tools[k]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.tools, k)
	for i, n := range r.order {
		if n == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	watchers := append([]func(){}, r.watchers...)
	r.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
	return true
}

// Lookup finds a tool by name, ignoring case.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[key(name)]
	if !ok {
		return Tool{}, false
	}
	return *t, true
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, k := range r.order {
		names = append(names, r.tools[k].Name)
	}
	return names
}

// Catalog returns the tool declarations advertised in session.update.
func (r *Registry) Catalog() []openairealtime.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]openairealtime.Tool, 0, len(r.order))
	for _, k := range r.order {
		t := r.tools[k]
		out = append(out, openairealtime.Tool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  openairealtime.NormalizeParameters(t.Parameters),
		})
	}
	return out
}

// Watch registers fn to run after every change to the registry.
func (r *Registry) Watch(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers = append(r.watchers, fn)
}
