package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Call is a function call requested by the model.
type Call struct {
	Name      string
	Arguments string
	CallID    string
}

// Replier sends the two messages that complete a function call.
type Replier interface {
	SendFunctionOutput(callID, output string) error
	SendResponseCreate() error
}

// Outcome is the result of one dispatched call.
type Outcome struct {
	Call Call

	// ToolCallID is a local identifier for correlating logs and records.
	ToolCallID string

	// Args is nil when the arguments failed to parse.
	Args map[string]any

	// Output is the JSON text sent as function_call_output.
	Output string

	// Result is the JSON-encoded handler result on success.
	Result json.RawMessage

	// Err is set when the call failed for any reason.
	Err error
}

// Dispatcher resolves calls against a Registry and replies to the model.
type Dispatcher struct {
	registry *Registry
	quiet    map[string]bool
	cue      func(name string)
	record   func(Outcome)
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQuietTools suppresses conversation records for the named tools.
func WithQuietTools(names ...string) DispatcherOption {
	return func(d *Dispatcher) {
		for _, n := range names {
			d.quiet[key(n)] = true
		}
	}
}

// WithCue sets a function run just before a registered handler is invoked.
func WithCue(fn func(name string)) DispatcherOption {
	return func(d *Dispatcher) { d.cue = fn }
}

// WithRecorder sets the function that records non-quiet outcomes.
func WithRecorder(fn func(Outcome)) DispatcherOption {
	return func(d *Dispatcher) { d.record = fn }
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		quiet:    make(map[string]bool),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsQuiet reports whether calls to name are kept out of the conversation.
func (d *Dispatcher) IsQuiet(name string) bool {
	return d.quiet[key(name)]
}

// Dispatch runs call and replies through r. Exactly one function output
// and one response.create are sent, in that order, on every path.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call, r Replier) (out Outcome) {
	out.Call = call
	out.ToolCallID = uuid.NewString()
	log := d.logger.With("tool", call.Name, "call_id", call.CallID, "tool_call_id", out.ToolCallID)

	defer func() {
		if err := r.SendFunctionOutput(call.CallID, out.Output); err != nil {
			log.Warn("send function output failed", "error", err)
		}
		if err := r.SendResponseCreate(); err != nil {
			log.Warn("send response.create failed", "error", err)
		}
	}()
	defer func() {
		if d.record != nil && !d.IsQuiet(call.Name) {
			d.record(out)
		}
	}()

	args, err := parseArguments(call.Arguments)
	if err != nil {
		out.fail(fmt.Errorf("invalid arguments: %w", err))
		log.Warn("parse tool arguments failed", "error", err)
		return out
	}
	out.Args = args

	tool, ok := d.registry.Lookup(call.Name)
	if !ok {
		out.fail(fmt.Errorf("Function '%s' not found in registry", call.Name))
		log.Warn("unknown tool")
		return out
	}

	if d.cue != nil {
		d.cue(tool.Name)
	}

	result, err := invoke(ctx, tool.Handler, args)
	if err != nil {
		out.fail(err)
		log.Warn("tool failed", "error", err)
		return out
	}

	data, err := json.Marshal(result)
	if err != nil {
		out.fail(fmt.Errorf("encode result: %w", err))
		log.Warn("encode tool result failed", "error", err)
		return out
	}
	out.Result = data
	out.Output = string(data)
	log.Debug("tool completed")
	return out
}

func (o *Outcome) fail(err error) {
	o.Err = err
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	o.Output = string(data)
}

func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// invoke runs h and converts a panic into an error.
func invoke(ctx context.Context, h Handler, args map[string]any) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool panicked: %v", p)
		}
	}()
	return h(ctx, args)
}
