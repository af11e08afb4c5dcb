package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

type sent struct {
	kind   string
	callID string
	output string
}

type fakeReplier struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeReplier) SendFunctionOutput(callID, output string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{kind: "output", callID: callID, output: output})
	return f.err
}

func (f *fakeReplier) SendResponseCreate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{kind: "response.create"})
	return f.err
}

func errorText(t *testing.T, output string) string {
	t.Helper()
	var v map[string]string
	if err := json.Unmarshal([]byte(output), &v); err != nil {
		t.Fatalf("output %q is not an error object: %v", output, err)
	}
	return v["error"]
}

func TestDispatch_ExactlyOneReplyOnEveryPath(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("ok", func(_ context.Context, args map[string]any) (any, error) {
		return map[string]any{"echo": args["v"]}, nil
	})
	r.RegisterFunc("fails", func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("backend down")
	})
	r.RegisterFunc("panics", func(context.Context, map[string]any) (any, error) {
		panic("boom")
	})

	tests := []struct {
		name      string
		call      Call
		wantErr   string
		wantValue string
	}{
		{"success", Call{Name: "OK", Arguments: `{"v":1}`, CallID: "c1"}, "", `{"echo":1}`},
		{"empty args", Call{Name: "ok", Arguments: "", CallID: "c2"}, "", `{"echo":null}`},
		{"unknown tool", Call{Name: "nope", Arguments: "{}", CallID: "c3"}, "Function 'nope' not found in registry", ""},
		{"bad json", Call{Name: "ok", Arguments: "{bad", CallID: "c4"}, "invalid arguments", ""},
		{"unknown tool bad json", Call{Name: "nope", Arguments: "{bad", CallID: "c7"}, "invalid arguments", ""},
		{"handler error", Call{Name: "fails", Arguments: "{}", CallID: "c5"}, "backend down", ""},
		{"handler panic", Call{Name: "panics", Arguments: "{}", CallID: "c6"}, "tool panicked: boom", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := &fakeReplier{}
			out := NewDispatcher(r).Dispatch(context.Background(), tt.call, rep)

			if len(rep.msgs) != 2 {
				t.Fatalf("sent %d messages, want 2: %+v", len(rep.msgs), rep.msgs)
			}
			if rep.msgs[0].kind != "output" || rep.msgs[1].kind != "response.create" {
				t.Fatalf("order = %+v", rep.msgs)
			}
			if rep.msgs[0].callID != tt.call.CallID {
				t.Errorf("call_id = %q, want %q", rep.msgs[0].callID, tt.call.CallID)
			}
			if rep.msgs[0].output != out.Output {
				t.Errorf("sent output %q != outcome output %q", rep.msgs[0].output, out.Output)
			}

			if tt.wantErr != "" {
				if out.Err == nil {
					t.Fatal("Outcome.Err = nil")
				}
				if got := errorText(t, out.Output); !strings.Contains(got, tt.wantErr) {
					t.Errorf("error = %q, want containing %q", got, tt.wantErr)
				}
				return
			}
			if out.Err != nil {
				t.Fatalf("Outcome.Err = %v", out.Err)
			}
			if out.Output != tt.wantValue {
				t.Errorf("output = %s, want %s", out.Output, tt.wantValue)
			}
		})
	}
}

func TestDispatch_UnknownToolExactText(t *testing.T) {
	rep := &fakeReplier{}
	out := NewDispatcher(NewRegistry()).Dispatch(context.Background(), Call{Name: "lights", CallID: "x"}, rep)
	if out.Output != `{"error":"Function 'lights' not found in registry"}` {
		t.Errorf("output = %s", out.Output)
	}
}

func TestDispatch_SendFailureStillSendsBoth(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("ok", nopHandler)
	rep := &fakeReplier{err: errors.New("closed")}
	NewDispatcher(r).Dispatch(context.Background(), Call{Name: "ok", CallID: "c"}, rep)
	if len(rep.msgs) != 2 {
		t.Errorf("sent %d messages, want 2", len(rep.msgs))
	}
}

func TestDispatch_CueBeforeHandler(t *testing.T) {
	var order []string
	r := NewRegistry()
	r.RegisterFunc("t", func(context.Context, map[string]any) (any, error) {
		order = append(order, "handler")
		return "done", nil
	})
	d := NewDispatcher(r, WithCue(func(name string) { order = append(order, "cue:"+name) }))
	d.Dispatch(context.Background(), Call{Name: "T", CallID: "c"}, &fakeReplier{})

	if strings.Join(order, ",") != "cue:t,handler" {
		t.Errorf("order = %v", order)
	}
}

func TestDispatch_NoCueForUnknownTool(t *testing.T) {
	cued := false
	d := NewDispatcher(NewRegistry(), WithCue(func(string) { cued = true }))
	d.Dispatch(context.Background(), Call{Name: "x", CallID: "c"}, &fakeReplier{})
	if cued {
		t.Error("cue played for unknown tool")
	}
}

func TestDispatch_Recorder(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("loud", func(context.Context, map[string]any) (any, error) { return 1, nil })
	r.RegisterFunc("hush", func(context.Context, map[string]any) (any, error) { return 2, nil })

	var recorded []Outcome
	d := NewDispatcher(r,
		WithQuietTools("HUSH"),
		WithRecorder(func(o Outcome) { recorded = append(recorded, o) }),
	)
	d.Dispatch(context.Background(), Call{Name: "loud", Arguments: `{"a":"b"}`, CallID: "1"}, &fakeReplier{})
	d.Dispatch(context.Background(), Call{Name: "hush", CallID: "2"}, &fakeReplier{})
	d.Dispatch(context.Background(), Call{Name: "loud", Arguments: "[", CallID: "3"}, &fakeReplier{})

	if len(recorded) != 2 {
		t.Fatalf("recorded %d outcomes, want 2", len(recorded))
	}
	if recorded[0].Args["a"] != "b" || string(recorded[0].Result) != "1" {
		t.Errorf("recorded[0] = %+v", recorded[0])
	}
	if recorded[1].Err == nil || recorded[1].Args != nil {
		t.Errorf("recorded[1] = %+v, want parse failure", recorded[1])
	}
}

func TestDispatch_Concurrent(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("ok", nopHandler)
	d := NewDispatcher(r)
	rep := &fakeReplier{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), Call{Name: "ok", CallID: "c"}, rep)
		}()
	}
	wg.Wait()
	if len(rep.msgs) != 100 {
		t.Errorf("sent %d messages, want 100", len(rep.msgs))
	}
}
