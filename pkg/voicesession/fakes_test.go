package voicesession

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haivivi/parley/pkg/volume"
)

type fixedLevel float64

func (l fixedLevel) Level() float64 { return float64(l) }

type fakeAudio struct {
	enabled atomic.Bool
	closes  atomic.Int32
}

func (a *fakeAudio) SetEnabled(enabled bool)   { a.enabled.Store(enabled) }
func (a *fakeAudio) Analyser() volume.Analyser { return fixedLevel(0.25) }
func (a *fakeAudio) Close() error {
	a.closes.Add(1)
	return nil
}

type fakeTrack struct {
	closes atomic.Int32
}

func (t *fakeTrack) Close() error {
	t.closes.Add(1)
	return nil
}

type fakeInbound struct {
	id  int
	log *[]string
	mu  *sync.Mutex
}

func (f *fakeInbound) Analyser() volume.Analyser { return fixedLevel(0.5) }

func (f *fakeInbound) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.log = append(*f.log, "close")
	return nil
}

type fakeMedia struct {
	mu       sync.Mutex
	err      error
	mics     []*fakeAudio
	videos   []*fakeTrack
	acquired int
}

func (m *fakeMedia) AcquireMicrophone(ctx context.Context, deviceID string) (AudioInput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquired++
	if m.err != nil {
		return nil, m.err
	}
	a := &fakeAudio{}
	m.mics = append(m.mics, a)
	return a, nil
}

func (m *fakeMedia) CreatePlaceholderVideoTrack() (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := &fakeTrack{}
	m.videos = append(m.videos, v)
	return v, nil
}

func (m *fakeMedia) mic(i int) *fakeAudio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mics[i]
}

func (m *fakeMedia) acquireCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

type fakeTokens struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTokens) FetchToken(ctx context.Context, voice string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "ek_test", nil
}

type fakeNegotiator struct {
	mu     sync.Mutex
	calls  int
	links  []*fakeLink
	gate   chan struct{}
	noOpen bool
}

func (n *fakeNegotiator) Negotiate(ctx context.Context, req NegotiateRequest) (Link, error) {
	n.mu.Lock()
	n.calls++
	gate := n.gate
	n.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	l := &fakeLink{events: req.Events}
	n.mu.Lock()
	n.links = append(n.links, l)
	open := !n.noOpen
	n.mu.Unlock()
	if open {
		go req.Events.Opened()
	}
	return l, nil
}

func (n *fakeNegotiator) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func (n *fakeNegotiator) link(i int) *fakeLink {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.links[i]
}

type fakeLink struct {
	events LinkEvents

	mu     sync.Mutex
	sent   [][]byte
	closed bool
	closes int
}

func (l *fakeLink) Send(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("link closed")
	}
	l.sent = append(l.sent, data)
	return nil
}

func (l *fakeLink) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.closes++
	l.mu.Unlock()
	l.events.Closed()
	return nil
}

func (l *fakeLink) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

// drop simulates the remote side closing the channel.
func (l *fakeLink) drop() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.events.Closed()
}

func (l *fakeLink) deliver(t *testing.T, event map[string]any) {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	l.events.Message(data)
}

// messages returns the sent events, optionally filtered by type.
func (l *fakeLink) messages(typ string) []map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []map[string]any
	for _, data := range l.sent {
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		if typ == "" || m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

type harness struct {
	engine *Engine
	media  *fakeMedia
	tokens *fakeTokens
	neg    *fakeNegotiator
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{media: &fakeMedia{}, tokens: &fakeTokens{}, neg: &fakeNegotiator{}}
	opts = append([]Option{
		WithSettleDelay(10 * time.Millisecond),
		WithOpenTimeout(time.Second),
	}, opts...)
	h.engine = New(h.tokens, h.media, h.neg, opts...)
	t.Cleanup(h.engine.StopSession)
	return h
}

func (h *harness) start(t *testing.T) *fakeLink {
	t.Helper()
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := h.engine.State(); got != StateActive {
		t.Fatalf("State() = %v, want active", got)
	}
	return h.neg.link(h.neg.callCount() - 1)
}

// statusRecorder is a slog.Handler that keeps the status attribute of every
// "session status" record.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
}

func (r *statusRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *statusRecorder) Handle(_ context.Context, rec slog.Record) error {
	if rec.Message != "session status" {
		return nil
	}
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == "status" {
			r.mu.Lock()
			r.statuses = append(r.statuses, a.Value.String())
			r.mu.Unlock()
			return false
		}
		return true
	})
	return nil
}

func (r *statusRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }

func (r *statusRecorder) WithGroup(string) slog.Handler { return r }

func (r *statusRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}
