package voicesession

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/haivivi/parley/pkg/conversation"
	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
	"github.com/haivivi/parley/pkg/tools"
	"github.com/haivivi/parley/pkg/volume"
)

// ErrNotActive is returned by operations that need a live session.
var ErrNotActive = errors.New("voicesession: no active session")

// Engine supervises realtime voice sessions. Change notifications are
// delivered on subscriber goroutines, never on the goroutine that made the
// change, so a subscriber may start or stop sessions from its callback.
type Engine struct {
	cfg        config
	log        *slog.Logger
	tokens     TokenSource
	media      MediaAcquirer
	negotiator Negotiator

	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	conv       *conversation.Aggregator
	monitor    *volume.Monitor

	guard transitionGuard

	mu       sync.Mutex
	state    State
	status   string
	sess     *session
	gen      uint64
	muted    bool
	wakeWord bool
	subs     map[int]*subscriber
	nextSub  int
}

// New creates an idle Engine.
func New(tokens TokenSource, media MediaAcquirer, negotiator Negotiator, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		cfg:        cfg,
		log:        cfg.logger,
		tokens:     tokens,
		media:      media,
		negotiator: negotiator,
		registry:   cfg.registry,
		conv:       cfg.conversation,
		status:     StatusIdle,
		wakeWord:   cfg.wakeWord,
		subs:       make(map[int]*subscriber),
	}
	if e.registry == nil {
		e.registry = tools.NewRegistry()
	}
	if e.conv == nil {
		e.conv = conversation.NewAggregator()
	}
	e.dispatcher = tools.NewDispatcher(e.registry,
		tools.WithQuietTools(cfg.quietTools...),
		tools.WithCue(cfg.cue),
		tools.WithRecorder(e.recordToolCall),
		tools.WithLogger(e.log),
	)
	e.monitor = volume.NewMonitor(volume.WithUpdate(func(float64) {
		e.notify(ChangeVolume)
	}))
	e.registry.Watch(func() {
		if err := e.SendSessionUpdate(); err != nil && !errors.Is(err, ErrNotActive) {
			e.log.Warn("resend session config failed", "error", err)
		}
	})
	return e
}

// StartSession starts a session. It is a no-op while a session is active
// or a transition is in flight.
func (e *Engine) StartSession(ctx context.Context) error {
	return e.Start(ctx)
}

// StopSession stops the current session and reports "Session stopped".
func (e *Engine) StopSession() {
	e.Stop(StopOptions{})
}

// IsSessionActive reports whether a session is established.
func (e *Engine) IsSessionActive() bool {
	return e.State() == StateActive
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns the latest human-readable status.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Conversation returns a snapshot of the conversation.
func (e *Engine) Conversation() []conversation.Entry {
	return e.conv.Entries()
}

// ClearConversation removes all conversation entries.
func (e *Engine) ClearConversation() {
	e.conv.Clear()
	e.notify(ChangeConversation)
}

// CurrentVolume returns the larger of the outbound and inbound levels in
// 0..1.
func (e *Engine) CurrentVolume() float64 {
	return e.monitor.Current()
}

// IsMuted reports whether the microphone is muted.
func (e *Engine) IsMuted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// ToggleMute flips the mute state and returns the new value. The state
// carries over to later sessions.
func (e *Engine) ToggleMute() bool {
	e.mu.Lock()
	e.muted = !e.muted
	muted, s := e.muted, e.sess
	e.mu.Unlock()

	if s != nil {
		if audio := s.microphone(); audio != nil {
			audio.SetEnabled(!muted)
		}
	}
	e.log.Debug("mute toggled", "muted", muted)
	e.notify(ChangeMute)
	return muted
}

// SendTextMessage adds typed user text to the conversation and asks for a
// response.
func (e *Engine) SendTextMessage(text string) error {
	s := e.activeSession()
	if s == nil {
		return ErrNotActive
	}
	e.conv.AddUserText(text)
	e.notify(ChangeConversation)
	if err := s.sendUserText(text); err != nil {
		return err
	}
	return s.SendResponseCreate()
}

// Interrupt cancels the response in progress.
func (e *Engine) Interrupt() error {
	s := e.activeSession()
	if s == nil {
		return ErrNotActive
	}
	return s.sendCancel()
}

// SendSessionUpdate sends the current configuration and tool catalog. An
// update identical to the last one sent on this session is skipped.
func (e *Engine) SendSessionUpdate() error {
	s := e.activeSession()
	if s == nil {
		return ErrNotActive
	}
	_, err := s.config.send(e.sessionConfig())
	return err
}

// Registry returns the tool registry.
func (e *Engine) Registry() *tools.Registry {
	return e.registry
}

// RegisterFunction registers a tool handler. Registering while a session
// is active re-advertises the catalog.
func (e *Engine) RegisterFunction(name, description string, parameters map[string]any, h tools.Handler) error {
	return e.registry.Register(tools.Tool{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		Handler:     h,
	})
}

// RegisterTool registers t.
func (e *Engine) RegisterTool(t tools.Tool) error {
	return e.registry.Register(t)
}

// SetWakeWordEnabled enables or disables OnWakeWord.
func (e *Engine) SetWakeWordEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wakeWord = enabled
}

// WakeWordEnabled reports whether OnWakeWord starts sessions.
func (e *Engine) WakeWordEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wakeWord
}

// OnWakeWord starts a session in the background when wake word handling
// is enabled and the engine is idle.
func (e *Engine) OnWakeWord() {
	e.mu.Lock()
	enabled, state := e.wakeWord, e.state
	e.mu.Unlock()
	if !enabled || state != StateIdle {
		return
	}
	e.log.Info("wake word detected, starting session")
	go func() {
		if err := e.Start(context.Background()); err != nil {
			e.log.Warn("wake word start failed", "error", err)
		}
	}()
}

// Subscribe registers fn for change notifications and returns a function
// removing it. Each subscriber has its own delivery goroutine; changes
// posted while fn is running are merged into one Change for the next call.
// fn may call any Engine method, including StopSession. A delivery already
// in progress may finish after cancel returns.
func (e *Engine) Subscribe(fn func(Change)) (cancel func()) {
	s := &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = s
	e.mu.Unlock()
	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			close(s.done)
		})
	}
}

func (e *Engine) notify(c Change) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.subs {
		s.post(c)
	}
}

type subscriber struct {
	fn   func(Change)
	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	pending Change
}

func (s *subscriber) post(c Change) {
	s.mu.Lock()
	s.pending |= c
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		c := s.pending
		s.pending = 0
		s.mu.Unlock()
		if c != 0 {
			s.fn(c)
		}
	}
}

func (e *Engine) setStatus(status string) {
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
	e.log.Info("session status", "status", status)
	e.notify(ChangeStatus)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	e.notify(ChangeState)
}

func (e *Engine) activeSession() *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return nil
	}
	return e.sess
}

func (e *Engine) sessionConfig() *openairealtime.SessionConfig {
	return e.cfg.sessionConfig(e.registry.Catalog())
}

func (e *Engine) recordToolCall(o tools.Outcome) {
	call := conversation.ToolCall{
		Name:   o.Call.Name,
		Args:   o.Args,
		Result: o.Result,
	}
	if o.Err != nil {
		call.Err = o.Err.Error()
	}
	e.conv.AddToolCall(call)
	e.notify(ChangeConversation)
}
