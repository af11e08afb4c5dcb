package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Aggregator owns the conversation list. Entries are appended and mutated
// in place; they are never reordered or removed except by Clear.
//
// At most one user entry is "ephemeral": created when the user starts
// speaking and finalized when the transcription completes.
type Aggregator struct {
	mu        sync.Mutex
	entries   []*Entry
	ephemeral *Entry

	now   func() time.Time
	newID func() string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithIDGenerator overrides the entry ID source.
func WithIDGenerator(fn func() string) Option {
	return func(a *Aggregator) { a.newID = fn }
}

// NewAggregator creates an empty conversation.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) appendLocked(e *Entry) *Entry {
	e.ID = a.newID()
	e.Timestamp = a.now()
	a.entries = append(a.entries, e)
	return e
}

// SpeechStarted opens the ephemeral user entry if none is open.
func (a *Aggregator) SpeechStarted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ephemeral != nil {
		a.ephemeral.Status = StatusSpeaking
		return
	}
	a.ephemeral = a.appendLocked(&Entry{Role: RoleUser, Status: StatusSpeaking})
}

// SpeechStopped is a no-op for the conversation; the entry stays in the
// speaking state until the audio buffer is committed.
func (a *Aggregator) SpeechStopped() {}

// AudioCommitted moves the ephemeral entry to processing.
func (a *Aggregator) AudioCommitted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ephemeral != nil {
		a.ephemeral.Status = StatusProcessing
	}
}

// TranscriptionPartial replaces the ephemeral entry's text with a partial
// transcript.
func (a *Aggregator) TranscriptionPartial(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ephemeral != nil {
		a.ephemeral.Text = text
	}
}

// TranscriptionDelta appends an incremental transcript to the ephemeral entry.
func (a *Aggregator) TranscriptionDelta(delta string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ephemeral != nil {
		a.ephemeral.Text += delta
	}
}

// TranscriptionCompleted finalizes the ephemeral entry with the full
// transcript. Without an ephemeral entry a new final user entry is appended.
func (a *Aggregator) TranscriptionCompleted(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ephemeral == nil {
		a.appendLocked(&Entry{Role: RoleUser, Text: text, IsFinal: true, Status: StatusFinal})
		return
	}
	a.ephemeral.Text = text
	a.ephemeral.IsFinal = true
	a.ephemeral.Status = StatusFinal
	a.ephemeral = nil
}

// AssistantDelta extends the open assistant entry at the tail, or opens a
// new one when the tail is anything else. Opening a new entry finalizes any
// earlier open assistant entry so at most one stays open.
func (a *Aggregator) AssistantDelta(delta string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.entries); n > 0 {
		last := a.entries[n-1]
		if last.Role == RoleAssistant && !last.IsFinal {
			last.Text += delta
			return
		}
	}
	for _, e := range a.entries {
		if e.Role == RoleAssistant {
			e.IsFinal = true
		}
	}
	a.appendLocked(&Entry{Role: RoleAssistant, Text: delta})
}

// AssistantDone marks the most recent assistant entry final.
func (a *Aggregator) AssistantDone() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].Role == RoleAssistant {
			a.entries[i].IsFinal = true
			return
		}
	}
}

// AddUserText appends a final user entry for typed input.
func (a *Aggregator) AddUserText(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appendLocked(&Entry{Role: RoleUser, Text: text, IsFinal: true, Status: StatusFinal})
}

// AddToolCall appends a final tool entry.
func (a *Aggregator) AddToolCall(call ToolCall) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appendLocked(&Entry{
		Role:       RoleTool,
		Text:       call.Name,
		IsFinal:    true,
		ToolName:   call.Name,
		ToolArgs:   call.Args,
		ToolResult: call.Result,
		ToolError:  call.Err,
	})
}

// EndSession finalizes whatever is still open when a session ends so no
// entry is left waiting on events that will never arrive.
func (a *Aggregator) EndSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ephemeral != nil {
		a.ephemeral.IsFinal = true
		a.ephemeral.Status = StatusFinal
		a.ephemeral = nil
	}
	for _, e := range a.entries {
		if e.Role == RoleAssistant {
			e.IsFinal = true
		}
	}
}

// Clear removes every entry.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
	a.ephemeral = nil
}

// Entries returns a snapshot of the conversation.
func (a *Aggregator) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	for i, e := range a.entries {
		out[i] = *e
	}
	return out
}

// Ephemeral returns the ID of the open user entry, or "".
func (a *Aggregator) Ephemeral() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ephemeral == nil {
		return ""
	}
	return a.ephemeral.ID
}

// Len returns the number of entries.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
