package voicesession

import (
	"log/slog"
	"time"

	"github.com/haivivi/parley/pkg/conversation"
	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
	"github.com/haivivi/parley/pkg/tools"
	"github.com/haivivi/parley/pkg/usagelog"
)

// Defaults.
const (
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultOpenTimeout = 15 * time.Second
)

// DefaultTurnDetection is server VAD with moderate sensitivity.
var DefaultTurnDetection = openairealtime.TurnDetection{
	Type:              openairealtime.VADServerVAD,
	Threshold:         0.5,
	PrefixPaddingMs:   300,
	SilenceDurationMs: 500,
}

type config struct {
	voice              string
	inputDevice        string
	instructions       string
	modalities         []string
	transcriptionModel string
	turnDetection      openairealtime.TurnDetection
	audioFormat        string
	model              string

	settleDelay time.Duration
	openTimeout time.Duration

	registry   *tools.Registry
	quietTools []string
	cue        func(name string)

	conversation *conversation.Aggregator
	usage        usagelog.Store
	wakeWord     bool

	logger *slog.Logger
	now    func() time.Time
}

func defaultConfig() config {
	return config{
		voice:              openairealtime.VoiceAlloy,
		modalities:         []string{openairealtime.ModalityText, openairealtime.ModalityAudio},
		transcriptionModel: openairealtime.TranscriptionWhisper1,
		turnDetection:      DefaultTurnDetection,
		settleDelay:        DefaultSettleDelay,
		openTimeout:        DefaultOpenTimeout,
		logger:             slog.Default(),
		now:                time.Now,
	}
}

// Option configures an Engine.
type Option func(*config)

// WithVoice sets the assistant voice.
func WithVoice(voice string) Option {
	return func(c *config) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithInputDevice selects the microphone by exact name or index.
func WithInputDevice(id string) Option {
	return func(c *config) { c.inputDevice = id }
}

// WithInstructions sets the system instructions.
func WithInstructions(text string) Option {
	return func(c *config) { c.instructions = text }
}

// WithModalities sets the response modalities.
func WithModalities(modalities ...string) Option {
	return func(c *config) { c.modalities = modalities }
}

// WithTranscriptionModel sets the input transcription model. Empty
// disables input transcription.
func WithTranscriptionModel(model string) Option {
	return func(c *config) { c.transcriptionModel = model }
}

// WithTurnDetection overrides the VAD parameters.
func WithTurnDetection(td openairealtime.TurnDetection) Option {
	return func(c *config) { c.turnDetection = td }
}

// WithAudioFormat declares the PCM wire format for transports that carry
// audio as events.
func WithAudioFormat(format string) Option {
	return func(c *config) { c.audioFormat = format }
}

// WithModel names the model in usage records.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithSettleDelay sets the pause between teardown and start on restart.
func WithSettleDelay(d time.Duration) Option {
	return func(c *config) { c.settleDelay = d }
}

// WithOpenTimeout bounds the wait for the event channel to open.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.openTimeout = d
		}
	}
}

// WithRegistry uses an existing tool registry.
func WithRegistry(r *tools.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithQuietTools keeps calls to the named tools out of the conversation.
func WithQuietTools(names ...string) Option {
	return func(c *config) { c.quietTools = append(c.quietTools, names...) }
}

// WithCue sets a function run before a registered tool handler.
func WithCue(fn func(name string)) Option {
	return func(c *config) { c.cue = fn }
}

// WithConversation uses an existing aggregator, e.g. to share history.
func WithConversation(a *conversation.Aggregator) Option {
	return func(c *config) { c.conversation = a }
}

// WithUsageStore records token usage reports.
func WithUsageStore(s usagelog.Store) Option {
	return func(c *config) { c.usage = s }
}

// WithWakeWord enables OnWakeWord initially.
func WithWakeWord(enabled bool) Option {
	return func(c *config) { c.wakeWord = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source for usage records.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

func (c *config) sessionConfig(catalog []openairealtime.Tool) *openairealtime.SessionConfig {
	td := c.turnDetection
	cfg := &openairealtime.SessionConfig{
		Modalities:        c.modalities,
		Instructions:      c.instructions,
		Voice:             c.voice,
		InputAudioFormat:  c.audioFormat,
		OutputAudioFormat: c.audioFormat,
		TurnDetection:     &td,
		Tools:             catalog,
		ToolChoice:        "auto",
	}
	if c.transcriptionModel != "" {
		cfg.InputAudioTranscription = &openairealtime.TranscriptionConfig{Model: c.transcriptionModel}
	}
	return cfg
}
