package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// RealtimeService is the service file name of the realtime settings.
const RealtimeService = "realtime"

// Transports.
const (
	TransportWebRTC    = "webrtc"
	TransportWebSocket = "websocket"
)

// Realtime is the content of realtime.yaml.
type Realtime struct {
	// APIKey mints session tokens. Empty falls back to $OPENAI_API_KEY; a
	// token broker that authenticates on its own may need none.
	APIKey string `yaml:"api_key,omitempty"`

	TokenURL     string `yaml:"token_url,omitempty"`
	RealtimeURL  string `yaml:"realtime_url,omitempty"`
	WebSocketURL string `yaml:"websocket_url,omitempty"`

	Model              string `yaml:"model,omitempty"`
	Voice              string `yaml:"voice,omitempty"`
	Instructions       string `yaml:"instructions,omitempty"`
	TranscriptionModel string `yaml:"transcription_model,omitempty"`
	VAD                *VAD   `yaml:"vad,omitempty"`

	InputDevice  string `yaml:"input_device,omitempty"`
	OutputDevice string `yaml:"output_device,omitempty"`
	NoPlayback   bool   `yaml:"no_playback,omitempty"`
	Transport    string `yaml:"transport,omitempty"`

	SettleDelay string `yaml:"settle_delay,omitempty"`
	OpenTimeout string `yaml:"open_timeout,omitempty"`

	QuietTools []string `yaml:"quiet_tools,omitempty"`
	ToolsFile  string   `yaml:"tools_file,omitempty"`
	UsageDir   string   `yaml:"usage_dir,omitempty"`
	WakeWord   bool     `yaml:"wake_word,omitempty"`
}

// VAD holds server voice activity detection parameters.
type VAD struct {
	Threshold         float64 `yaml:"threshold,omitempty"`
	PrefixPaddingMs   int     `yaml:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `yaml:"silence_duration_ms,omitempty"`
}

// LoadRealtime reads realtime.yaml from contextDir. A context without the
// file yields zero settings.
func LoadRealtime(contextDir string) (*Realtime, error) {
	rt, err := LoadService[Realtime](contextDir, RealtimeService)
	if errors.Is(err, ErrServiceNotFound) {
		rt, err = &Realtime{}, nil
	}
	if err != nil {
		return nil, err
	}
	if rt.APIKey == "" {
		rt.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return rt, rt.Validate()
}

// Validate checks enumerations and durations.
func (r *Realtime) Validate() error {
	switch r.Transport {
	case "", TransportWebRTC, TransportWebSocket:
	default:
		return fmt.Errorf("realtime: transport %q must be %s or %s", r.Transport, TransportWebRTC, TransportWebSocket)
	}
	if _, err := r.SettleDelayDuration(); err != nil {
		return err
	}
	if _, err := r.OpenTimeoutDuration(); err != nil {
		return err
	}
	if r.VAD != nil && (r.VAD.Threshold < 0 || r.VAD.Threshold > 1) {
		return fmt.Errorf("realtime: vad.threshold %v out of range 0..1", r.VAD.Threshold)
	}
	return nil
}

// TransportName returns the configured transport, defaulting to WebRTC.
func (r *Realtime) TransportName() string {
	if r.Transport == "" {
		return TransportWebRTC
	}
	return r.Transport
}

// SettleDelayDuration parses settle_delay. Zero means unset.
func (r *Realtime) SettleDelayDuration() (time.Duration, error) {
	return parseDuration("settle_delay", r.SettleDelay)
}

// OpenTimeoutDuration parses open_timeout. Zero means unset.
func (r *Realtime) OpenTimeoutDuration() (time.Duration, error) {
	return parseDuration("open_timeout", r.OpenTimeout)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("realtime: %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("realtime: %s must not be negative", field)
	}
	return d, nil
}
