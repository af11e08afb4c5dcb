package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/haivivi/parley/cmd/parley/internal/config"
	"github.com/haivivi/parley/pkg/audio/pcm"
	"github.com/haivivi/parley/pkg/audio/portaudio"
	"github.com/haivivi/parley/pkg/media"
	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
	"github.com/haivivi/parley/pkg/tools"
	"github.com/haivivi/parley/pkg/usagelog"
	"github.com/haivivi/parley/pkg/voicesession"
	"github.com/haivivi/parley/pkg/voicesession/rtc"
)

// voiceSession is an engine wired to local devices plus the resources
// that outlive individual sessions.
type voiceSession struct {
	*voicesession.Engine
	usage *usagelog.Badger
}

// Close stops the session and closes the usage store.
func (s *voiceSession) Close() error {
	s.StopSession()
	if s.usage != nil {
		return s.usage.Close()
	}
	return nil
}

// newVoiceSession builds an engine from the realtime settings.
func newVoiceSession(rt *config.Realtime, logger *slog.Logger) (*voiceSession, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize audio: %w", err)
	}

	client := newRealtimeClient(rt)
	acq := &media.Acquirer{OutputDevice: rt.OutputDevice}
	opts, err := engineOptions(rt, logger)
	if err != nil {
		return nil, err
	}

	var negotiator voicesession.Negotiator
	switch rt.TransportName() {
	case config.TransportWebSocket:
		negotiator = &rtc.WebSocket{Client: client, Speaker: speaker(rt, acq, pcm.L16Mono24K)}
		opts = append(opts, voicesession.WithAudioFormat(openairealtime.AudioFormatPCM16))
	default:
		negotiator = &rtc.WebRTC{Client: client, Speaker: speaker(rt, acq, pcm.L16Mono48K)}
	}

	vs := &voiceSession{}
	if rt.UsageDir != "" {
		store, err := usagelog.NewBadger(usagelog.BadgerOptions{Dir: rt.UsageDir, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("open usage store: %w", err)
		}
		vs.usage = store
		opts = append(opts, voicesession.WithUsageStore(store))
	}

	vs.Engine = voicesession.New(client, &rtc.Media{Acquirer: acq}, negotiator, opts...)
	return vs, nil
}

func newRealtimeClient(rt *config.Realtime) *openairealtime.Client {
	var opts []openairealtime.Option
	if rt.APIKey != "" {
		opts = append(opts, openairealtime.WithAPIKey(rt.APIKey))
	}
	if rt.TokenURL != "" {
		opts = append(opts, openairealtime.WithTokenURL(rt.TokenURL))
	}
	if rt.RealtimeURL != "" {
		opts = append(opts, openairealtime.WithHTTPURL(rt.RealtimeURL))
	}
	if rt.WebSocketURL != "" {
		opts = append(opts, openairealtime.WithWebSocketURL(rt.WebSocketURL))
	}
	if rt.Model != "" {
		opts = append(opts, openairealtime.WithModel(rt.Model))
	}
	return openairealtime.NewClient(opts...)
}

func speaker(rt *config.Realtime, acq *media.Acquirer, format pcm.Format) rtc.SpeakerFunc {
	if rt.NoPlayback {
		return nil
	}
	return func() (media.Speaker, error) {
		return acq.OpenSpeaker(format)
	}
}

// engineOptions maps the realtime settings onto engine options. It does
// not touch audio devices.
func engineOptions(rt *config.Realtime, logger *slog.Logger) ([]voicesession.Option, error) {
	registry, quiet, err := buildRegistry(rt)
	if err != nil {
		return nil, err
	}
	opts := []voicesession.Option{
		voicesession.WithLogger(logger),
		voicesession.WithRegistry(registry),
		voicesession.WithQuietTools(quiet...),
		voicesession.WithWakeWord(rt.WakeWord),
		voicesession.WithCue(func(name string) {
			logger.Info("calling tool", "tool", name)
		}),
	}
	if rt.Voice != "" {
		opts = append(opts, voicesession.WithVoice(rt.Voice))
	}
	if rt.InputDevice != "" {
		opts = append(opts, voicesession.WithInputDevice(rt.InputDevice))
	}
	if rt.Instructions != "" {
		opts = append(opts, voicesession.WithInstructions(rt.Instructions))
	}
	if rt.TranscriptionModel != "" {
		opts = append(opts, voicesession.WithTranscriptionModel(rt.TranscriptionModel))
	}
	if rt.Model != "" {
		opts = append(opts, voicesession.WithModel(rt.Model))
	}
	if rt.VAD != nil {
		td := voicesession.DefaultTurnDetection
		if rt.VAD.Threshold > 0 {
			td.Threshold = rt.VAD.Threshold
		}
		if rt.VAD.PrefixPaddingMs > 0 {
			td.PrefixPaddingMs = rt.VAD.PrefixPaddingMs
		}
		if rt.VAD.SilenceDurationMs > 0 {
			td.SilenceDurationMs = rt.VAD.SilenceDurationMs
		}
		opts = append(opts, voicesession.WithTurnDetection(td))
	}
	if d, _ := rt.SettleDelayDuration(); d > 0 {
		opts = append(opts, voicesession.WithSettleDelay(d))
	}
	if d, _ := rt.OpenTimeoutDuration(); d > 0 {
		opts = append(opts, voicesession.WithOpenTimeout(d))
	}
	return opts, nil
}

// buildRegistry registers the built-in tools and the HTTP tools of
// tools_file. It returns the quiet names: calls to them are kept out of the
// conversation log but still play the cue and get a reply.
func buildRegistry(rt *config.Realtime) (*tools.Registry, []string, error) {
	registry := tools.NewRegistry()
	if err := registry.Register(tools.CurrentTime(nil)); err != nil {
		return nil, nil, err
	}
	quiet := append([]string(nil), rt.QuietTools...)
	if rt.ToolsFile == "" {
		return registry, quiet, nil
	}

	defs, err := tools.LoadHTTPToolsFile(rt.ToolsFile)
	if err != nil {
		return nil, nil, err
	}
	client := &http.Client{Timeout: 30 * time.Second}
	for i := range defs {
		if err := registry.Register(defs[i].Tool(client)); err != nil {
			return nil, nil, fmt.Errorf("register %s: %w", defs[i].Name, err)
		}
		if defs[i].Quiet {
			quiet = append(quiet, defs[i].Name)
		}
	}
	return registry, quiet, nil
}
