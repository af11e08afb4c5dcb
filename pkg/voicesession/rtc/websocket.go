package rtc

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/haivivi/parley/pkg/audio/pcm"
	"github.com/haivivi/parley/pkg/media"
	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
	"github.com/haivivi/parley/pkg/voicesession"
)

// WebSocket speaks the realtime protocol over a WebSocket. Microphone
// audio is decimated to 24 kHz and appended as events; assistant audio
// arrives as response.audio.delta events.
type WebSocket struct {
	Client *openairealtime.Client

	// Speaker opens the device for assistant audio at 24 kHz.
	Speaker SpeakerFunc
}

var _ voicesession.Negotiator = (*WebSocket)(nil)

var audioDeltaMarker = []byte(`"` + openairealtime.EventTypeResponseAudioDelta + `"`)

// Negotiate dials the WebSocket endpoint.
func (w *WebSocket) Negotiate(ctx context.Context, req voicesession.NegotiateRequest) (voicesession.Link, error) {
	playback, err := newPlayback(w.Speaker)
	if err != nil {
		return nil, err
	}

	h := handlers(req.Events)
	forward := h.OnMessage
	h.OnMessage = func(data []byte) {
		if bytes.Contains(data, audioDeltaMarker) {
			if ev, err := openairealtime.ParseServerEvent(data); err == nil && len(ev.Audio) > 0 {
				playback.Write(pcm.Samples(ev.Audio))
			}
		}
		if forward != nil {
			forward(data)
		}
	}

	conn, err := w.Client.DialWebSocket(ctx, req.Credential, h)
	if err != nil {
		playback.Close()
		return nil, err
	}
	link := &wsLink{WSLink: conn}
	if src, ok := req.Audio.(interface {
		AddSink(fn func(frame []int16)) func()
	}); ok {
		link.remove = src.AddSink(func(frame []int16) {
			if err := conn.AppendAudio(pcm.Bytes(pcm.Decimate2(frame))); err != nil && !conn.Closed() {
				slog.Debug("append audio failed", "error", err)
			}
		})
	}
	if req.Events.RemoteAudio != nil {
		req.Events.RemoteAudio(func() (voicesession.InboundAudio, error) { return playback, nil })
	} else {
		link.playback = playback
	}
	return link, nil
}

// wsLink detaches the microphone when the link closes.
type wsLink struct {
	*openairealtime.WSLink
	remove   func()
	playback *media.Playback
	once     sync.Once
}

func (l *wsLink) Close() error {
	l.once.Do(func() {
		if l.remove != nil {
			l.remove()
		}
		if l.playback != nil {
			l.playback.Close()
		}
	})
	return l.WSLink.Close()
}
