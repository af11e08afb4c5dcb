package rtc

import (
	"context"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v3"

	"github.com/haivivi/parley/pkg/audio/opus"
	"github.com/haivivi/parley/pkg/media"
	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
	"github.com/haivivi/parley/pkg/voicesession"
)

// SpeakerFunc opens an output device for assistant audio.
type SpeakerFunc func() (media.Speaker, error)

// WebRTC negotiates a pion peer connection with the realtime endpoint.
type WebRTC struct {
	Client *openairealtime.Client

	// Speaker opens the device for assistant audio at 48 kHz. Nil measures
	// the inbound level without playing it.
	Speaker SpeakerFunc
}

var _ voicesession.Negotiator = (*WebRTC)(nil)

// Negotiate attaches the session's media and opens the event channel.
func (w *WebRTC) Negotiate(ctx context.Context, req voicesession.NegotiateRequest) (voicesession.Link, error) {
	ev := req.Events
	cfg := openairealtime.PeerConfig{
		Handlers:   handlers(ev),
		Credential: req.Credential,
		Voice:      req.Voice,
		OnStateChange: func(state webrtc.PeerConnectionState) {
			if state == webrtc.PeerConnectionStateFailed && ev.Failed != nil {
				ev.Failed()
			}
		},
		OnRemoteAudio: func(track *openairealtime.RemoteAudio) {
			if ev.RemoteAudio == nil {
				return
			}
			ev.RemoteAudio(func() (voicesession.InboundAudio, error) {
				return w.play(track)
			})
		},
	}
	if src, ok := req.Audio.(interface {
		LocalTrack() (webrtc.TrackLocal, error)
	}); ok {
		track, err := src.LocalTrack()
		if err != nil {
			return nil, err
		}
		cfg.AudioTrack = track
	}
	if v, ok := req.Video.(interface{ Local() webrtc.TrackLocal }); ok {
		cfg.VideoTrack = v.Local()
	}

	peer, err := w.Client.Negotiate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return peer, nil
}

func (w *WebRTC) play(track *openairealtime.RemoteAudio) (voicesession.InboundAudio, error) {
	if !strings.EqualFold(track.MimeType(), webrtc.MimeTypeOpus) {
		return nil, fmt.Errorf("rtc: unsupported remote codec %s", track.MimeType())
	}
	dec, err := opus.NewDecoder(int(track.ClockRate()), 1)
	if err != nil {
		return nil, err
	}
	p, err := newPlayback(w.Speaker)
	if err != nil {
		dec.Close()
		return nil, err
	}
	go p.DecodeFrom(track, dec)
	return p, nil
}

func newPlayback(open SpeakerFunc) (*media.Playback, error) {
	if open == nil {
		return media.NewPlayback(nil), nil
	}
	spk, err := open()
	if err != nil {
		return nil, err
	}
	return media.NewPlayback(spk), nil
}

func handlers(ev voicesession.LinkEvents) openairealtime.Handlers {
	return openairealtime.Handlers{
		OnOpen:    ev.Opened,
		OnMessage: ev.Message,
		OnClose:   ev.Closed,
		OnError:   ev.Errored,
	}
}
