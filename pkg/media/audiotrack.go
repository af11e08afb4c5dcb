package media

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	pionmedia "github.com/pion/webrtc/v3/pkg/media"

	"github.com/haivivi/parley/pkg/audio/opus"
)

// AudioTrack publishes a Microphone as an Opus WebRTC track.
type AudioTrack struct {
	track   *webrtc.TrackLocalStaticSample
	enc     *opus.Encoder
	remove  func()
	frameDu time.Duration
}

// NewAudioTrack encodes mic frames into a new local Opus track.
func NewAudioTrack(mic *Microphone, frame time.Duration) (*AudioTrack, error) {
	rate := mic.Format().SampleRate()
	enc, err := opus.NewEncoder(rate, 1)
	if err != nil {
		return nil, err
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio",
		"parley-"+uuid.NewString()[:8],
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("media: create audio track: %w", err)
	}
	t := &AudioTrack{track: track, enc: enc, frameDu: frame}
	t.remove = mic.AddSink(t.write)
	return t, nil
}

func (t *AudioTrack) write(frame []int16) {
	packet, err := t.enc.Encode(frame)
	if err != nil {
		slog.Debug("opus encode failed", "error", err)
		return
	}
	if err := t.track.WriteSample(pionmedia.Sample{Data: packet, Duration: t.frameDu}); err != nil {
		slog.Debug("write audio sample failed", "error", err)
	}
}

// Local returns the pion track to add to a peer connection.
func (t *AudioTrack) Local() webrtc.TrackLocal {
	return t.track
}

// Close detaches the track from the microphone and releases the encoder.
func (t *AudioTrack) Close() error {
	if t.remove != nil {
		t.remove()
		t.remove = nil
	}
	if t.enc != nil {
		t.enc.Close()
		t.enc = nil
	}
	return nil
}
