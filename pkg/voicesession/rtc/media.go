// Package rtc connects voicesession to real devices and transports:
// PortAudio capture and playback, pion WebRTC and the WebSocket
// transport of the realtime API.
package rtc

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v3"

	"github.com/haivivi/parley/pkg/media"
	"github.com/haivivi/parley/pkg/voicesession"
	"github.com/haivivi/parley/pkg/volume"
)

// Media implements voicesession.MediaAcquirer.
type Media struct {
	Acquirer *media.Acquirer
}

var _ voicesession.MediaAcquirer = (*Media)(nil)

// AcquireMicrophone opens the capture device.
func (m *Media) AcquireMicrophone(ctx context.Context, deviceID string) (voicesession.AudioInput, error) {
	mic, err := m.Acquirer.AcquireMicrophone(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return &Microphone{acq: m.Acquirer, mic: mic}, nil
}

// CreatePlaceholderVideoTrack creates the VP8 placeholder track.
func (m *Media) CreatePlaceholderVideoTrack() (voicesession.Track, error) {
	return m.Acquirer.CreatePlaceholderVideoTrack()
}

// Microphone is a session's capture device. The Opus track is created on
// first use so transports without media tracks skip the encoder.
type Microphone struct {
	acq *media.Acquirer
	mic *media.Microphone

	mu    sync.Mutex
	track *media.AudioTrack
}

// SetEnabled mutes or unmutes capture.
func (m *Microphone) SetEnabled(enabled bool) {
	m.mic.SetEnabled(enabled)
}

// Analyser returns the outbound level analyser.
func (m *Microphone) Analyser() volume.Analyser {
	return m.mic.Analyser()
}

// AddSink registers fn for every captured frame.
func (m *Microphone) AddSink(fn func(frame []int16)) (remove func()) {
	return m.mic.AddSink(fn)
}

// LocalTrack returns the Opus track publishing this microphone.
func (m *Microphone) LocalTrack() (webrtc.TrackLocal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.track == nil {
		t, err := m.acq.NewAudioTrack(m.mic)
		if err != nil {
			return nil, err
		}
		m.track = t
	}
	return m.track.Local(), nil
}

// Close releases the track and the capture device.
func (m *Microphone) Close() error {
	m.mu.Lock()
	track := m.track
	m.track = nil
	m.mu.Unlock()
	if track != nil {
		track.Close()
	}
	return m.mic.Close()
}
