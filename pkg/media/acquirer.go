package media

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haivivi/parley/pkg/audio/pcm"
	"github.com/haivivi/parley/pkg/audio/portaudio"
)

// DefaultFrameDuration is the capture and Opus frame length.
const DefaultFrameDuration = 20 * time.Millisecond

// Acquirer opens local capture and playback devices through PortAudio.
type Acquirer struct {
	// FrameDuration is the capture frame length. Zero means 20ms.
	FrameDuration time.Duration

	// OutputDevice selects the speaker by exact name or index; empty means
	// the system default.
	OutputDevice string
}

// CaptureFormat is the microphone format. Opus runs natively at 48 kHz.
const CaptureFormat = pcm.L16Mono48K

func (a *Acquirer) frame() time.Duration {
	if a.FrameDuration <= 0 {
		return DefaultFrameDuration
	}
	return a.FrameDuration
}

// AcquireMicrophone opens the capture device identified by deviceID.
// An unknown non-empty id fails with ErrDeviceNotFound.
func (a *Acquirer) AcquireMicrophone(ctx context.Context, deviceID string) (*Microphone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dev, err := portaudio.FindInput(deviceID)
	if err != nil {
		return nil, fmt.Errorf("media: microphone: %w", err)
	}
	in, err := portaudio.OpenInput(dev, CaptureFormat, a.frame())
	if err != nil {
		return nil, fmt.Errorf("media: open %q: %w", dev.Name, err)
	}
	slog.Debug("microphone acquired", "device", dev.Name, "format", CaptureFormat)
	return NewMicrophone(in, CaptureFormat), nil
}

// NewAudioTrack publishes mic as an Opus track.
func (a *Acquirer) NewAudioTrack(mic *Microphone) (*AudioTrack, error) {
	return NewAudioTrack(mic, a.frame())
}

// CreatePlaceholderVideoTrack returns a video track with no frames.
func (a *Acquirer) CreatePlaceholderVideoTrack() (*VideoTrack, error) {
	return NewPlaceholderVideoTrack()
}

// OpenSpeaker opens the output device for assistant audio in format.
func (a *Acquirer) OpenSpeaker(format pcm.Format) (Speaker, error) {
	dev, err := portaudio.FindOutput(a.OutputDevice)
	if err != nil {
		return nil, fmt.Errorf("media: speaker: %w", err)
	}
	out, err := portaudio.OpenOutput(dev, format, a.frame())
	if err != nil {
		return nil, fmt.Errorf("media: open %q: %w", dev.Name, err)
	}
	return out, nil
}
