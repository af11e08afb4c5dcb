package portaudio

import (
	"time"

	"github.com/haivivi/parley/pkg/audio/pcm"
)

// InputStream captures mono audio from one device.
type InputStream struct {
	s      *stream
	format pcm.Format
	device DeviceInfo
}

// OpenInput opens dev for capture. Each Read returns one buffer of
// bufferDuration.
func OpenInput(dev DeviceInfo, format pcm.Format, bufferDuration time.Duration) (*InputStream, error) {
	s, err := openStream(dev, true, float64(format.SampleRate()), format.SamplesInDuration(bufferDuration))
	if err != nil {
		return nil, err
	}
	return &InputStream{s: s, format: format, device: dev}, nil
}

// ReadFrame blocks for the next buffer of samples.
func (is *InputStream) ReadFrame() ([]int16, error) {
	return is.s.read()
}

// Format returns the PCM format.
func (is *InputStream) Format() pcm.Format {
	return is.format
}

// Device returns the device being captured.
func (is *InputStream) Device() DeviceInfo {
	return is.device
}

// Close stops and closes the stream.
func (is *InputStream) Close() error {
	return is.s.close()
}

// OutputStream plays mono audio to one device.
type OutputStream struct {
	s      *stream
	format pcm.Format
}

// OpenOutput opens dev for playback. Each Write plays one buffer of
// bufferDuration, zero-padded if samples is short.
func OpenOutput(dev DeviceInfo, format pcm.Format, bufferDuration time.Duration) (*OutputStream, error) {
	s, err := openStream(dev, false, float64(format.SampleRate()), format.SamplesInDuration(bufferDuration))
	if err != nil {
		return nil, err
	}
	return &OutputStream{s: s, format: format}, nil
}

// FrameSize returns the number of samples consumed per Write.
func (os *OutputStream) FrameSize() int {
	return os.s.frames
}

// WriteFrame plays one buffer.
func (os *OutputStream) WriteFrame(samples []int16) error {
	return os.s.write(samples)
}

// Format returns the PCM format.
func (os *OutputStream) Format() pcm.Format {
	return os.format
}

// Close stops and closes the stream.
func (os *OutputStream) Close() error {
	return os.s.close()
}
