// Package pcm handles 16-bit linear PCM: formats, byte conversion, level
// measurement and rate conversion between the device and wire rates.
package pcm

import (
	"time"
)

const (
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K Format = iota
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Format represents an audio format configuration.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio type")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	return 1
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int {
	return int(time.Duration(f.SampleRate()) * d / time.Second)
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case L16Mono24K:
		return "audio/L16; rate=24000; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	return "audio/L16; invalid"
}
