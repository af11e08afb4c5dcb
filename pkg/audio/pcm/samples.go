package pcm

import (
	"encoding/binary"
	"math"
)

// RMS returns the root mean square of samples on a 0..1 scale.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Decimate2 halves the sample rate by averaging adjacent pairs. A trailing
// odd sample is dropped.
func Decimate2(samples []int16) []int16 {
	out := make([]int16, len(samples)/2)
	for i := range out {
		out[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
	}
	return out
}

// Upsample2 doubles the sample rate by linear interpolation.
func Upsample2(samples []int16) []int16 {
	out := make([]int16, len(samples)*2)
	for i, s := range samples {
		next := s
		if i+1 < len(samples) {
			next = samples[i+1]
		}
		out[2*i] = s
		out[2*i+1] = int16((int32(s) + int32(next)) / 2)
	}
	return out
}

// Bytes encodes samples as little-endian 16-bit PCM.
func Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// Samples decodes little-endian 16-bit PCM. A trailing odd byte is dropped.
func Samples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return out
}
