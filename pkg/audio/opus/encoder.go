// Package opus wraps libopus for the 20ms mono voice frames carried on the
// WebRTC audio tracks.
package opus

/*
#cgo pkg-config: opus
#include <opus.h>
#include <stdlib.h>

static int opus_encoder_set_bitrate(OpusEncoder *enc, opus_int32 bitrate) {
    return opus_encoder_ctl(enc, OPUS_SET_BITRATE(bitrate));
}
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// maxPacket is the largest Opus packet the encoder will produce.
const maxPacket = 4000

// Encoder wraps a VoIP-tuned Opus encoder.
type Encoder struct {
	sampleRate int
	channels   int
	cEnc       *C.OpusEncoder
}

// NewEncoder creates a voice encoder. sampleRate must be one of 8000,
// 12000, 16000, 24000 or 48000.
func NewEncoder(sampleRate, channels int) (*Encoder, error) {
	var err C.int
	cEnc := C.opus_encoder_create(C.opus_int32(sampleRate), C.int(channels), C.OPUS_APPLICATION_VOIP, &err)
	if err != C.OPUS_OK {
		return nil, fmt.Errorf("opus: encoder create failed: %s", C.GoString(C.opus_strerror(err)))
	}
	return &Encoder{sampleRate: sampleRate, channels: channels, cEnc: cEnc}, nil
}

// Encode encodes one frame. len(pcm) must be a valid Opus frame size times
// the channel count.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	if e.cEnc == nil {
		return nil, fmt.Errorf("opus: encoder is closed")
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("opus: empty frame")
	}
	buf := make([]byte, maxPacket)
	n := C.opus_encode(e.cEnc,
		(*C.opus_int16)(unsafe.Pointer(&pcm[0])), C.int(len(pcm)/e.channels),
		(*C.uchar)(unsafe.Pointer(&buf[0])), C.opus_int32(len(buf)))
	if n < 0 {
		return nil, fmt.Errorf("opus: encode failed: %s", C.GoString(C.opus_strerror(n)))
	}
	return buf[:n], nil
}

// SetBitrate sets the target bitrate in bits per second.
func (e *Encoder) SetBitrate(bitrate int) error {
	if e.cEnc == nil {
		return fmt.Errorf("opus: encoder is closed")
	}
	if ret := C.opus_encoder_set_bitrate(e.cEnc, C.opus_int32(bitrate)); ret != C.OPUS_OK {
		return fmt.Errorf("opus: set bitrate failed: %s", C.GoString(C.opus_strerror(ret)))
	}
	return nil
}

// SampleRate returns the encoder sample rate.
func (e *Encoder) SampleRate() int {
	return e.sampleRate
}

// Close releases the encoder.
func (e *Encoder) Close() {
	if e.cEnc != nil {
		C.opus_encoder_destroy(e.cEnc)
		e.cEnc = nil
	}
}
