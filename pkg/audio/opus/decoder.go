package opus

/*
#cgo pkg-config: opus
#include <opus.h>
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// maxFrameSamples is 120ms at 48kHz, the longest Opus frame.
const maxFrameSamples = 5760

// Decoder wraps an Opus decoder.
type Decoder struct {
	sampleRate int
	channels   int
	cDec       *C.OpusDecoder
}

// NewDecoder creates a decoder producing PCM at sampleRate.
func NewDecoder(sampleRate, channels int) (*Decoder, error) {
	var err C.int
	cDec := C.opus_decoder_create(C.opus_int32(sampleRate), C.int(channels), &err)
	if err != C.OPUS_OK {
		return nil, fmt.Errorf("opus: decoder create failed: %s", C.GoString(C.opus_strerror(err)))
	}
	return &Decoder{sampleRate: sampleRate, channels: channels, cDec: cDec}, nil
}

// Decode decodes one packet. An empty packet runs packet loss concealment
// for a 20ms gap.
func (d *Decoder) Decode(packet []byte) ([]int16, error) {
	if d.cDec == nil {
		return nil, fmt.Errorf("opus: decoder is closed")
	}
	buf := make([]int16, maxFrameSamples*d.channels)

	var dataPtr *C.uchar
	var dataLen C.opus_int32
	frames := C.int(maxFrameSamples)
	if len(packet) > 0 {
		dataPtr = (*C.uchar)(unsafe.Pointer(&packet[0]))
		dataLen = C.opus_int32(len(packet))
	} else {
		frames = C.int(d.sampleRate / 50)
	}

	n := C.opus_decode(d.cDec, dataPtr, dataLen,
		(*C.opus_int16)(unsafe.Pointer(&buf[0])), frames, 0)
	if n < 0 {
		return nil, fmt.Errorf("opus: decode failed: %s", C.GoString(C.opus_strerror(n)))
	}
	return buf[:int(n)*d.channels], nil
}

// Close releases the decoder.
func (d *Decoder) Close() {
	if d.cDec != nil {
		C.opus_decoder_destroy(d.cDec)
		d.cDec = nil
	}
}
