// Package portaudio provides Go bindings for the PortAudio library.
//
// It covers device enumeration with exact device selection and blocking
// 16-bit mono input and output streams.
//
// For go build: requires portaudio installed via pkg-config (brew install portaudio)
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

static PaError pa_open_stream(void **stream,
                              const PaStreamParameters *inputParams,
                              const PaStreamParameters *outputParams,
                              double sampleRate,
                              unsigned long framesPerBuffer,
                              PaStreamFlags streamFlags) {
    return Pa_OpenStream((PaStream**)stream, inputParams, outputParams, sampleRate,
                         framesPerBuffer, streamFlags, NULL, NULL);
}

static PaError pa_start_stream(void *stream) {
    return Pa_StartStream((PaStream*)stream);
}

static PaError pa_stop_stream(void *stream) {
    return Pa_StopStream((PaStream*)stream);
}

static PaError pa_close_stream(void *stream) {
    return Pa_CloseStream((PaStream*)stream);
}

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}

static PaError pa_write_stream(void *stream, const void *buffer, unsigned long frames) {
    return Pa_WriteStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"unsafe"
)

// ErrDeviceNotFound is returned when a requested device does not exist.
var ErrDeviceNotFound = errors.New("portaudio: device not found")

var (
	initOnce sync.Once
	initErr  error
)

func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return errors.New(C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library.
// It is safe to call multiple times.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// DeviceInfo contains information about an audio device.
type DeviceInfo struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"max_input_channels"`
	MaxOutputChannels int     `json:"max_output_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate"`
	IsDefaultInput    bool    `json:"is_default_input,omitzero"`
	IsDefaultOutput   bool    `json:"is_default_output,omitzero"`

	lowInputLatency  float64
	lowOutputLatency float64
}

// Devices returns the available audio devices.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}
	defaultInput := int(C.Pa_GetDefaultInputDevice())
	defaultOutput := int(C.Pa_GetDefaultOutputDevice())

	devices := make([]DeviceInfo, 0, count)
	for i := 0; i < count; i++ {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil {
			continue
		}
		devices = append(devices, DeviceInfo{
			Index:             i,
			Name:              C.GoString(info.name),
			MaxInputChannels:  int(info.maxInputChannels),
			MaxOutputChannels: int(info.maxOutputChannels),
			DefaultSampleRate: float64(info.defaultSampleRate),
			IsDefaultInput:    i == defaultInput,
			IsDefaultOutput:   i == defaultOutput,
			lowInputLatency:   float64(info.defaultLowInputLatency),
			lowOutputLatency:  float64(info.defaultLowOutputLatency),
		})
	}
	return devices, nil
}

// FindInput returns the input device identified by id. An empty id selects
// the default input. A non-empty id must match a device name or index
// exactly; there is no fallback to another device.
func FindInput(id string) (DeviceInfo, error) {
	devices, err := Devices()
	if err != nil {
		return DeviceInfo{}, err
	}
	return matchDevice(devices, id, true)
}

// FindOutput is FindInput for playback devices.
func FindOutput(id string) (DeviceInfo, error) {
	devices, err := Devices()
	if err != nil {
		return DeviceInfo{}, err
	}
	return matchDevice(devices, id, false)
}

func matchDevice(devices []DeviceInfo, id string, input bool) (DeviceInfo, error) {
	usable := func(d DeviceInfo) bool {
		if input {
			return d.MaxInputChannels > 0
		}
		return d.MaxOutputChannels > 0
	}
	if id == "" {
		for _, d := range devices {
			if usable(d) && ((input && d.IsDefaultInput) || (!input && d.IsDefaultOutput)) {
				return d, nil
			}
		}
		return DeviceInfo{}, fmt.Errorf("%w: no default device", ErrDeviceNotFound)
	}
	idx, idxErr := strconv.Atoi(id)
	for _, d := range devices {
		if !usable(d) {
			continue
		}
		if d.Name == id || (idxErr == nil && d.Index == idx) {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
}

// stream is a blocking PortAudio stream with a C-side transfer buffer.
type stream struct {
	mu     sync.Mutex
	stream unsafe.Pointer
	buffer unsafe.Pointer
	frames int
	closed bool
}

func openStream(dev DeviceInfo, input bool, sampleRate float64, framesPerBuffer int) (*stream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	params := &C.PaStreamParameters{
		device:       C.PaDeviceIndex(dev.Index),
		channelCount: 1,
		sampleFormat: C.paInt16,
	}
	var inputParams, outputParams *C.PaStreamParameters
	if input {
		params.suggestedLatency = C.PaTime(dev.lowInputLatency)
		inputParams = params
	} else {
		params.suggestedLatency = C.PaTime(dev.lowOutputLatency)
		outputParams = params
	}

	var paStream unsafe.Pointer
	err := paError(C.pa_open_stream(
		&paStream,
		inputParams,
		outputParams,
		C.double(sampleRate),
		C.ulong(framesPerBuffer),
		C.paClipOff,
	))
	if err != nil {
		return nil, fmt.Errorf("portaudio: open %q: %w", dev.Name, err)
	}
	s := &stream{
		stream: paStream,
		buffer: C.malloc(C.size_t(framesPerBuffer * 2)),
		frames: framesPerBuffer,
	}
	if err := paError(C.pa_start_stream(paStream)); err != nil {
		s.close()
		return nil, fmt.Errorf("portaudio: start %q: %w", dev.Name, err)
	}
	return s, nil
}

func (s *stream) read() ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("stream closed")
	}
	if err := paError(C.pa_read_stream(s.stream, s.buffer, C.ulong(s.frames))); err != nil {
		return nil, err
	}
	samples := make([]int16, s.frames)
	C.memcpy(unsafe.Pointer(&samples[0]), s.buffer, C.size_t(s.frames*2))
	return samples, nil
}

func (s *stream) write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("stream closed")
	}
	n := min(len(samples), s.frames)
	C.memset(s.buffer, 0, C.size_t(s.frames*2))
	if n > 0 {
		C.memcpy(s.buffer, unsafe.Pointer(&samples[0]), C.size_t(n*2))
	}
	return paError(C.pa_write_stream(s.stream, s.buffer, C.ulong(s.frames)))
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	C.pa_stop_stream(s.stream)
	err := paError(C.pa_close_stream(s.stream))
	C.free(s.buffer)
	return err
}
