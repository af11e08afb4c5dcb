package media

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/haivivi/parley/pkg/audio/pcm"
	"github.com/haivivi/parley/pkg/audio/portaudio"
	"github.com/haivivi/parley/pkg/volume"
)

// ErrDeviceNotFound is returned when a requested input device does not
// exist. There is no fallback to the default device.
var ErrDeviceNotFound = portaudio.ErrDeviceNotFound

// FrameSource yields fixed-size PCM frames. *portaudio.InputStream
// implements it.
type FrameSource interface {
	ReadFrame() ([]int16, error)
	Close() error
}

// Microphone distributes captured frames to sinks.
type Microphone struct {
	src    FrameSource
	format pcm.Format
	tap    *volume.Tap

	enabled atomic.Bool

	mu     sync.Mutex
	sinks  map[int]func([]int16)
	nextID int

	closeOnce sync.Once
	closing   atomic.Bool
	done      chan struct{}
}

// NewMicrophone starts reading src. The microphone is enabled initially.
func NewMicrophone(src FrameSource, format pcm.Format) *Microphone {
	m := &Microphone{
		src:    src,
		format: format,
		tap:    volume.NewTap(volume.DefaultWindow),
		sinks:  make(map[int]func([]int16)),
		done:   make(chan struct{}),
	}
	m.enabled.Store(true)
	go m.run()
	return m
}

// Format returns the capture format.
func (m *Microphone) Format() pcm.Format {
	return m.format
}

// AddSink registers fn for every frame and returns a function removing it.
// Sinks run on the capture goroutine and must not block.
func (m *Microphone) AddSink(fn func(frame []int16)) (remove func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.sinks[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.sinks, id)
		m.mu.Unlock()
	}
}

// SetEnabled mutes or unmutes capture. A muted microphone emits silence.
func (m *Microphone) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
	if !enabled {
		m.tap.Reset()
	}
}

// Enabled reports whether capture is live.
func (m *Microphone) Enabled() bool {
	return m.enabled.Load()
}

// Analyser returns the outbound level analyser.
func (m *Microphone) Analyser() volume.Analyser {
	return m.tap
}

// Close stops capture and releases the device. It is safe to call more
// than once.
func (m *Microphone) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.closing.Store(true)
		err = m.src.Close()
		<-m.done
	})
	return err
}

func (m *Microphone) run() {
	defer close(m.done)
	for {
		frame, err := m.src.ReadFrame()
		if err != nil {
			if !m.closing.Load() && !errors.Is(err, io.EOF) {
				slog.Warn("microphone read failed", "error", err)
			}
			return
		}
		if !m.enabled.Load() {
			frame = make([]int16, len(frame))
		} else {
			m.tap.Write(frame)
		}

		m.mu.Lock()
		sinks := make([]func([]int16), 0, len(m.sinks))
		for _, fn := range m.sinks {
			sinks = append(sinks, fn)
		}
		m.mu.Unlock()
		for _, fn := range sinks {
			fn(frame)
		}
	}
}
