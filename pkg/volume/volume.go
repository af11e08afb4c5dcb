// Package volume measures speech loudness for the UI. A Tap keeps a short
// window of recent samples from one audio path; a Monitor samples the
// outbound and inbound taps on a fixed interval and publishes the louder.
package volume

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haivivi/parley/pkg/audio/pcm"
	"github.com/haivivi/parley/pkg/buffer"
)

// DefaultInterval is the sampling period of a Monitor.
const DefaultInterval = 100 * time.Millisecond

// DefaultWindow is the number of samples a Tap analyses, matching a
// 2048-point analyser.
const DefaultWindow = 2048

// Analyser reports the current level of one audio path on a 0..1 scale.
type Analyser interface {
	Level() float64
}

// Tap is an Analyser fed with PCM frames.
type Tap struct {
	window *buffer.Window[int16]
}

// NewTap creates a Tap over the last size samples.
func NewTap(size int) *Tap {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Tap{window: buffer.WindowN[int16](size)}
}

// Write feeds a frame into the window.
func (t *Tap) Write(frame []int16) {
	t.window.Write(frame)
}

// Level returns the RMS of the current window.
func (t *Tap) Level() float64 {
	return clamp(pcm.RMS(t.window.Snapshot()))
}

// Reset clears the window, e.g. when the path is muted.
func (t *Tap) Reset() {
	t.window.Reset()
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Monitor samples two analysers and keeps the larger level.
type Monitor struct {
	interval time.Duration
	onUpdate func(float64)

	mu       sync.Mutex
	outbound Analyser
	inbound  Analyser
	stop     chan struct{}
	done     chan struct{}

	current atomic.Uint64
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval overrides the sampling interval.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithUpdate sets a function called with every sampled level.
func WithUpdate(fn func(level float64)) MonitorOption {
	return func(m *Monitor) { m.onUpdate = fn }
}

// NewMonitor creates an idle monitor.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{interval: DefaultInterval}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins sampling outbound. Calling Start on a running monitor
// replaces the outbound analyser and keeps the inbound one.
func (m *Monitor) Start(outbound Analyser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbound = outbound
	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(m.stop, m.done)
}

// SetInbound attaches or replaces the inbound analyser. nil detaches it.
func (m *Monitor) SetInbound(a Analyser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = a
}

// Stop halts sampling, drops both analysers and resets the level to zero.
// It is safe to call on a stopped monitor.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.outbound, m.inbound = nil, nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	m.current.Store(0)
}

// Current returns the most recently sampled level.
func (m *Monitor) Current() float64 {
	return math.Float64frombits(m.current.Load())
}

func (m *Monitor) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	m.mu.Lock()
	out, in := m.outbound, m.inbound
	m.mu.Unlock()

	var level float64
	if out != nil {
		level = out.Level()
	}
	if in != nil {
		level = max(level, in.Level())
	}
	level = clamp(level)
	m.current.Store(math.Float64bits(level))
	if m.onUpdate != nil {
		m.onUpdate(level)
	}
}
