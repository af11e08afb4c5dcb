package media

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/haivivi/parley/pkg/audio/opus"
	"github.com/haivivi/parley/pkg/buffer"
	"github.com/haivivi/parley/pkg/volume"
)

// PacketSource yields Opus payloads. *openairealtime.RemoteAudio
// implements it.
type PacketSource interface {
	ReadPayload() ([]byte, error)
}

// Speaker plays fixed-size frames. *portaudio.OutputStream implements it.
type Speaker interface {
	FrameSize() int
	WriteFrame(samples []int16) error
	Close() error
}

// Playback routes inbound audio to the volume tap and an optional speaker.
type Playback struct {
	tap     *volume.Tap
	speaker Speaker
	queue   *buffer.Queue[int16]

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewPlayback creates a Playback. speaker may be nil for analysis only.
func NewPlayback(speaker Speaker) *Playback {
	p := &Playback{
		tap:     volume.NewTap(volume.DefaultWindow),
		speaker: speaker,
	}
	if speaker != nil {
		p.queue = buffer.QueueN[int16](speaker.FrameSize() * 8)
		p.wg.Add(1)
		go p.play()
	}
	return p
}

// Write feeds decoded PCM.
func (p *Playback) Write(samples []int16) {
	p.tap.Write(samples)
	if p.queue != nil {
		p.queue.Write(samples)
	}
}

// Analyser returns the inbound level analyser.
func (p *Playback) Analyser() volume.Analyser {
	return p.tap
}

// Flush drops audio queued for the speaker, e.g. when the user barges in.
func (p *Playback) Flush() {
	if p.queue != nil {
		p.queue.Discard()
	}
}

// Close stops playback and releases the speaker. It is safe to call more
// than once.
func (p *Playback) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.queue != nil {
			p.queue.Close()
		}
		p.wg.Wait()
		if p.speaker != nil {
			err = p.speaker.Close()
		}
	})
	return err
}

func (p *Playback) play() {
	defer p.wg.Done()
	frame := make([]int16, p.speaker.FrameSize())
	for {
		if err := readFull(p.queue, frame); err != nil {
			return
		}
		if err := p.speaker.WriteFrame(frame); err != nil {
			slog.Warn("speaker write failed", "error", err)
			return
		}
	}
}

// DecodeFrom decodes Opus packets from src until it fails, feeding p.
// It returns when src returns an error, typically because the remote
// track ended.
func (p *Playback) DecodeFrom(src PacketSource, dec *opus.Decoder) {
	defer dec.Close()
	for {
		payload, err := src.ReadPayload()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("remote audio ended", "error", err)
			}
			return
		}
		samples, err := dec.Decode(payload)
		if err != nil {
			slog.Debug("opus decode failed", "error", err)
			continue
		}
		p.Write(samples)
	}
}

func readFull(q *buffer.Queue[int16], frame []int16) error {
	for off := 0; off < len(frame); {
		n, err := q.Read(frame[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}
