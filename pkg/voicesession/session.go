package voicesession

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
)

type eventKind int

const (
	evOpened eventKind = iota
	evMessage
	evClosed
	evErrored
	evFailed
	evRemoteAudio
)

type linkEvent struct {
	kind  eventKind
	data  []byte
	err   error
	build func() (InboundAudio, error)
}

// session is one generation of a live connection. Transport callbacks post
// events to a single loop goroutine; release tears everything down.
type session struct {
	engine *Engine
	gen    uint64

	ctx    context.Context
	cancel context.CancelFunc

	events   chan linkEvent
	done     chan struct{}
	loopDone chan struct{}
	opened   chan struct{}
	lost     chan struct{}

	openOnce    sync.Once
	lostOnce    sync.Once
	failOnce    sync.Once
	releaseOnce sync.Once

	config *configSender

	mu    sync.Mutex
	link  Link
	audio AudioInput
	video Track

	// Owned by the loop goroutine.
	inbound  InboundAudio
	remoteID string
}

func newSession(e *Engine, gen uint64) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		engine:   e,
		gen:      gen,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan linkEvent, 256),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		opened:   make(chan struct{}),
		lost:     make(chan struct{}),
	}
	s.config = newConfigSender(s.sendRaw)
	go s.run()
	return s
}

func (s *session) linkEvents() LinkEvents {
	return LinkEvents{
		Opened:  func() { s.post(linkEvent{kind: evOpened}) },
		Message: func(data []byte) { s.post(linkEvent{kind: evMessage, data: data}) },
		Closed:  func() { s.post(linkEvent{kind: evClosed}) },
		Errored: func(err error) { s.post(linkEvent{kind: evErrored, err: err}) },
		Failed:  func() { s.post(linkEvent{kind: evFailed}) },
		RemoteAudio: func(build func() (InboundAudio, error)) {
			s.post(linkEvent{kind: evRemoteAudio, build: build})
		},
	}
}

// post queues ev for the loop. Events posted after release are dropped.
func (s *session) post(ev linkEvent) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *session) run() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *session) setLink(l Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link = l
}

func (s *session) getLink() Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

func (s *session) setMicrophone(a AudioInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = a
}

func (s *session) microphone() AudioInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio
}

func (s *session) setVideo(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.video = t
}

func (s *session) markLost() {
	s.lostOnce.Do(func() { close(s.lost) })
}

// transportLost handles a closed, errored or failed transport. Before the
// session is active it fails the pending start; afterwards it schedules
// one restart for this generation unless a stop is under way.
func (s *session) transportLost(reason string) {
	if s.ctx.Err() != nil {
		return
	}
	if !s.engine.lostOrActive(s) {
		return
	}
	s.failOnce.Do(func() {
		s.engine.log.Warn("transport lost", "reason", reason, "generation", s.gen)
		go s.engine.restart(s, reason)
	})
}

// release tears down the session: the loop and link first, then inbound
// audio, then local media. It is safe to call more than once.
func (s *session) release() {
	s.releaseOnce.Do(func() {
		s.cancel()
		close(s.done)
		<-s.loopDone

		log := s.engine.log
		if l := s.getLink(); l != nil {
			if err := l.Close(); err != nil {
				log.Debug("close link", "error", err)
			}
		}
		if s.inbound != nil {
			if err := s.inbound.Close(); err != nil {
				log.Debug("close inbound audio", "error", err)
			}
			s.inbound = nil
		}
		s.mu.Lock()
		audio, video := s.audio, s.video
		s.link, s.audio, s.video = nil, nil, nil
		s.mu.Unlock()
		if audio != nil {
			if err := audio.Close(); err != nil {
				log.Debug("close microphone", "error", err)
			}
		}
		if video != nil {
			if err := video.Close(); err != nil {
				log.Debug("close video track", "error", err)
			}
		}
		s.markLost()
	})
}

func (s *session) sendRaw(data []byte) error {
	select {
	case <-s.done:
		return ErrNotActive
	default:
	}
	l := s.getLink()
	if l == nil {
		return ErrNotActive
	}
	return l.Send(data)
}

func (s *session) send(ev *openairealtime.ClientEvent) error {
	data, err := ev.Marshal()
	if err != nil {
		return err
	}
	return s.sendRaw(data)
}

// SendFunctionOutput implements tools.Replier.
func (s *session) SendFunctionOutput(callID, output string) error {
	return s.send(openairealtime.FunctionCallOutput(callID, output))
}

// SendResponseCreate implements tools.Replier.
func (s *session) SendResponseCreate() error {
	return s.send(openairealtime.ResponseCreate())
}

func (s *session) sendUserText(text string) error {
	return s.send(openairealtime.UserText(text))
}

func (s *session) sendCancel() error {
	return s.send(openairealtime.ResponseCancel())
}

// configSender sends session.update, skipping a configuration identical
// to the previous one sent.
type configSender struct {
	mu   sync.Mutex
	last []byte
	raw  func([]byte) error
}

func newConfigSender(raw func([]byte) error) *configSender {
	return &configSender{raw: raw}
}

func (c *configSender) send(cfg *openairealtime.SessionConfig) (sent bool, err error) {
	key, err := json.Marshal(cfg)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last != nil && bytes.Equal(c.last, key) {
		return false, nil
	}
	data, err := openairealtime.SessionUpdate(cfg).Marshal()
	if err != nil {
		return false, err
	}
	if err := c.raw(data); err != nil {
		return false, err
	}
	c.last = key
	return true, nil
}
