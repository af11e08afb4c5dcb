package voicesession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// StopOptions controls Stop.
type StopOptions struct {
	// PreserveStatus keeps the current status message instead of
	// reporting "Session stopped". Failed starts use it so the error stays
	// visible.
	PreserveStatus bool
}

// transitionGuard admits one start, stop or restart at a time. A stop that
// arrives while another transition holds the guard is deferred and run by
// the holder before it lets go.
type transitionGuard struct {
	mu          sync.Mutex
	busy        bool
	stopPending bool
}

func (g *transitionGuard) tryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

// acquireOrDeferStop takes the guard, or records a pending stop and
// returns false.
func (g *transitionGuard) acquireOrDeferStop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		g.stopPending = true
		return false
	}
	g.busy = true
	return true
}

func (g *transitionGuard) stopRequested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopPending
}

// release frees the guard. If a stop is pending it keeps the guard held,
// clears the request and returns true; the caller must run the stop and
// call release again.
func (g *transitionGuard) release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopPending {
		g.stopPending = false
		return true
	}
	g.busy = false
	return false
}

// settle runs deferred stops and releases the guard.
func (e *Engine) settle() {
	for e.guard.release() {
		e.log.Debug("running deferred stop")
		e.stop(StopOptions{})
	}
}

// Start establishes a session. It is a no-op when a session is active or
// a transition is in flight. On failure the status reads "Error: ..." and
// the engine is idle again.
func (e *Engine) Start(ctx context.Context) error {
	if !e.guard.tryAcquire() {
		e.log.Debug("start ignored: transition in progress")
		return nil
	}
	defer e.settle()
	if e.State() != StateIdle {
		return nil
	}
	return e.start(ctx)
}

// Stop tears the session down. It is idempotent. A stop during a start or
// restart is honoured once that transition settles.
func (e *Engine) Stop(opts StopOptions) {
	if !e.guard.acquireOrDeferStop() {
		e.log.Debug("stop deferred: transition in progress")
		return
	}
	defer e.settle()
	e.stop(opts)
}

// Restart stops the active session, waits the settle delay and starts a
// new one. It is a no-op while a transition is in flight or when no
// session is active.
func (e *Engine) Restart(reason string) {
	e.restart(nil, reason)
}

// restart restarts from, or the current session when from is nil.
func (e *Engine) restart(from *session, reason string) {
	if !e.guard.tryAcquire() {
		e.log.Debug("restart ignored: transition in progress", "reason", reason)
		return
	}
	defer e.settle()

	e.mu.Lock()
	cur, state := e.sess, e.state
	e.mu.Unlock()
	if state != StateActive || cur == nil || (from != nil && cur != from) {
		return
	}

	e.log.Warn("restarting session", "reason", reason, "generation", cur.gen)
	e.setStatus(statusReconnectPrefix + reason)
	e.stop(StopOptions{PreserveStatus: true})

	if e.cfg.settleDelay > 0 {
		time.Sleep(e.cfg.settleDelay)
	}
	if e.guard.stopRequested() {
		return
	}
	if err := e.start(context.Background()); err != nil {
		e.log.Warn("restart failed", "reason", reason, "error", err)
	}
}

// start runs the start sequence. The caller holds the guard.
func (e *Engine) start(ctx context.Context) error {
	e.mu.Lock()
	e.gen++
	s := newSession(e, e.gen)
	e.sess = s
	e.state = StateStarting
	e.mu.Unlock()
	e.notify(ChangeState)

	if err := e.establish(ctx, s); err != nil {
		e.log.Error("session start failed", "generation", s.gen, "error", err)
		e.setStatus(statusErrorPrefix + err.Error())
		e.stop(StopOptions{PreserveStatus: true})
		return err
	}
	e.log.Info("session established", "generation", s.gen)
	e.setStatus(StatusEstablished)
	return nil
}

var errLostBeforeActive = errors.New("data channel closed before the session was established")

func (e *Engine) establish(ctx context.Context, s *session) error {
	e.setStatus(StatusRequestingMic)
	audio, err := e.media.AcquireMicrophone(ctx, e.cfg.inputDevice)
	if err != nil {
		return err
	}
	s.setMicrophone(audio)
	audio.SetEnabled(!e.IsMuted())

	e.setStatus(StatusFetchingToken)
	credential, err := e.tokens.FetchToken(ctx, e.cfg.voice)
	if err != nil {
		return err
	}

	video, err := e.media.CreatePlaceholderVideoTrack()
	if err != nil {
		return err
	}
	s.setVideo(video)

	e.setStatus(StatusConnecting)
	link, err := e.negotiator.Negotiate(ctx, NegotiateRequest{
		Credential: credential,
		Voice:      e.cfg.voice,
		Audio:      audio,
		Video:      video,
		Events:     s.linkEvents(),
	})
	if err != nil {
		return err
	}
	s.setLink(link)

	timer := time.NewTimer(e.cfg.openTimeout)
	defer timer.Stop()
	select {
	case <-s.opened:
	case <-s.lost:
		return errLostBeforeActive
	case <-timer.C:
		return fmt.Errorf("data channel did not open within %s", e.cfg.openTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err := s.config.send(e.sessionConfig()); err != nil {
		return fmt.Errorf("send session config: %w", err)
	}
	e.monitor.Start(audio.Analyser())

	e.mu.Lock()
	select {
	case <-s.lost:
		e.mu.Unlock()
		return errLostBeforeActive
	default:
	}
	e.state = StateActive
	e.mu.Unlock()
	e.notify(ChangeState)
	return nil
}

// stop releases the current session. The caller holds the guard.
func (e *Engine) stop(opts StopOptions) {
	e.mu.Lock()
	s := e.sess
	e.sess = nil
	if s != nil {
		e.state = StateStopping
	}
	e.mu.Unlock()

	if s != nil {
		e.notify(ChangeState)
		s.release()
		e.log.Debug("session released", "generation", s.gen)
	}
	e.monitor.Stop()
	e.conv.EndSession()

	e.setState(StateIdle)
	if !opts.PreserveStatus {
		e.setStatus(StatusStopped)
	}
	e.notify(ChangeConversation | ChangeVolume)
}

// lostOrActive reports whether s is the active session. Otherwise it marks
// s lost so a start still waiting on it fails instead of going active.
func (e *Engine) lostOrActive(s *session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == s && e.state == StateActive {
		return true
	}
	s.markLost()
	return false
}
