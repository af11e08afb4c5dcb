package voicesession

import (
	openairealtime "github.com/haivivi/parley/pkg/openai-realtime"
	"github.com/haivivi/parley/pkg/tools"
	"github.com/haivivi/parley/pkg/usagelog"
)

func (s *session) handle(ev linkEvent) {
	switch ev.kind {
	case evOpened:
		s.openOnce.Do(func() { close(s.opened) })
	case evMessage:
		s.handleMessage(ev.data)
	case evClosed:
		s.transportLost(ReasonChannelClosed)
	case evErrored:
		s.engine.log.Warn("data channel error", "error", ev.err)
		s.transportLost(ReasonChannelError)
	case evFailed:
		s.transportLost(ReasonPeerFailed)
	case evRemoteAudio:
		s.attachInbound(ev.build)
	}
}

// attachInbound replaces the inbound audio graph.
func (s *session) attachInbound(build func() (InboundAudio, error)) {
	e := s.engine
	if s.inbound != nil {
		e.monitor.SetInbound(nil)
		if err := s.inbound.Close(); err != nil {
			e.log.Debug("close previous inbound audio", "error", err)
		}
		s.inbound = nil
	}
	in, err := build()
	if err != nil {
		e.log.Warn("build inbound audio failed", "error", err)
		return
	}
	s.inbound = in
	e.monitor.SetInbound(in.Analyser())
}

func (s *session) handleMessage(data []byte) {
	e := s.engine
	if l := s.getLink(); l != nil && l.Closed() {
		s.transportLost(ReasonChannelClosed)
		return
	}
	ev, err := openairealtime.ParseServerEvent(data)
	if err != nil {
		e.log.Warn("dropping malformed event", "error", err)
		return
	}

	conv := e.conv
	changed := true
	switch ev.Type {
	case openairealtime.EventTypeSessionCreated:
		if ev.Session != nil {
			s.remoteID = ev.Session.ID
		}
		changed = false
	case openairealtime.EventTypeInputAudioBufferSpeechStarted:
		conv.SpeechStarted()
	case openairealtime.EventTypeInputAudioBufferSpeechStopped:
		conv.SpeechStopped()
		changed = false
	case openairealtime.EventTypeInputAudioBufferCommitted:
		conv.AudioCommitted()
	case openairealtime.EventTypeInputAudioTranscription:
		conv.TranscriptionPartial(ev.Transcript)
	case openairealtime.EventTypeInputAudioTranscriptionDelta:
		conv.TranscriptionDelta(ev.Delta)
	case openairealtime.EventTypeInputAudioTranscriptionCompleted:
		conv.TranscriptionCompleted(ev.Transcript)
	case openairealtime.EventTypeResponseAudioTranscriptDelta,
		openairealtime.EventTypeResponseTextDelta:
		conv.AssistantDelta(ev.Delta)
	case openairealtime.EventTypeResponseAudioTranscriptDone,
		openairealtime.EventTypeResponseTextDone:
		conv.AssistantDone()
	case openairealtime.EventTypeResponseDone:
		s.recordUsage(ev)
		changed = false
	case openairealtime.EventTypeResponseFunctionCallArgumentsDone:
		s.dispatch(tools.Call{Name: ev.Name, Arguments: ev.Arguments, CallID: ev.CallID})
		changed = false
	case openairealtime.EventTypeError:
		msg := "unknown server error"
		if ev.Error != nil {
			msg = ev.Error.Error()
		}
		e.log.Error("server error", "error", msg)
		e.setStatus(statusErrorPrefix + msg)
		changed = false
	default:
		changed = false
	}
	if changed {
		e.notify(ChangeConversation)
	}
}

// dispatch runs one function call on its own goroutine. Replies go to the
// session that received the call and fail once it is released.
func (s *session) dispatch(call tools.Call) {
	e := s.engine
	e.log.Info("function call", "name", call.Name, "call_id", call.CallID)
	go e.dispatcher.Dispatch(s.ctx, call, s)
}

func (s *session) recordUsage(ev *openairealtime.ServerEvent) {
	e := s.engine
	if ev.Response == nil || ev.Response.Usage == nil {
		return
	}
	u := ev.Response.Usage
	e.log.Info("response usage",
		"response_id", ev.Response.ID,
		"input_tokens", u.InputTokens,
		"output_tokens", u.OutputTokens,
		"total_tokens", u.TotalTokens,
	)
	if e.cfg.usage == nil {
		return
	}
	rec := usagelog.FromUsage(s.remoteID, ev.Response.ID, e.cfg.model, e.cfg.now(), u)
	if err := e.cfg.usage.Append(s.ctx, rec); err != nil {
		e.log.Warn("record usage failed", "error", err)
	}
}
