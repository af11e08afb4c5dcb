package openairealtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Client event types (sent from client to server).
const (
	EventTypeSessionUpdate = "session.update"

	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferClear  = "input_audio_buffer.clear"

	EventTypeConversationItemCreate = "conversation.item.create"

	EventTypeResponseCreate = "response.create"
	EventTypeResponseCancel = "response.cancel"
)

// Server event types (sent from server to client).
const (
	EventTypeError = "error"

	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	// Input audio buffer events
	EventTypeInputAudioBufferCommitted     = "input_audio_buffer.committed"
	EventTypeInputAudioBufferSpeechStarted = "input_audio_buffer.speech_started"
	EventTypeInputAudioBufferSpeechStopped = "input_audio_buffer.speech_stopped"

	// Input transcription events. The bare event carries a full partial
	// transcript; the delta event carries an increment.
	EventTypeInputAudioTranscription          = "conversation.item.input_audio_transcription"
	EventTypeInputAudioTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	EventTypeInputAudioTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventTypeInputAudioTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"

	// Response events
	EventTypeResponseCreated = "response.created"
	EventTypeResponseDone    = "response.done"

	EventTypeResponseTextDelta = "response.text.delta"
	EventTypeResponseTextDone  = "response.text.done"

	EventTypeResponseAudioDelta = "response.audio.delta"
	EventTypeResponseAudioDone  = "response.audio.done"

	EventTypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventTypeResponseAudioTranscriptDone  = "response.audio_transcript.done"

	EventTypeResponseFunctionCallArgumentsDelta = "response.function_call_arguments.delta"
	EventTypeResponseFunctionCallArgumentsDone  = "response.function_call_arguments.done"

	EventTypeRateLimitsUpdated = "rate_limits.updated"
)

// ServerEvent represents a server event received from the Realtime API.
type ServerEvent struct {
	// Type is the event type.
	Type string `json:"type"`

	// EventID is the unique identifier for this event.
	EventID string `json:"event_id,omitzero"`

	// Session contains session information (for session.created, session.updated).
	Session *SessionResource `json:"session,omitzero"`

	// ItemID is the ID of the item (for various events).
	ItemID string `json:"item_id,omitzero"`

	// AudioStartMs is the start time in milliseconds (for speech_started).
	AudioStartMs int `json:"audio_start_ms,omitzero"`

	// AudioEndMs is the end time in milliseconds (for speech_stopped).
	AudioEndMs int `json:"audio_end_ms,omitzero"`

	// Transcript is the transcription text.
	Transcript string `json:"transcript,omitzero"`

	// Text is the final text (for response.text.done).
	Text string `json:"text,omitzero"`

	// Error is set on error events and transcription failures.
	Error *Error `json:"error,omitzero"`

	// Response contains response information (for response.* events).
	Response *ResponseResource `json:"response,omitzero"`

	// ResponseID is the response identifier.
	ResponseID string `json:"response_id,omitzero"`

	// Delta contains incremental text, transcript or arguments.
	Delta string `json:"delta,omitzero"`

	// Audio contains decoded audio for response.audio.delta.
	Audio []byte `json:"-"`

	// CallID is the function call ID.
	CallID string `json:"call_id,omitzero"`

	// Name is the function name.
	Name string `json:"name,omitzero"`

	// Arguments is the complete function arguments JSON text.
	Arguments string `json:"arguments,omitzero"`

	// Raw contains the original JSON message.
	Raw []byte `json:"-"`
}

// ParseServerEvent decodes one inbound protocol message. Messages with an
// unknown type decode successfully; only malformed JSON is an error.
func ParseServerEvent(message []byte) (*ServerEvent, error) {
	logPayload("received message", message, 1000)

	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("parse error: missing event type")
	}
	event.Raw = message

	if event.Type == EventTypeResponseAudioDelta && event.Delta != "" {
		if decoded, err := base64.StdEncoding.DecodeString(event.Delta); err == nil {
			event.Audio = decoded
		}
	}
	return &event, nil
}

// logPayload dumps a wire payload at debug level, truncated to limit bytes.
func logPayload(msg string, payload []byte, limit int) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	str := string(payload)
	if len(str) > limit {
		str = str[:limit] + "..."
	}
	slog.Debug(msg, "len", len(payload), "content", str)
}
