package openairealtime

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"
)

// ClientEvent is an outbound protocol event.
type ClientEvent struct {
	EventID string            `json:"event_id,omitzero"`
	Type    string            `json:"type"`
	Session *SessionConfig    `json:"session,omitzero"`
	Item    *ConversationItem `json:"item,omitzero"`
	Audio   string            `json:"audio,omitzero"`
}

// Marshal encodes the event and logs the payload at debug level.
func (e *ClientEvent) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	logPayload("sending event", data, 500)
	return data, nil
}

// SessionUpdate builds a session.update event.
func SessionUpdate(cfg *SessionConfig) *ClientEvent {
	return &ClientEvent{
		EventID: generateEventID(),
		Type:    EventTypeSessionUpdate,
		Session: cfg,
	}
}

// UserText builds a conversation.item.create event carrying typed user input.
func UserText(text string) *ClientEvent {
	return &ClientEvent{
		EventID: generateEventID(),
		Type:    EventTypeConversationItemCreate,
		Item: &ConversationItem{
			Type: ItemTypeMessage,
			Role: RoleUser,
			Content: []ContentPart{
				{Type: ContentTypeInputText, Text: text},
			},
		},
	}
}

// FunctionCallOutput builds the conversation.item.create event that answers
// a function call.
func FunctionCallOutput(callID, output string) *ClientEvent {
	return &ClientEvent{
		EventID: generateEventID(),
		Type:    EventTypeConversationItemCreate,
		Item: &ConversationItem{
			Type:   ItemTypeFunctionCallOutput,
			CallID: callID,
			Output: output,
		},
	}
}

// ResponseCreate builds a response.create event.
func ResponseCreate() *ClientEvent {
	return &ClientEvent{
		EventID: generateEventID(),
		Type:    EventTypeResponseCreate,
	}
}

// ResponseCancel builds a response.cancel event.
func ResponseCancel() *ClientEvent {
	return &ClientEvent{
		EventID: generateEventID(),
		Type:    EventTypeResponseCancel,
	}
}

// AudioAppend builds an input_audio_buffer.append event from 16-bit
// little-endian PCM.
func AudioAppend(pcm []byte) *ClientEvent {
	return &ClientEvent{
		EventID: generateEventID(),
		Type:    EventTypeInputAudioBufferAppend,
		Audio:   base64.StdEncoding.EncodeToString(pcm),
	}
}

func generateEventID() string {
	return "evt_" + uuid.New().String()[:12]
}
