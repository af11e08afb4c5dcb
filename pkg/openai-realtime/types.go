package openairealtime

// Models supported by OpenAI Realtime API.
const (
	ModelGPT4oRealtimePreview     = "gpt-4o-realtime-preview"
	ModelGPT4oMiniRealtimePreview = "gpt-4o-mini-realtime-preview"
)

// Transcription models.
const (
	TranscriptionWhisper1 = "whisper-1"
)

// Voice options for audio output.
const (
	VoiceAlloy   = "alloy"
	VoiceAsh     = "ash"
	VoiceBallad  = "ballad"
	VoiceCoral   = "coral"
	VoiceEcho    = "echo"
	VoiceSage    = "sage"
	VoiceShimmer = "shimmer"
	VoiceVerse   = "verse"
)

// VAD modes for turn detection.
const (
	VADServerVAD   = "server_vad"
	VADSemanticVAD = "semantic_vad"
)

// Modality types.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// Conversation item types, roles and content types.
const (
	ItemTypeMessage            = "message"
	ItemTypeFunctionCall       = "function_call"
	ItemTypeFunctionCallOutput = "function_call_output"

	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	ContentTypeInputText = "input_text"
)

// SessionConfig is the body of a session.update event.
type SessionConfig struct {
	// Modalities specifies the output modalities.
	Modalities []string `json:"modalities,omitzero"`

	// Instructions is the system prompt.
	Instructions string `json:"instructions,omitzero"`

	// Voice is the voice ID for audio output. The voice is normally fixed
	// when the credential is minted.
	Voice string `json:"voice,omitzero"`

	// InputAudioFormat is "pcm16" for the WebSocket transport. WebRTC
	// carries audio on media tracks and leaves this empty.
	InputAudioFormat string `json:"input_audio_format,omitzero"`

	// OutputAudioFormat mirrors InputAudioFormat.
	OutputAudioFormat string `json:"output_audio_format,omitzero"`

	// InputAudioTranscription enables transcription of user audio.
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitzero"`

	// TurnDetection configures voice activity detection.
	TurnDetection *TurnDetection `json:"turn_detection,omitzero"`

	// Tools defines the available functions for the model.
	Tools []Tool `json:"tools"`

	// ToolChoice is "auto", "none" or "required".
	ToolChoice string `json:"tool_choice,omitzero"`
}

// AudioFormatPCM16 is 16-bit PCM audio at 24kHz, mono, little-endian.
const AudioFormatPCM16 = "pcm16"

// TranscriptionConfig configures input audio transcription.
type TranscriptionConfig struct {
	Model string `json:"model,omitzero"`
}

// TurnDetection configures voice activity detection.
type TurnDetection struct {
	// Type is the VAD mode: "server_vad" or "semantic_vad".
	Type string `json:"type,omitzero"`

	// Threshold is the VAD sensitivity (0.0-1.0).
	Threshold float64 `json:"threshold,omitzero"`

	// PrefixPaddingMs is the padding before speech start (ms).
	PrefixPaddingMs int `json:"prefix_padding_ms,omitzero"`

	// SilenceDurationMs is the silence duration that ends a turn (ms).
	SilenceDurationMs int `json:"silence_duration_ms,omitzero"`
}

// Tool defines a function tool available to the model.
type Tool struct {
	// Type is always "function".
	Type string `json:"type"`

	Name        string         `json:"name"`
	Description string         `json:"description,omitzero"`
	Parameters  map[string]any `json:"parameters"`
}

// SessionResource represents the session state returned by the server.
type SessionResource struct {
	ID           string   `json:"id,omitzero"`
	Model        string   `json:"model,omitzero"`
	Modalities   []string `json:"modalities,omitzero"`
	Instructions string   `json:"instructions,omitzero"`
	Voice        string   `json:"voice,omitzero"`
	Tools        []Tool   `json:"tools,omitzero"`
}

// ConversationItem represents an item in the conversation.
type ConversationItem struct {
	ID        string        `json:"id,omitzero"`
	Type      string        `json:"type,omitzero"`
	Status    string        `json:"status,omitzero"`
	Role      string        `json:"role,omitzero"`
	Content   []ContentPart `json:"content,omitzero"`
	CallID    string        `json:"call_id,omitzero"`
	Name      string        `json:"name,omitzero"`
	Arguments string        `json:"arguments,omitzero"`
	Output    string        `json:"output,omitzero"`
}

// ContentPart represents a part of message content.
type ContentPart struct {
	Type       string `json:"type,omitzero"`
	Text       string `json:"text,omitzero"`
	Transcript string `json:"transcript,omitzero"`
}

// ResponseResource represents a response from the model.
type ResponseResource struct {
	ID     string             `json:"id,omitzero"`
	Status string             `json:"status,omitzero"`
	Output []ConversationItem `json:"output,omitzero"`
	Usage  *Usage             `json:"usage,omitzero"`
}

// Usage contains token usage information.
type Usage struct {
	TotalTokens        int           `json:"total_tokens,omitzero"`
	InputTokens        int           `json:"input_tokens,omitzero"`
	OutputTokens       int           `json:"output_tokens,omitzero"`
	InputTokenDetails  *TokenDetails `json:"input_token_details,omitzero"`
	OutputTokenDetails *TokenDetails `json:"output_token_details,omitzero"`
}

// TokenDetails contains detailed token breakdown.
type TokenDetails struct {
	CachedTokens int `json:"cached_tokens,omitzero"`
	TextTokens   int `json:"text_tokens,omitzero"`
	AudioTokens  int `json:"audio_tokens,omitzero"`
}
