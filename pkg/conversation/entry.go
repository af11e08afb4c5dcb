// Package conversation folds realtime transcript events into an ordered,
// append-mostly list of conversation entries.
package conversation

import (
	"encoding/json"
	"time"
)

// Role identifies who produced an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Status is the lifecycle stage of a user entry that is still being
// transcribed.
type Status string

const (
	StatusSpeaking   Status = "speaking"
	StatusProcessing Status = "processing"
	StatusFinal      Status = "final"
)

// Entry is one message in the conversation.
type Entry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsFinal   bool      `json:"isFinal"`
	Status    Status    `json:"status,omitzero"`

	// Tool call details, set when Role is RoleTool.
	ToolName   string          `json:"toolName,omitzero"`
	ToolArgs   map[string]any  `json:"toolArgs,omitzero"`
	ToolResult json.RawMessage `json:"toolResult,omitzero"`
	ToolError  string          `json:"toolError,omitzero"`
}

// ToolCall describes a completed tool invocation to record.
type ToolCall struct {
	Name   string
	Args   map[string]any
	Result json.RawMessage
	Err    string
}
