package voicesession

import "strings"

// State is the lifecycle state of an Engine.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Status messages shown to the user.
const (
	StatusIdle            = "Idle"
	StatusRequestingMic   = "Requesting microphone access..."
	StatusFetchingToken   = "Fetching session token..."
	StatusConnecting      = "Connecting..."
	StatusEstablished     = "Session established"
	StatusStopped         = "Session stopped"
	statusErrorPrefix     = "Error: "
	statusReconnectPrefix = "Reconnecting: "
)

// Restart reasons.
const (
	ReasonChannelClosed = "data channel closed"
	ReasonChannelError  = "data channel error"
	ReasonPeerFailed    = "peer connection failed"
)

// StatusKind classifies a status message for notifications.
type StatusKind string

const (
	KindInfo    StatusKind = "info"
	KindSuccess StatusKind = "success"
	KindError   StatusKind = "error"
)

// ClassifyStatus maps a status message to its notification kind.
func ClassifyStatus(status string) StatusKind {
	switch {
	case strings.HasPrefix(status, "Error"):
		return KindError
	case status == StatusEstablished:
		return KindSuccess
	}
	return KindInfo
}

// Change is a bit set describing what an Engine update touched.
type Change uint8

const (
	ChangeStatus Change = 1 << iota
	ChangeState
	ChangeConversation
	ChangeVolume
	ChangeMute
)

// Has reports whether c includes all of flags.
func (c Change) Has(flags Change) bool {
	return c&flags == flags
}
