package voicesession

import (
	"context"

	"github.com/haivivi/parley/pkg/volume"
)

// TokenSource mints the short-lived credential a session authenticates with.
// *openairealtime.Client implements it.
type TokenSource interface {
	FetchToken(ctx context.Context, voice string) (string, error)
}

// AudioInput is a live microphone.
type AudioInput interface {
	SetEnabled(enabled bool)
	Analyser() volume.Analyser
	Close() error
}

// Track is a local media track owned by a session.
type Track interface {
	Close() error
}

// MediaAcquirer opens the local media a session publishes.
type MediaAcquirer interface {
	// AcquireMicrophone opens the capture device. A non-empty deviceID must
	// match exactly; there is no fallback.
	AcquireMicrophone(ctx context.Context, deviceID string) (AudioInput, error)

	// CreatePlaceholderVideoTrack returns a video track to negotiate
	// alongside audio.
	CreatePlaceholderVideoTrack() (Track, error)
}

// InboundAudio is the playback and analysis graph for remote audio.
type InboundAudio interface {
	Analyser() volume.Analyser
	Close() error
}

// LinkEvents are the callbacks a Negotiator wires to its transport. They
// may be called from any goroutine and never block for long.
type LinkEvents struct {
	Opened  func()
	Message func(data []byte)
	Closed  func()
	Errored func(err error)

	// Failed reports that the underlying connection failed.
	Failed func()

	// RemoteAudio delivers a builder for the inbound audio graph. The
	// session tears down the previous graph before calling build.
	RemoteAudio func(build func() (InboundAudio, error))
}

// NegotiateRequest carries what a Negotiator needs to open a link.
type NegotiateRequest struct {
	Credential string
	Voice      string
	Audio      AudioInput
	Video      Track
	Events     LinkEvents
}

// Link is an established event channel.
type Link interface {
	Send(data []byte) error
	Closed() bool
	Close() error
}

// Negotiator opens a Link. The returned link may not be open yet; the
// Opened event signals readiness.
type Negotiator interface {
	Negotiate(ctx context.Context, req NegotiateRequest) (Link, error)
}
