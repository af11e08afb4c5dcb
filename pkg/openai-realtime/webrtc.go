package openairealtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// DataChannelLabel is the label of the event data channel.
const DataChannelLabel = "oai-events"

// ErrChannelNotOpen is returned by Send when the event channel is not open.
var ErrChannelNotOpen = errors.New("openai-realtime: event channel not open")

// Handlers receives link lifecycle callbacks. Callbacks run on transport
// goroutines and must not block.
type Handlers struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnClose   func()
	OnError   func(err error)
}

func (h Handlers) fireOpen() {
	if h.OnOpen != nil {
		h.OnOpen()
	}
}

func (h Handlers) fireMessage(data []byte) {
	if h.OnMessage != nil {
		h.OnMessage(data)
	}
}

func (h Handlers) fireClose() {
	if h.OnClose != nil {
		h.OnClose()
	}
}

func (h Handlers) fireError(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// PeerConfig configures a WebRTC negotiation.
type PeerConfig struct {
	Handlers

	// Credential is the ephemeral credential from FetchToken.
	Credential string

	// Voice is forwarded to the SDP endpoint.
	Voice string

	// AudioTrack is the local microphone track. When nil the peer only
	// receives audio.
	AudioTrack webrtc.TrackLocal

	// VideoTrack is an optional local video track.
	VideoTrack webrtc.TrackLocal

	// OnStateChange observes peer connection state transitions.
	OnStateChange func(state webrtc.PeerConnectionState)

	// OnRemoteAudio is called for each remote audio track.
	OnRemoteAudio func(track *RemoteAudio)
}

// Peer is a negotiated WebRTC connection with its event data channel.
type Peer struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	closeOnce sync.Once
	closeErr  error
}

// Negotiate creates a peer connection, attaches the local tracks, opens the
// event data channel and completes the offer/answer exchange. The returned
// Peer may not have an open data channel yet; OnOpen signals that.
func (c *Client) Negotiate(ctx context.Context, cfg PeerConfig) (*Peer, error) {
	var servers []webrtc.ICEServer
	if len(c.config.iceServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: c.config.iceServers}}
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	peer := &Peer{pc: pc}

	if cfg.AudioTrack != nil {
		if _, err := pc.AddTrack(cfg.AudioTrack); err != nil {
			peer.Close()
			return nil, fmt.Errorf("failed to add audio track: %w", err)
		}
	} else {
		_, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			peer.Close()
			return nil, fmt.Errorf("failed to add audio transceiver: %w", err)
		}
	}
	if cfg.VideoTrack != nil {
		if _, err := pc.AddTrack(cfg.VideoTrack); err != nil {
			peer.Close()
			return nil, fmt.Errorf("failed to add video track: %w", err)
		}
	}

	dc, err := pc.CreateDataChannel(DataChannelLabel, nil)
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("failed to create data channel: %w", err)
	}
	peer.dc = dc

	dc.OnOpen(func() {
		slog.Debug("data channel opened")
		cfg.fireOpen()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		cfg.fireMessage(msg.Data)
	})
	dc.OnClose(func() {
		slog.Debug("data channel closed")
		cfg.fireClose()
	})
	dc.OnError(func(err error) {
		slog.Debug("data channel error", "error", err)
		cfg.fireError(err)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state", "state", state.String())
		if cfg.OnStateChange != nil {
			cfg.OnStateChange(state)
		}
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		slog.Debug("received remote track", "kind", track.Kind(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeAudio && cfg.OnRemoteAudio != nil {
			cfg.OnRemoteAudio(&RemoteAudio{track: track})
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		peer.Close()
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		peer.Close()
		return nil, fmt.Errorf("ice gathering: %w", ctx.Err())
	}

	answer, err := c.ExchangeSDP(ctx, cfg.Credential, cfg.Voice, pc.LocalDescription().SDP)
	if err != nil {
		peer.Close()
		return nil, err
	}
	err = pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	})
	if err != nil {
		peer.Close()
		return nil, fmt.Errorf("failed to set remote description: %w", err)
	}
	return peer, nil
}

// Send writes one event payload to the data channel.
func (p *Peer) Send(data []byte) error {
	if p.dc == nil || p.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return p.dc.Send(data)
}

// Closed reports whether the data channel is closing or closed.
func (p *Peer) Closed() bool {
	if p.dc == nil {
		return true
	}
	switch p.dc.ReadyState() {
	case webrtc.DataChannelStateClosing, webrtc.DataChannelStateClosed:
		return true
	}
	return false
}

// Close closes the data channel, then the peer connection. It is safe to
// call more than once.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		if p.dc != nil {
			if err := p.dc.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close data channel: %w", err))
			}
		}
		if p.pc != nil {
			if err := p.pc.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close peer connection: %w", err))
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

// RemoteAudio wraps an inbound audio track.
type RemoteAudio struct {
	track *webrtc.TrackRemote
}

// MimeType returns the negotiated codec MIME type.
func (r *RemoteAudio) MimeType() string {
	return r.track.Codec().MimeType
}

// ClockRate returns the codec clock rate.
func (r *RemoteAudio) ClockRate() uint32 {
	return r.track.Codec().ClockRate
}

// ReadPayload blocks for the next RTP packet and returns its payload.
func (r *RemoteAudio) ReadPayload() ([]byte, error) {
	buf := make([]byte, 1500)
	n, _, err := r.track.Read(buf)
	if err != nil {
		return nil, err
	}
	var pkt rtp.Packet
	if err := pkt.Unmarshal(buf[:n]); err != nil {
		return nil, fmt.Errorf("unmarshal rtp: %w", err)
	}
	return pkt.Payload, nil
}
