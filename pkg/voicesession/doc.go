// Package voicesession runs a realtime voice conversation with a speech
// model.
//
// An Engine owns at most one live session. Starting a session acquires the
// microphone, fetches an ephemeral credential, negotiates a transport and
// waits for the event channel to open before sending the session
// configuration. Inbound protocol events are handled on a single goroutine
// per session and folded into a conversation.Aggregator; function calls
// are dispatched to a tools.Registry and always answered.
//
// Transport failures while active restart the session once per generation.
// Start, Stop and Restart are serialised by a transition guard: a start or
// restart while another transition is in flight is a no-op, and a stop
// requested during a start runs as soon as the start settles.
//
// The transports and devices are behind small interfaces (TokenSource,
// MediaAcquirer, Negotiator) so the engine can be driven without audio
// hardware. Package rtc adapts them to pion WebRTC, the WebSocket
// transport and PortAudio.
package voicesession
