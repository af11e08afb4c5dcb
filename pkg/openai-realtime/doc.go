// Package openairealtime provides the wire layer for OpenAI's Realtime API
// as used by a live voice client.
//
// It covers three concerns:
//
//   - Minting a short-lived client credential from a token endpoint
//     ([Client.FetchToken]).
//   - Negotiating a WebRTC peer with the realtime endpoint and exposing the
//     "oai-events" data channel and the remote audio track ([Client.Negotiate]).
//   - A WebSocket fallback link speaking the same event protocol
//     ([Client.DialWebSocket]).
//
// # Credentials
//
// The token endpoint may be OpenAI's session endpoint (authenticated with
// an API key) or a trusted backend that holds the key and mints credentials
// on the caller's behalf:
//
//	client := openairealtime.NewClient(
//	    openairealtime.WithTokenURL("https://example.com/session"),
//	)
//	token, err := client.FetchToken(ctx, openairealtime.VoiceAlloy)
//
// # Events
//
// Outbound events are built with [SessionUpdate], [UserText],
// [FunctionCallOutput] and [ResponseCreate]. Inbound messages are decoded
// with [ParseServerEvent]; unknown event types decode without error and
// callers are expected to ignore them.
//
// # Tool Schemas
//
// [NormalizeParameters] rewrites arbitrary JSON Schemas into the subset the
// realtime endpoint accepts for function parameters.
package openairealtime
