// Package media acquires local capture devices and turns them into the
// tracks and taps a voice session needs.
//
// A Microphone reads fixed-size frames from a capture device and fans them
// out to sinks: the Opus-encoded WebRTC track, the outbound volume tap and,
// for the WebSocket transport, a PCM uploader. Disabling the microphone
// sends silence instead of dropping frames so the remote side keeps its
// timing.
//
// Playback decodes inbound audio, feeds the inbound volume tap and,
// optionally, plays it through an output device.
package media
