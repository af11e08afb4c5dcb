// Package audio groups the audio sub-packages used by the voice client:
//
//   - pcm: 16-bit PCM formats, level measurement and rate conversion
//   - opus: libopus encoder and decoder for WebRTC media
//   - portaudio: capture and playback devices
package audio
