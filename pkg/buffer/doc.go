// Package buffer provides the two sample buffers the audio pipeline needs:
//
//   - Window: a fixed-size sliding window that keeps the most recent
//     samples. Writers never block; readers take a snapshot.
//
//   - Queue: a growable FIFO whose reads block until data arrives. It
//     decouples network receive from device playback.
//
// Both are safe for concurrent use.
package buffer
