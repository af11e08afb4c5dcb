package media

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	pionmedia "github.com/pion/webrtc/v3/pkg/media"
)

// placeholderFrame is a 1x1 VP8 keyframe.
var placeholderFrame = []byte{
	0x30, 0x01, 0x00, 0x9d, 0x01, 0x2a, 0x01, 0x00, 0x01, 0x00, 0x0e, 0xc0,
	0xfe, 0x25, 0xa4, 0x00, 0x03, 0x70, 0x00, 0x00, 0x00, 0x00,
}

// placeholderInterval is how often the still frame is repeated so a peer
// that binds late still receives it.
const placeholderInterval = time.Second

// VideoTrack is a VP8 placeholder track carrying a single static frame.
// It exists so the peer connection negotiates a video m-line. Close stops
// the frame writer.
type VideoTrack struct {
	track *webrtc.TrackLocalStaticSample

	frames  atomic.Int64
	stopped atomic.Bool
	once    sync.Once
	done    chan struct{}
	exited  chan struct{}
}

// NewPlaceholderVideoTrack creates the placeholder track and starts
// writing its frame.
func NewPlaceholderVideoTrack() (*VideoTrack, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video",
		"parley-"+uuid.NewString()[:8],
	)
	if err != nil {
		return nil, fmt.Errorf("media: create video track: %w", err)
	}
	v := &VideoTrack{
		track:  track,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go v.run()
	return v, nil
}

func (v *VideoTrack) run() {
	defer close(v.exited)
	ticker := time.NewTicker(placeholderInterval)
	defer ticker.Stop()
	for {
		// An unbound track drops the sample without error.
		if err := v.track.WriteSample(pionmedia.Sample{Data: placeholderFrame, Duration: placeholderInterval}); err == nil {
			v.frames.Add(1)
		}
		select {
		case <-v.done:
			return
		case <-ticker.C:
		}
	}
}

// Local returns the pion track to add to a peer connection.
func (v *VideoTrack) Local() webrtc.TrackLocal {
	return v.track
}

// Stopped reports whether Close has been called.
func (v *VideoTrack) Stopped() bool {
	return v.stopped.Load()
}

// Close stops the frame writer. It is safe to call more than once.
func (v *VideoTrack) Close() error {
	v.once.Do(func() {
		v.stopped.Store(true)
		close(v.done)
	})
	<-v.exited
	return nil
}
