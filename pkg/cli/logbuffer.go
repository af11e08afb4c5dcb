package cli

import (
	"strings"
	"sync"

	"github.com/haivivi/parley/pkg/buffer"
)

// LogWriter keeps the last lines written to it. Point a slog text handler
// at it to show logs inside a Frame.
type LogWriter struct {
	mu      sync.Mutex
	lines   *buffer.Window[string]
	partial string
}

// NewLogWriter keeps up to maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{lines: buffer.WindowN[string](maxLines)}
}

// Write implements io.Writer. A trailing partial line is held until its
// newline arrives.
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	text := w.partial + string(p)
	parts := strings.Split(text, "\n")
	w.partial = parts[len(parts)-1]
	if done := parts[:len(parts)-1]; len(done) > 0 {
		w.lines.Write(done)
	}
	return len(p), nil
}

// Lines returns the buffered lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.lines.Snapshot()
}
