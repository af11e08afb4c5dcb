package openairealtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// WSLink is a WebSocket connection speaking the realtime event protocol.
// Audio travels as base64 PCM16 events instead of media tracks.
type WSLink struct {
	conn     *websocket.Conn
	handlers Handlers

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// DialWebSocket opens a WebSocket link authenticated with credential. The
// link is open once DialWebSocket returns; OnOpen fires before the first
// message is delivered.
func (c *Client) DialWebSocket(ctx context.Context, credential string, h Handlers) (*WSLink, error) {
	endpoint, err := url.Parse(c.config.wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	q := endpoint.Query()
	q.Set("model", c.config.model)
	endpoint.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+credential)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.httpClient.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint.String(), headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("openai-realtime: failed to connect: %w", err)
	}

	link := &WSLink{conn: conn, handlers: h}
	go link.readLoop()
	return link, nil
}

func (l *WSLink) readLoop() {
	l.handlers.fireOpen()
	for {
		_, message, err := l.conn.ReadMessage()
		if err != nil {
			if !l.closed.Load() {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
					l.handlers.fireError(err)
				}
				l.closed.Store(true)
			}
			l.handlers.fireClose()
			return
		}
		l.handlers.fireMessage(message)
	}
}

// Send writes one event payload.
func (l *WSLink) Send(data []byte) error {
	if l.closed.Load() {
		return ErrChannelNotOpen
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteMessage(websocket.TextMessage, data)
}

// AppendAudio streams 24kHz PCM16 little-endian audio into the input buffer.
func (l *WSLink) AppendAudio(pcm []byte) error {
	data, err := AudioAppend(pcm).Marshal()
	if err != nil {
		return err
	}
	return l.Send(data)
}

// Closed reports whether the link has been closed by either side.
func (l *WSLink) Closed() bool {
	return l.closed.Load()
}

// Close closes the connection. It is safe to call more than once.
func (l *WSLink) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.writeMu.Lock()
		_ = l.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		l.writeMu.Unlock()
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}
