package openairealtime

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a failure reported by the realtime service, either as the body
// of an "error" server event or as a non-2xx HTTP response.
type Error struct {
	Type    string `json:"type,omitzero"`
	Code    string `json:"code,omitzero"`
	Message string `json:"message,omitzero"`
	Param   string `json:"param,omitzero"`

	// EventID is the client event that caused the error.
	EventID string `json:"event_id,omitzero"`

	// HTTPStatus is set for HTTP failures only.
	HTTPStatus int `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("openai-realtime: ")
	if kind := firstNonEmpty(e.Code, e.Type); kind != "" {
		b.WriteString(kind)
		if e.HTTPStatus != 0 {
			fmt.Fprintf(&b, " (HTTP %d)", e.HTTPStatus)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Param != "" {
		fmt.Fprintf(&b, " [param %s]", e.Param)
	}
	return b.String()
}

// HTTPStatus returns the HTTP status of an *Error in err's chain, or 0.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus
	}
	return 0
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
