package openairealtime

import (
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Message: "boom"}, "openai-realtime: boom"},
		{&Error{Type: "invalid_request_error", Message: "bad"}, "openai-realtime: invalid_request_error: bad"},
		{&Error{Type: "invalid_request_error", Code: "invalid_value", Message: "bad", Param: "voice"},
			"openai-realtime: invalid_value: bad [param voice]"},
		{&Error{Code: "session_creation_failed", Message: "denied", HTTPStatus: 401},
			"openai-realtime: session_creation_failed (HTTP 401): denied"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", &Error{Code: "sdp_exchange_failed", HTTPStatus: 400})
	if got := HTTPStatus(wrapped); got != 400 {
		t.Errorf("HTTPStatus(wrapped) = %d, want 400", got)
	}
	if got := HTTPStatus(fmt.Errorf("plain")); got != 0 {
		t.Errorf("HTTPStatus(plain) = %d, want 0", got)
	}
}
