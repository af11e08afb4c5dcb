package openairealtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchToken(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"client_secret":{"value":"ek_123","expires_at":1}}`))
	}))
	defer srv.Close()

	c := NewClient(WithTokenURL(srv.URL), WithAPIKey("sk-test"))
	token, err := c.FetchToken(context.Background(), VoiceVerse)
	if err != nil {
		t.Fatalf("FetchToken() error = %v", err)
	}
	if token != "ek_123" {
		t.Errorf("token = %q, want ek_123", token)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["voice"] != VoiceVerse {
		t.Errorf("voice = %q, want %q", gotBody["voice"], VoiceVerse)
	}
}

func TestFetchToken_FlatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header without api key")
		}
		w.Write([]byte(`{"token":"ek_flat"}`))
	}))
	defer srv.Close()

	token, err := NewClient(WithTokenURL(srv.URL)).FetchToken(context.Background(), VoiceAlloy)
	if err != nil {
		t.Fatal(err)
	}
	if token != "ek_flat" {
		t.Errorf("token = %q, want ek_flat", token)
	}
}

func TestFetchToken_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `boom`},
		{"unauthorized", http.StatusUnauthorized, `{"error":"no"}`},
		{"empty credential", http.StatusOK, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(WithTokenURL(srv.URL)).FetchToken(context.Background(), VoiceAlloy)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *Error", err)
			}
			if tt.status != http.StatusOK && apiErr.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", apiErr.HTTPStatus, tt.status)
			}
		})
	}
}

func TestExchangeSDP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/sdp" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer ek_1" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("model") != ModelGPT4oMiniRealtimePreview {
			t.Errorf("model = %q", r.URL.Query().Get("model"))
		}
		offer, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("answer-for:" + string(offer)))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPURL(srv.URL), WithModel(ModelGPT4oMiniRealtimePreview))
	answer, err := c.ExchangeSDP(context.Background(), "ek_1", VoiceAlloy, "v=0")
	if err != nil {
		t.Fatalf("ExchangeSDP() error = %v", err)
	}
	if answer != "answer-for:v=0" {
		t.Errorf("answer = %q", answer)
	}
}

func TestExchangeSDP_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(WithHTTPURL(srv.URL)).ExchangeSDP(context.Background(), "ek", "", "v=0")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "sdp_exchange_failed" {
		t.Errorf("error = %v, want sdp_exchange_failed", err)
	}
}
