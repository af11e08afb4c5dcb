package openairealtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// tokenResponse accepts both OpenAI's session object and the flat shape
// returned by most credential-minting backends.
type tokenResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
	Token string `json:"token"`
}

// FetchToken mints a short-lived credential bound to voice. The credential
// is only ever sent to the realtime endpoint during SDP exchange or the
// WebSocket handshake.
func (c *Client) FetchToken(ctx context.Context, voice string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"model": c.config.model,
		"voice": voice,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.apiKey)
	}

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{
			Code:       "session_creation_failed",
			Message:    fmt.Sprintf("failed to create session: %s", string(data)),
			HTTPStatus: resp.StatusCode,
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	token := tr.ClientSecret.Value
	if token == "" {
		token = tr.Token
	}
	if token == "" {
		return "", &Error{Code: "session_creation_failed", Message: "token response carried no credential"}
	}
	return token, nil
}

// ExchangeSDP posts a local SDP offer to the realtime endpoint and returns
// the remote answer.
func (c *Client) ExchangeSDP(ctx context.Context, credential, voice, offer string) (string, error) {
	endpoint, err := url.Parse(c.config.httpURL)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	q := endpoint.Query()
	q.Set("model", c.config.model)
	if voice != "" {
		q.Set("voice", voice)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader([]byte(offer)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sdp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{
			Code:       "sdp_exchange_failed",
			Message:    fmt.Sprintf("failed to exchange SDP: %s", string(data)),
			HTTPStatus: resp.StatusCode,
		}
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(answer), nil
}
