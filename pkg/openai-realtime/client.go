package openairealtime

import (
	"net/http"
)

const (
	// DefaultTokenURL is the default endpoint for minting ephemeral credentials.
	DefaultTokenURL = "https://api.openai.com/v1/realtime/sessions"

	// DefaultHTTPURL is the default HTTP endpoint for SDP exchange.
	DefaultHTTPURL = "https://api.openai.com/v1/realtime"

	// DefaultWebSocketURL is the default WebSocket endpoint.
	DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"

	// DefaultSTUNServer is used when no ICE servers are configured.
	DefaultSTUNServer = "stun:stun.l.google.com:19302"
)

// Client talks to the realtime endpoints. It is safe for concurrent use.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	apiKey     string
	tokenURL   string
	httpURL    string
	wsURL      string
	model      string
	iceServers []string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new realtime client.
//
// An API key is optional: when the token URL points at a trusted backend,
// that backend authenticates the request instead.
func NewClient(opts ...Option) *Client {
	cfg := &clientConfig{
		tokenURL:   DefaultTokenURL,
		httpURL:    DefaultHTTPURL,
		wsURL:      DefaultWebSocketURL,
		model:      ModelGPT4oRealtimePreview,
		iceServers: []string{DefaultSTUNServer},
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithAPIKey sets the API key sent to the token endpoint.
func WithAPIKey(apiKey string) Option {
	return func(c *clientConfig) {
		c.apiKey = apiKey
	}
}

// WithTokenURL sets the endpoint used to mint ephemeral credentials.
func WithTokenURL(url string) Option {
	return func(c *clientConfig) {
		c.tokenURL = url
	}
}

// WithHTTPURL sets the HTTP URL for SDP exchange.
func WithHTTPURL(url string) Option {
	return func(c *clientConfig) {
		c.httpURL = url
	}
}

// WithWebSocketURL sets the WebSocket URL.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithModel sets the realtime model.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithICEServers replaces the ICE server URLs used for peer negotiation.
func WithICEServers(urls ...string) Option {
	return func(c *clientConfig) {
		c.iceServers = urls
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// Model returns the configured realtime model.
func (c *Client) Model() string {
	return c.config.model
}
