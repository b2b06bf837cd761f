package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultUserAgent = "bothub-agent/1.0"

// Client talks to the registry's verification endpoint.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default client, which has a 10s timeout and a
// traced transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type verifyRequest struct {
	BotID string `json:"bot_id"`
}

type verifyResponse struct {
	Authorized bool `json:"authorized"`
}

// Verify asks the registry whether botID is authorized. An error means the
// answer is unknown (transport failure, unexpected status, unreadable body),
// never that the bot was denied.
func (c *Client) Verify(ctx context.Context, botID string) (bool, error) {
	body, err := json.Marshal(verifyRequest{BotID: botID})
	if err != nil {
		return false, fmt.Errorf("encode verify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return false, fmt.Errorf("verify request: unexpected status %d", resp.StatusCode)
	}
	var out verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return out.Authorized, nil
}
