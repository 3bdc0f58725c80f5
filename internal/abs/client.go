// Package abs is a client for the ABS fleet service that hands out
// ephemeral test hosts.
package abs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flo-mic/absprovision/internal/auth"
	"github.com/flo-mic/absprovision/internal/logging"
)

// BaseDomain is the cluster domain every ABS instance lives under.
const BaseDomain = "k8s.infracore.puppet.net"

const (
	requestPath = "/api/v2/request"
	returnPath  = "/api/v2/return"
)

// Host returns the ABS hostname for subdomain, e.g. "abs-prod" or "abs-spec".
func Host(subdomain string) string {
	return subdomain + "." + BaseDomain
}

// Client is an HTTP client for the ABS REST API.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
	timeout      time.Duration
	now          func() time.Time
	after        func(time.Duration) <-chan time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the https://<host> base, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken authenticates provisioning requests as well as returns.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithPollInterval sets the delay between polls of a pending request.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithTimeout bounds how long RequestNodes keeps polling.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithAfter replaces time.After for the wait between polls.
func WithAfter(fn func(time.Duration) <-chan time.Time) Option {
	return func(c *Client) { c.after = fn }
}

// WithNow replaces time.Now for the polling deadline.
func WithNow(fn func() time.Time) Option {
	return func(c *Client) { c.now = fn }
}

// NewClient creates a client for the ABS instance at host.
func NewClient(host string, opts ...Option) *Client {
	c := &Client{
		baseURL:      "https://" + host,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: 5 * time.Second,
		timeout:      10 * time.Minute,
		now:          time.Now,
		after:        time.After,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// post sends body as JSON and returns the status code and raw response body.
func (c *Client) post(ctx context.Context, path string, body any, token string) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		auth.SetBearer(req.Header, token)
	}

	logging.Debug("abs request", "method", http.MethodPost, "url", c.baseURL+path, "body", string(payload))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("POST %s: reading response: %w", path, err)
	}
	logging.Debug("abs response", "url", c.baseURL+path, "status", resp.StatusCode, "bytes", len(respBody))
	return resp.StatusCode, respBody, nil
}
