// Package gateway is the single path from the client to the backend API.
// It attaches bearer tokens, normalizes responses into an Outcome or a
// typed error, and redirects to login when an authenticated call is made
// without a token.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is a decoded success payload, returned as the server sent it.
type Outcome map[string]any

// String returns the string value at key, or "" when absent or not a string.
func (o Outcome) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// TokenSource provides the current access token ("" when logged out).
type TokenSource interface {
	Token() string
}

// Redirector sends the user to the login entry point.
type Redirector interface {
	RedirectToLogin() bool
}

// Client issues JSON requests against one backend.
type Client struct {
	baseURL  string
	tokens   TokenSource
	redirect Redirector
	http     *http.Client
	timeout  time.Duration
	log      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. 0 disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for baseURL.
func New(baseURL string, tokens TokenSource, redirect Redirector, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokens:   tokens,
		redirect: redirect,
		http:     http.DefaultClient,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Send performs one request. body, when non-nil, is sent as JSON.
func (c *Client) Send(ctx context.Context, endpoint, method string, body any, requiresAuth bool) (Outcome, error) {
	var token string
	if requiresAuth {
		token = c.tokens.Token()
		if token == "" {
			if c.redirect != nil && c.redirect.RedirectToLogin() {
				c.log.Warn("authentication token missing, redirecting to login",
					zap.String("endpoint", endpoint))
			}
			return nil, ErrAuthRequired
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.With(
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("network or unexpected API request error", zap.Error(err))
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("read response body", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, &TransportError{Method: method, Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp, data)
		log.Warn("API error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	out := Outcome{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		log.Error("decode response body", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, &APIError{Message: "invalid JSON response", Status: resp.StatusCode}
	}
	log.Debug("API request ok", zap.Int("status", resp.StatusCode))
	return out, nil
}

// decodeError turns a non-2xx response into an APIError. A JSON object
// supplies the message; any other JSON gets the generic one, and a body
// that is not JSON falls back to the status text.
func decodeError(resp *http.Response, data []byte) *APIError {
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return &APIError{Message: statusText(resp), Status: resp.StatusCode}
	}
	if obj, ok := body.(map[string]any); ok {
		for _, key := range []string{"message", "error"} {
			if msg, ok := obj[key].(string); ok && msg != "" {
				return &APIError{Message: msg, Status: resp.StatusCode}
			}
		}
	}
	return &APIError{Message: "API request failed", Status: resp.StatusCode}
}

// statusText returns the reason phrase of the status line.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = "Unknown error"
	}
	return text
}

// IsAuthRequired reports whether err is the missing-token abort.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}
