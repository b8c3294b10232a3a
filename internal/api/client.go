// Package api is the HTTP/JSON client for the basket REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/basket/internal/credential"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	creds      credential.Store
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithTimeout bounds every request; a timeout surfaces as a NetworkError.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient = &http.Client{Timeout: d, Transport: cl.httpClient.Transport}
	}
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api". creds may be nil for anonymous use.
func NewClient(baseURL string, creds credential.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// resource names the entity for NotFoundError.
func (c *Client) do(ctx context.Context, method, path, resource string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	c.authorize(ctx, req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "op", op, "request_id", requestID, "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode >= 300 {
		apiErr := errorFromResponse(op, resource, resp)
		var authErr *AuthError
		if errors.As(apiErr, &authErr) && !authErr.Forbidden {
			c.invalidate(ctx)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.creds == nil {
		return
	}
	token, err := c.creds.Token(ctx)
	if err != nil {
		if !errors.Is(err, credential.ErrNoToken) {
			c.logger.Warn("read credential", "error", err)
		}
		return
	}
	req.Header.Set("Authorization", "Token "+token)
}

// invalidate drops the stored credential after the server rejected it.
func (c *Client) invalidate(ctx context.Context) {
	if c.creds == nil {
		return
	}
	if err := c.creds.Delete(ctx); err != nil {
		c.logger.Error("invalidate credential", "error", err)
		return
	}
	c.logger.Info("credential invalidated after unauthorized response")
}
