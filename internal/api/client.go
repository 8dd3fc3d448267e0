// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/offline"
)

// Configuration constants for the gateway.
const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "auditchat"
)

// Client is the HTTP client for the server API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
	decode     decoder

	queue   *offline.Queue
	monitor *offline.Monitor
}

// NewClient creates a client for the server at baseURL using the bearer token.
func NewClient(baseURL, token string) *Client {
	logger := zap.NewNop()
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logger,
		decode: decoder{logger: logger},
	}
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger.Named("api")
		c.decode = decoder{logger: c.logger}
	}
	return c
}

// WithQueue enables queueing of mutations while offline.
func (c *Client) WithQueue(q *offline.Queue) *Client {
	c.queue = q
	return c
}

// WithMonitor reports transport outcomes to m and honors forced offline mode.
func (c *Client) WithMonitor(m *offline.Monitor) *Client {
	c.monitor = m
	return c
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the session token.
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// IsConfigured reports whether a server URL is set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// do sends a request and decodes a 2xx JSON body into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	raw, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s %s response: %w", method, path, err)
	}
	return nil
}

// doRaw sends a request and returns the 2xx body.
func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if c.monitor != nil && c.monitor.Forced() {
		return nil, fmt.Errorf("%w: offline mode is enabled", ErrOffline)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, body != nil)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if c.monitor != nil {
			c.monitor.ReportFailure(err)
		}
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %v", ErrOffline, method, path, err)
	}
	defer resp.Body.Close()

	if c.monitor != nil {
		c.monitor.ReportSuccess()
	}
	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	data, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp.StatusCode, data)
	}
	return data, nil
}

// setHeaders sets the headers required by the server.
func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// readResponse reads the response body with size limits.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts an error response to an *APIError.
// The server reports errors as {"error": "..."}, {"error": {"code", "message"}}
// or {"code", "message"}; anything else is kept as the raw body.
func handleErrorResponse(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var wire errorResponseWire
	if err := json.Unmarshal(body, &wire); err == nil {
		apiErr.Code = wire.Code
		apiErr.Message = wire.Message
		if len(wire.Error) > 0 {
			var msg string
			var nested struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if json.Unmarshal(wire.Error, &msg) == nil {
				apiErr.Message = msg
			} else if json.Unmarshal(wire.Error, &nested) == nil {
				apiErr.Code = nested.Code
				apiErr.Message = nested.Message
			}
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	if len(apiErr.Message) > 200 {
		apiErr.Message = apiErr.Message[:200]
	}
	return apiErr
}

// mutate runs a queueable mutation. When the server is unreachable the
// operation is saved to the offline queue and ErrQueued is returned.
func (c *Client) mutate(ctx context.Context, kind offline.OperationKind, payload any, call func(context.Context) error) error {
	err := call(ctx)
	if err == nil || c.queue == nil || !errors.Is(err, ErrOffline) {
		return err
	}

	op, qerr := c.queue.Enqueue(kind, payload)
	if qerr != nil {
		c.logger.Error("failed to queue operation", zap.String("kind", kind.String()), zap.Error(qerr))
		return errors.Join(err, qerr)
	}
	c.logger.Info("queued operation", zap.String("kind", kind.String()), zap.String("id", op.ID))
	return ErrQueued
}
