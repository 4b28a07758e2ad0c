// Package apiclient talks to the records backend. Calls never return an error value for HTTP
// outcomes; they return a Result.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campus/internal/metrics"
)

// Client calls the records backend.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the given origin. There is no client timeout: a request that hangs
// blocks until its context ends.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostForm sends URL-encoded fields without credentials.
func (c *Client) PostForm(ctx context.Context, path string, fields url.Values) Result {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(fields.Encode()), "application/x-www-form-urlencoded", "")
}

// PostJSON sends body as JSON without credentials.
func (c *Client) PostJSON(ctx context.Context, path string, body any) Result {
	buf, err := json.Marshal(body)
	if err != nil {
		return Result{Err: fmt.Errorf("encode request: %w", err)}
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(buf), "application/json", "")
}

// AuthedGet issues a GET with the bearer credential.
func (c *Client) AuthedGet(ctx context.Context, path, credential string) Result {
	return c.do(ctx, http.MethodGet, path, nil, "", credential)
}

// AuthedPost issues a POST with parameters in the query string and an empty body.
func (c *Client) AuthedPost(ctx context.Context, path string, query url.Values, credential string) Result {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodPost, path, nil, "", credential)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, credential string) Result {
	res := c.send(ctx, method, path, body, contentType, credential)

	outcome := "success"
	switch {
	case res.Err != nil && res.Status == 0:
		outcome = "transport_error"
	case !res.OK():
		outcome = "failure"
	}
	metrics.ClientRequests.WithLabelValues(metrics.Endpoint(path), outcome).Inc()
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", res.Status).
		Str("outcome", outcome).
		Err(res.Err).
		Msg("api call")
	return res
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType, credential string) Result {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return Result{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("records service request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	res := Result{Status: resp.StatusCode}
	if json.Valid(raw) {
		res.Payload = json.RawMessage(raw)
	}
	switch {
	case resp.StatusCode >= 300:
		res.Err = fmt.Errorf("records service error %s", resp.Status)
	case res.Payload == nil:
		res.Err = fmt.Errorf("records service returned a non-JSON body (%s)", resp.Status)
	}
	return res
}
