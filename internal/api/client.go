// ABOUTME: HTTP client core for the docchat backend REST API.
// ABOUTME: Handles base URL, bearer auth, JSON decoding, and error mapping.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Errors returned by the client. ErrUnauthorized invalidates the whole
// session, not just the call that produced it.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// TokenSource supplies the current bearer token. An empty string means
// no token, in which case requests go out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to the TokenSource interface.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Client talks to the docchat backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger

	// OnUnauthorized is invoked once per 401 response, after the error is
	// mapped. The session layer uses it to force logout.
	OnUnauthorized func()
}

// New creates a Client for the given base URL. Pass nil logger for default.
func New(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
		tokens:  tokens,
		logger:  logger.With("component", "api"),
	}
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests and by
// callers that need custom transports.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// do executes a request against the backend, attaching the bearer token and
// mapping error statuses. The caller owns the returned body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, c.errorFromResponse(resp)
	}

	return resp, nil
}

// doJSON executes a request and decodes the response body into out.
// Pass nil out to discard the body.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// errorFromResponse maps an error status to a client error. The backend
// reports failures as {"detail": "..."} (and some deployments as
// {"error": "..."}); either message is surfaced when present.
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := ""
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		message = payload.Detail
		if message == "" {
			message = payload.Error
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.logger.Warn("request rejected as unauthorized", "url", resp.Request.URL.Path)
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		if message != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, message)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return ErrNotFound
	}

	if message != "" {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, message)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}
