// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch triggers the external search workflow. A trigger is a
// single HTTP POST; the workflow reports its result only by writing a row
// into the shared search log, never in the response.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-relay/internal/httputil"
	"github.com/pdiddy/paper-relay/pkg/types"
)

const (
	// DefaultTimeout bounds a trigger call. The workflow may run its whole
	// search before answering.
	DefaultTimeout = 90 * time.Second

	// DefaultPingTimeout bounds a connection check.
	DefaultPingTimeout = 5 * time.Second

	defaultUserAgent = "paper-relay/0.1"
)

// Request is the trigger payload.
type Request struct {
	Query     string `json:"query"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// NewRequest stamps query with requestID and the dispatch time. An empty
// requestID gets a fresh one.
func NewRequest(query, requestID string, now time.Time) Request {
	if requestID == "" {
		requestID = NewRequestID()
	}
	return Request{
		Query:     query,
		RequestID: requestID,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// NewRequestID returns a unique, time-ordered request identifier.
func NewRequestID() string {
	return "req_" + uuid.Must(uuid.NewV7()).String()
}

// Ack is the workflow's acknowledgement of a trigger.
type Ack struct {
	URL        string
	StatusCode int
	RequestID  string

	// Body is the start of the response body, for diagnostics only.
	Body string
}

// Error is returned when a trigger call fails. StatusCode is zero when
// the request never completed.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("workflow error %d at %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("workflow request to %s failed: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsDispatchError reports whether err is (or wraps) a dispatch *Error.
func IsDispatchError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// Client posts trigger requests to the workflow endpoint.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// NewClient returns a Client using cfg's timeout and user agent.
func NewClient(cfg types.HTTPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: ua,
	}
}

// Trigger sends req to url. Anything other than HTTP 200, and any
// transport failure, is an *Error. There is no retry: a blind retry could
// start a second workflow run for the same query.
func (c *Client) Trigger(ctx context.Context, url string, req Request) (Ack, error) {
	if strings.TrimSpace(url) == "" {
		return Ack{}, &Error{URL: url, Err: errors.New("workflow endpoint is not configured")}
	}

	resp, err := httputil.PostJSON(ctx, c.HTTP, url, c.UserAgent, req)
	if err != nil {
		return Ack{}, &Error{URL: url, Err: err}
	}
	if !resp.OK() {
		return Ack{}, &Error{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}

	return Ack{
		URL:        url,
		StatusCode: resp.StatusCode,
		RequestID:  req.RequestID,
		Body:       excerpt(resp.Body, 512),
	}, nil
}

// Ping checks that the workflow endpoint accepts requests by posting
// {"query": "ping"} with a short timeout.
func (c *Client) Ping(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := httputil.PostJSON(ctx, c.HTTP, url, c.UserAgent, map[string]string{"query": "ping"})
	if err != nil {
		return &Error{URL: url, Err: err}
	}
	if !resp.OK() {
		return &Error{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

func excerpt(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
