// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across components.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps how much of a response body is read.
const MaxBodyBytes = 64 << 10

// Response is a completed HTTP exchange with its body read.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the exchange returned HTTP 200.
func (r Response) OK() bool { return r.StatusCode == http.StatusOK }

// PostJSON encodes payload as JSON and POSTs it to url. It makes exactly
// one attempt. A non-nil error means the request never completed
// (encoding, transport, or context failure); any HTTP status is returned
// in Response for the caller to judge. At most MaxBodyBytes of the
// response body are read.
func PostJSON(ctx context.Context, client *http.Client, url, userAgent string, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return Response{StatusCode: resp.StatusCode}, fmt.Errorf("reading response body: %w", err)
	}
	// Drain the rest so the connection can be reused.
	io.Copy(io.Discard, resp.Body)

	return Response{StatusCode: resp.StatusCode, Body: data}, nil
}
