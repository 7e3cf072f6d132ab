// Package client talks to the flight search endpoint and drives the poll
// loop that keeps a local view of a search up to date.
package client

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

	"github.com/txn2/trip-planner/pkg/flight"
	"github.com/txn2/trip-planner/pkg/search"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// APIError is a non-success response from the search endpoint. Snapshot is
// set when the server reported the failure inside a full response body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Snapshot   *search.Snapshot
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("search endpoint returned status %d", e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Client calls the create/poll endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a client for the service rooted at baseURL. A nil hc uses a
// client with a default timeout.
func New(baseURL string, hc *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + search.Path,
		http:     hc,
	}, nil
}

// Create starts a search.
func (c *Client) Create(ctx context.Context, q flight.Query) (*search.Snapshot, error) {
	return c.call(ctx, search.Request{Query: &q})
}

// Poll refreshes a search.
func (c *Client) Poll(ctx context.Context, token string) (*search.Snapshot, error) {
	return c.call(ctx, search.Request{SessionToken: token})
}

func (c *Client) call(ctx context.Context, body search.Request) (*search.Snapshot, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling search endpoint: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if res.StatusCode == http.StatusOK {
		var snap search.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		return &snap, nil
	}

	apiErr := &APIError{StatusCode: res.StatusCode}
	var snap search.Snapshot
	if json.Unmarshal(data, &snap) == nil && snap.SessionToken != "" {
		apiErr.Snapshot = &snap
		apiErr.Message = snap.Error
		return nil, apiErr
	}
	var errBody search.ErrorResponse
	if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
		apiErr.Code = errBody.Error
		apiErr.Message = errBody.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return nil, apiErr
}
