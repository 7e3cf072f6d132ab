// Package livequote implements upstream.Provider over a live-pricing flight
// search HTTP API that returns results progressively.
package livequote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/txn2/trip-planner/pkg/flight"
	"github.com/txn2/trip-planner/pkg/upstream"
)

const (
	// ProviderName identifies this adapter.
	ProviderName = "livequote"

	apiKeyHeader   = "x-api-key"
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 8 << 20
	maxErrorBody   = 2048

	opCreate = "create"
	opPoll   = "poll"
)

// errShape is wrapped when a response does not match the expected payload.
var errShape = errors.New("unexpected payload shape")

// Config configures the client.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Market   string
	Locale   string
	Currency string

	// HTTPClient overrides the default client. Its timeout is left untouched.
	HTTPClient *http.Client
}

// Client is the HTTP adapter.
type Client struct {
	baseURL  string
	apiKey   string
	market   string
	locale   string
	currency string
	http     *http.Client
}

// New creates a client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("livequote: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("livequote: parsing base URL: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		market:   cfg.Market,
		locale:   cfg.Locale,
		currency: cfg.Currency,
		http:     hc,
	}, nil
}

// Name implements upstream.Provider.
func (*Client) Name() string { return ProviderName }

// Create starts a live search.
func (c *Client) Create(ctx context.Context, q flight.Query) (*upstream.Result, error) {
	body, err := json.Marshal(createRequest{Query: c.buildQuery(q)})
	if err != nil {
		return nil, fmt.Errorf("encoding create request: %w", err)
	}

	resp, err := c.do(ctx, opCreate, c.baseURL+"/search/create", body)
	if err != nil {
		return nil, err
	}
	if resp.SessionToken == "" {
		return nil, &upstream.Error{Op: opCreate, Err: fmt.Errorf("%w: missing sessionToken", errShape)}
	}

	payload, err := resp.toPayload()
	if err != nil {
		return nil, &upstream.Error{Op: opCreate, Err: err}
	}
	return &upstream.Result{Session: resp.SessionToken, Payload: payload}, nil
}

// Poll refreshes an existing live search.
func (c *Client) Poll(ctx context.Context, session string) (*upstream.Result, error) {
	if session == "" {
		return nil, &upstream.Error{Op: opPoll, Err: errors.New("empty provider session")}
	}

	resp, err := c.do(ctx, opPoll, c.baseURL+"/search/poll/"+url.PathEscape(session), nil)
	if err != nil {
		return nil, err
	}

	payload, err := resp.toPayload()
	if err != nil {
		return nil, &upstream.Error{Op: opPoll, Err: err}
	}

	next := resp.SessionToken
	if next == "" {
		next = session
	}
	return &upstream.Result{Session: next, Payload: payload}, nil
}

func (c *Client) do(ctx context.Context, op, endpoint string, body []byte) (*searchResponse, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &upstream.Error{Op: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, &upstream.Error{Op: op, StatusCode: res.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, &upstream.Error{Op: op, StatusCode: res.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &upstream.Error{Op: op, StatusCode: res.StatusCode, Err: fmt.Errorf("%w: %w", errShape, err)}
	}
	return &resp, nil
}

func (c *Client) buildQuery(q flight.Query) wireQuery {
	wq := wireQuery{
		Market:       c.market,
		Locale:       c.locale,
		Currency:     c.currency,
		CabinClass:   cabinClass(q.Cabin),
		Adults:       q.Adults,
		ChildrenAges: q.ChildrenAges,
		QueryLegs:    make([]wireQueryLeg, 0, len(q.Legs)),
	}
	for _, leg := range q.Legs {
		wq.QueryLegs = append(wq.QueryLegs, wireQueryLeg{
			OriginPlaceID:      placeID{IATA: leg.Origin},
			DestinationPlaceID: placeID{IATA: leg.Destination},
			Date:               leg.Date,
		})
	}
	return wq
}

func cabinClass(c flight.Cabin) string {
	switch c {
	case flight.CabinPremiumEconomy:
		return "CABIN_CLASS_PREMIUM_ECONOMY"
	case flight.CabinBusiness:
		return "CABIN_CLASS_BUSINESS"
	case flight.CabinFirst:
		return "CABIN_CLASS_FIRST"
	default:
		return "CABIN_CLASS_ECONOMY"
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify interface compliance.
var _ upstream.Provider = (*Client)(nil)
