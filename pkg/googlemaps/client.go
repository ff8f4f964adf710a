// Package googlemaps is a small client for the Google Maps Platform web
// services used by the station locator: Places Nearby Search, Place
// Autocomplete, Place Details and Directions.
//
// Every call decodes into an explicit response schema and validates it in one
// place, so callers never see half-populated records: a result without an id
// or numeric coordinates is dropped rather than passed on.
package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

var (
	// ErrMissingAPIKey is returned by every call when no key is configured.
	ErrMissingAPIKey = errors.New("googlemaps: missing API key")
	// ErrPlaceNotFound is returned by PlaceDetails for unknown or incomplete places.
	ErrPlaceNotFound = errors.New("googlemaps: place not found")
)

// StatusError reports a response whose "status" field is not a success value.
type StatusError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("googlemaps: %s returned %s: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("googlemaps: %s returned %s", e.Endpoint, e.Status)
}

// Options configures a Client.
type Options struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	PageDelay time.Duration // wait before following a next_page_token
	MaxPages  int           // upper bound on pages fetched per nearby search
}

// Client provides access to the Google Maps Platform web services.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pageDelay  time.Duration
	maxPages   int
	logger     *zap.Logger
}

// NewClient creates a client with its own http.Client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return NewClientWithHTTP(opts, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a client using the given http.Client.
func NewClientWithHTTP(opts Options, httpClient *http.Client, logger *zap.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		pageDelay:  opts.PageDelay,
		maxPages:   maxPages,
		logger:     logger.Named("googlemaps"),
	}
}

// HasAPIKey reports whether a key is configured.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// getJSON issues a GET to baseURL+path with params plus the API key and
// decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if !c.HasAPIKey() {
		return ErrMissingAPIKey
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("googlemaps: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("path", path), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return fmt.Errorf("googlemaps: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("non-200 response", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return fmt.Errorf("googlemaps: %s: http status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("googlemaps: decode %s: %w", path, err)
	}

	c.logger.Debug("request ok", zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
