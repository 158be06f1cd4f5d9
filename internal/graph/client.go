// Package graph implements the HTTP client for the remote feed API.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wallsync/internal/config"
	"wallsync/internal/feed"
)

// DefaultBaseURL is the templated endpoint fetched when the config does not
// override it.
const DefaultBaseURL = "https://graph.facebook.com/me/posts"

// Client fetches pages from the remote feed API over HTTP. Requests carry
// the access token, item type, and comma-separated field list as query
// parameters; continuation URLs come back opaque from the server and are
// fetched as-is.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      feed.Logger
}

// NewClient creates a Client from graph configuration.
func NewClient(cfg config.GraphConfig, logger feed.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL:     base,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout()},
		logger:      logger,
	}
}

// FirstURL builds the initial request URL for a query.
func (c *Client) FirstURL(q feed.Query) string {
	v := url.Values{}
	v.Set("access_token", c.accessToken)
	v.Set("type", q.Type)
	v.Set("fields", strings.Join(q.Fields, ","))
	if q.Since > 0 {
		v.Set("since", strconv.FormatInt(q.Since, 10))
	}
	if q.Until > 0 {
		v.Set("until", strconv.FormatInt(q.Until, 10))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.FormatInt(q.Limit, 10))
	}
	return c.baseURL + "?" + v.Encode()
}

// Get fetches and decodes one page. Any failure (transport error, non-2xx
// status, undecodable body) comes back as a *feed.TransportError; the
// status code is returned alongside whenever a response was received so the
// caller can still audit the attempt.
func (c *Client) Get(ctx context.Context, rawURL string) (*feed.Page, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, &feed.TransportError{URL: rawURL, Err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &feed.TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &feed.TransportError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &feed.TransportError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("reading response body: %w", err),
		}
	}

	var page feed.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, resp.StatusCode, &feed.TransportError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decoding response body: %w", err),
		}
	}

	c.logger.Debug("response decoded", "bytes", len(body), "items", len(page.Data))
	return &page, resp.StatusCode, nil
}

// Compile-time check that Client implements feed.Client
var _ feed.Client = (*Client)(nil)
