package testutil

import (
	"context"
	"fmt"
	"sync"

	"wallsync/internal/feed"
)

// FirstPageURL is the URL StubClient returns from FirstURL.
const FirstPageURL = "stub://page/0"

// StubResponse is one scripted response for a StubClient URL.
type StubResponse struct {
	Page   *feed.Page
	Status int
	Err    error
}

// StubClient serves scripted pages keyed by URL and records every request.
// Safe for concurrent use.
type StubClient struct {
	mu        sync.Mutex
	responses map[string]StubResponse
	requests  []string
	lastQuery feed.Query
}

// NewStubClient creates an empty StubClient. Requests for unscripted URLs
// fail the run.
func NewStubClient() *StubClient {
	return &StubClient{responses: make(map[string]StubResponse)}
}

// Respond scripts a successful 200 response for url. next becomes the
// page's continuation; empty ends pagination.
func (c *StubClient) Respond(url string, items []feed.Item, next string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[url] = StubResponse{
		Page:   &feed.Page{Data: items, Paging: feed.Paging{Next: next}},
		Status: 200,
	}
}

// Fail scripts a failed response for url.
func (c *StubClient) Fail(url string, status int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[url] = StubResponse{Status: status, Err: err}
}

// Requests returns the URLs fetched so far, in order.
func (c *StubClient) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}

// LastQuery returns the query most recently passed to FirstURL.
func (c *StubClient) LastQuery() feed.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastQuery
}

func (c *StubClient) FirstURL(q feed.Query) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastQuery = q
	return FirstPageURL
}

func (c *StubClient) Get(ctx context.Context, url string) (*feed.Page, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, url)

	resp, ok := c.responses[url]
	if !ok {
		return nil, 0, fmt.Errorf("no scripted response for %s", url)
	}
	if resp.Err != nil {
		return nil, resp.Status, resp.Err
	}
	return resp.Page, resp.Status, nil
}

var _ feed.Client = (*StubClient)(nil)
