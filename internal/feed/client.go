package feed

import "context"

// Query bounds one fetch window against the remote API.
type Query struct {
	Type   string   // item type tag, e.g. "status"
	Fields []string // requested fields, joined with commas on the wire
	Since  int64    // unix seconds, 0 = unset
	Until  int64    // unix seconds, 0 = unset
	Limit  int64    // page size hint, 0 = server default
}

// Client fetches pages from the remote feed API. The pagination loop never
// constructs continuation URLs itself; it only follows what the server
// returned in Paging.Next.
type Client interface {
	// FirstURL builds the initial request URL for a query.
	FirstURL(q Query) string

	// Get fetches and decodes one page. The status code is returned
	// whenever an HTTP response was received, even when err is non-nil
	// (non-2xx, undecodable body); it is 0 on transport failure.
	Get(ctx context.Context, url string) (page *Page, statusCode int, err error)
}
