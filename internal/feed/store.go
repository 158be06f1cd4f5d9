package feed

import (
	"time"

	"wallsync/internal/model"
)

// Store provides an interface for the persistent cache the fetch engine
// writes through. All writes for one response page go through CommitPage so
// a failure partway never leaves a page half-committed.
type Store interface {
	// RecordRequest appends an audit row for a request whose page was NOT
	// committed: statusCode is the HTTP status when one was received, nil
	// on transport failure.
	RecordRequest(requestedAt time.Time, statusCode *int) error

	// LatestSuccessfulRequest returns the time of the most recent request
	// that got a 2xx response; ok is false when there is none.
	LatestSuccessfulRequest() (t time.Time, ok bool, err error)

	// EarliestPostTimestamp returns the smallest cached created_timestamp;
	// ok is false when no posts are cached.
	EarliestPostTimestamp() (ts string, ok bool, err error)

	// KnownRemoteIDs returns the set of remote ids already cached.
	KnownRemoteIDs() (map[string]struct{}, error)

	// CommitPage atomically records the txn row for a successful request
	// together with the page's post, person, and like upserts.
	CommitPage(requestedAt time.Time, statusCode int, posts []model.Post, people []model.Person, likes []model.Like) error
}
