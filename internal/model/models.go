package model

import (
	"database/sql"
	"time"
)

// Transaction is one row of the append-only request log: a single outbound
// API request attempt. StatusCode is NULL when the request failed at the
// transport level before a status was available.
type Transaction struct {
	ID          int64
	RequestedAt time.Time
	StatusCode  sql.NullInt64
}

// Post is one cached remote feed item.
// RemoteID is the API's identifier for the item and is unique across the
// posts table; ID is the local surrogate key.
type Post struct {
	ID                 int64
	RemoteID           string
	Message            string
	PrivacyDescription string // "Public", "Friends", "Only Me", ...
	CreatedTimestamp   string // ISO-8601 with offset, as the API returns it
	Type               string // item type tag, e.g. "status"
}

// Person is a distinct liker. ID is the remote person id, used directly as
// the primary key (not a surrogate).
type Person struct {
	ID   int64
	Name string
}

// Like associates a person with a post by the post's remote id. The local
// post id is resolved when the page is committed; likes for posts that were
// never cached are dropped there.
type Like struct {
	PersonID     int64
	PostRemoteID string
}
