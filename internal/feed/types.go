package feed

// Wire types for the remote feed API. A response is a JSON object with a
// "data" array of items and optional paging metadata; which item fields are
// populated depends on the field list the request asked for.

// Page is one API response page.
type Page struct {
	Data   []Item `json:"data"`
	Paging Paging `json:"paging"`
}

// Paging carries the opaque server-issued continuation. An empty Next ends
// pagination.
type Paging struct {
	Next string `json:"next"`
}

// Item is one remote feed item. Message and Privacy are pointers so a
// missing field can be told apart from an empty one; items missing either
// are invalid and never stored.
type Item struct {
	ID          string    `json:"id"`
	Message     *string   `json:"message"`
	Type        string    `json:"type"`
	CreatedTime string    `json:"created_time"`
	Privacy     *Privacy  `json:"privacy"`
	Likes       *LikeList `json:"likes"`
}

// Privacy is the nested privacy object on a status item.
type Privacy struct {
	Description *string `json:"description"`
}

// LikeList is the nested likes list on a like-scrape item.
type LikeList struct {
	Data []Liker `json:"data"`
}

// Liker is one person in a likes list. The API sends ids as strings.
type Liker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
