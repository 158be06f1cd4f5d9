package feed

import (
	"strconv"

	"wallsync/internal/model"
)

// Counts aggregates per-page ingestion outcomes for caller-side reporting.
// Data-shape problems never raise errors; they only show up here.
type Counts struct {
	Invalid  int // items dropped for missing required fields
	Skipped  int // items whose remote id was already cached at loop start
	Inserted int // items (or likes) batched for commit
}

// Add accumulates another page's counts into the totals.
func (c *Counts) Add(o Counts) {
	c.Invalid += o.Invalid
	c.Skipped += o.Skipped
	c.Inserted += o.Inserted
}

// Ingester validates, deduplicates, and maps items from API response pages
// into store batches. The known-id set is snapshotted once when the
// ingester is created and deliberately not refreshed between pages: the
// store's unique index still makes overlapping pages idempotent, the
// counters just reflect the set known at loop start.
type Ingester struct {
	known      map[string]struct{}
	seenPeople map[int64]struct{}
}

// NewIngester creates an Ingester over the given known-remote-id snapshot.
func NewIngester(known map[string]struct{}) *Ingester {
	if known == nil {
		known = make(map[string]struct{})
	}
	return &Ingester{
		known:      known,
		seenPeople: make(map[int64]struct{}),
	}
}

// Posts maps one page of status items into a post batch.
//
// An item is invalid when it lacks a message, lacks a privacy object, or
// its privacy object lacks a description; invalid items are counted and
// dropped, never stored. An item whose remote id is already known is
// counted as skipped.
func (in *Ingester) Posts(page *Page) ([]model.Post, Counts) {
	var posts []model.Post
	var counts Counts

	for _, item := range page.Data {
		if item.Message == nil || item.Privacy == nil || item.Privacy.Description == nil {
			counts.Invalid++
			continue
		}
		if _, ok := in.known[item.ID]; ok {
			counts.Skipped++
			continue
		}

		posts = append(posts, model.Post{
			RemoteID:           item.ID,
			Message:            *item.Message,
			PrivacyDescription: *item.Privacy.Description,
			CreatedTimestamp:   item.CreatedTime,
			Type:               item.Type,
		})
		counts.Inserted++
	}

	return posts, counts
}

// Likes maps one page of like-scrape items into person and like batches.
// An item whose post was never cached is skipped whole, silently, before
// any of its likers are touched: no person row, no count. Likes stay keyed
// by the owning post's remote id; the store resolves the local post id at
// commit time.
//
// The seen-person set spans the whole run so a person liking many posts is
// batched once; the store's insert-or-ignore makes this an optimization,
// not a correctness requirement. A liker with an unparseable id counts as
// invalid.
func (in *Ingester) Likes(page *Page) ([]model.Person, []model.Like, Counts) {
	var people []model.Person
	var likes []model.Like
	var counts Counts

	for _, item := range page.Data {
		if _, ok := in.known[item.ID]; !ok {
			continue
		}
		if item.Likes == nil {
			continue
		}
		for _, liker := range item.Likes.Data {
			personID, err := strconv.ParseInt(liker.ID, 10, 64)
			if err != nil {
				counts.Invalid++
				continue
			}

			likes = append(likes, model.Like{
				PersonID:     personID,
				PostRemoteID: item.ID,
			})
			counts.Inserted++

			if _, ok := in.seenPeople[personID]; !ok {
				people = append(people, model.Person{ID: personID, Name: liker.Name})
				in.seenPeople[personID] = struct{}{}
			}
		}
	}

	return people, likes, counts
}
