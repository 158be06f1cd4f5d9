package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallsync/internal/model"
)

// Mode selects what a fetch run ingests from each page.
type Mode int

const (
	// ModePosts ingests status items into the posts table.
	ModePosts Mode = iota
	// ModeLikes ingests nested likes lists into person/posts_likes.
	ModeLikes
)

// Options configures one fetch run.
type Options struct {
	Mode  Mode
	Query Query

	// MaxPages bounds the pagination loop; 0 follows the server's next
	// links until it stops returning one.
	MaxPages int

	// SinglePage fetches exactly one page with no continuation.
	SinglePage bool

	// Force and IgnoreCacheTime are the two orthogonal gate overrides;
	// see Gate.
	Force           bool
	IgnoreCacheTime bool
}

// timestampLayout parses the API's created_time values ("2024-01-01T12:00:00+0000").
const timestampLayout = "2006-01-02T15:04:05-0700"

// priorPageLimit is the page size requested when paging back before the
// earliest cached post.
const priorPageLimit = 200

// Service is the orchestration layer: it runs the freshness gate, walks the
// remote API's pagination, and commits each page through the store.
// Execution is strictly sequential; there is exactly one writer.
type Service struct {
	store    Store
	client   Client
	logger   Logger
	clock    Clock
	interval time.Duration
}

// NewService creates a Service with the provided dependencies. interval is
// the configured cache freshness window (0 = always fetch).
func NewService(store Store, client Client, logger Logger, clock Clock, interval time.Duration) *Service {
	return &Service{
		store:    store,
		client:   client,
		logger:   logger,
		clock:    clock,
		interval: interval,
	}
}

// Run performs one fetch run: gate check, pagination, per-page ingestion
// and commit. It returns the aggregated counts across all pages, and
// ErrCacheFresh when the gate decides no fetch is warranted.
//
// A transport failure on any page is fatal for the run: the attempt is
// recorded in the txn log (with its status code when one was obtained) and
// the error is returned with the counts accumulated so far. Per-item
// data-shape problems never escalate; they only affect counts.
func (s *Service) Run(ctx context.Context, opts Options) (Counts, error) {
	gate := Gate{Interval: s.interval, Force: opts.Force, IgnoreCacheTime: opts.IgnoreCacheTime}
	fetch, err := gate.ShouldFetch(s.store, s.clock)
	if err != nil {
		return Counts{}, err
	}
	if !fetch {
		s.logger.Info("cache still fresh, skipping fetch")
		return Counts{}, ErrCacheFresh
	}

	known, err := s.store.KnownRemoteIDs()
	if err != nil {
		return Counts{}, fmt.Errorf("loading known remote ids: %w", err)
	}
	ingester := NewIngester(known)

	var totals Counts
	url := s.client.FirstURL(opts.Query)
	for iteration := 0; url != ""; iteration++ {
		if opts.MaxPages > 0 && iteration >= opts.MaxPages {
			s.logger.Warn("pagination stopped at configured page bound", "max_pages", opts.MaxPages)
			break
		}

		s.logger.Debug("fetching page", "url", url, "iteration", iteration)
		page, status, err := s.client.Get(ctx, url)
		if err != nil {
			s.recordFailure(status)
			return totals, err
		}
		s.logger.Debug("page received", "items", len(page.Data), "status", status)

		var posts []model.Post
		var people []model.Person
		var likes []model.Like
		var counts Counts
		switch opts.Mode {
		case ModeLikes:
			people, likes, counts = ingester.Likes(page)
		default:
			posts, counts = ingester.Posts(page)
		}

		if err := s.store.CommitPage(s.clock.Now(), status, posts, people, likes); err != nil {
			return totals, fmt.Errorf("committing page: %w", err)
		}
		totals.Add(counts)
		s.logger.Info("page committed",
			"inserted", counts.Inserted, "skipped", counts.Skipped, "invalid", counts.Invalid)

		if opts.SinglePage {
			break
		}
		url = page.Paging.Next
	}

	return totals, nil
}

// Prior fetches the window before the earliest cached post: the
// historical/experimental fetch-prior path. It always bypasses the gate and
// fetches a single page.
func (s *Service) Prior(ctx context.Context, opts Options) (Counts, error) {
	ts, ok, err := s.store.EarliestPostTimestamp()
	if err != nil {
		return Counts{}, fmt.Errorf("finding earliest post: %w", err)
	}
	if !ok {
		return Counts{}, errors.New("no cached posts to page back from")
	}

	earliest, err := time.Parse(timestampLayout, ts)
	if err != nil {
		return Counts{}, fmt.Errorf("parsing earliest post timestamp %q: %w", ts, err)
	}

	opts.Query.Until = earliest.Unix()
	if opts.Query.Limit == 0 {
		opts.Query.Limit = priorPageLimit
	}
	opts.Force = true
	opts.SinglePage = true

	s.logger.Info("fetching prior window", "until", ts)
	return s.Run(ctx, opts)
}

// recordFailure writes an audit row for a request that produced no
// committed page. A 2xx status whose body could not be read or decoded is
// recorded as NULL: the freshness gate treats any 2xx row as a successful
// fetch, and only CommitPage may write those. Best effort: the transport
// error wins over a log write failure.
func (s *Service) recordFailure(status int) {
	var code *int
	if status != 0 && (status < 200 || status > 299) {
		code = &status
	}
	if err := s.store.RecordRequest(s.clock.Now(), code); err != nil {
		s.logger.Error("recording failed request", "error", err)
	}
}
