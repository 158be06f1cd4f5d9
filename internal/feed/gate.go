package feed

import (
	"fmt"
	"time"
)

// Gate is the cache-freshness check. It runs once per invocation,
// synchronously, before any network access.
type Gate struct {
	// Interval is the configured freshness window; 0 or negative means
	// always fetch.
	Interval time.Duration

	// Force bypasses the gate entirely (the caller also restricts the run
	// to a single page, but that is the loop's concern, not the gate's).
	Force bool

	// IgnoreCacheTime disables only the time-window check, leaving dedup
	// and pagination behavior intact. Orthogonal to Force.
	IgnoreCacheTime bool
}

// ShouldFetch reports whether a remote fetch is warranted given the store's
// transaction history.
func (g Gate) ShouldFetch(store Store, clock Clock) (bool, error) {
	if g.Force || g.IgnoreCacheTime || g.Interval <= 0 {
		return true, nil
	}

	last, ok, err := store.LatestSuccessfulRequest()
	if err != nil {
		return false, fmt.Errorf("reading transaction log: %w", err)
	}
	if !ok {
		// No prior successful fetch; nothing to be fresh relative to.
		return true, nil
	}

	return clock.Now().Sub(last) >= g.Interval, nil
}
