package feed

import (
	"errors"
	"fmt"
)

// ErrCacheFresh is returned when the freshness gate decides the cached data
// is recent enough and no fetch happens. It is a deliberate short-circuit,
// not a failure; the CLI maps it to its own exit code.
var ErrCacheFresh = errors.New("cache data is still fresh")

// TransportError reports a failed request against the remote API: a non-2xx
// response, an undecodable body, or a transport-level failure before any
// status was received (StatusCode 0). It is fatal for the invocation; the
// next cron/CLI run is the retry mechanism.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
