package app

import (
	"errors"

	"wallsync/internal/feed"
)

// Exit codes form the CLI's historical contract with cron wrappers; the
// values for config, token, cache-fresh, and prior-fetch outcomes are kept
// from the original tooling.
const (
	ExitOK            = 0
	ExitConfig        = 1  // missing/invalid config file
	ExitNoAccessToken = 3  // no access token resolved
	ExitTransport     = 10 // HTTP failure or malformed response body
	ExitStorage       = 11 // storage or internal failure
	ExitCacheFresh    = 12 // cache still fresh, fetch skipped
	ExitFetchPrior    = 32 // the historical/experimental fetch-prior path
)

// ErrMissingAccessToken is returned when no access token was resolved from
// config or flags.
var ErrMissingAccessToken = errors.New("no access token configured")

// ErrPriorCompleted marks a completed prior-fetch run. Not a failure; the
// prior path has always signalled itself through its own exit code.
var ErrPriorCompleted = errors.New("prior fetch completed")

// ConfigError marks configuration problems: missing file, undecodable TOML.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch {
	case errors.Is(err, ErrMissingAccessToken):
		return ExitNoAccessToken
	case errors.Is(err, feed.ErrCacheFresh):
		return ExitCacheFresh
	case errors.Is(err, ErrPriorCompleted):
		return ExitFetchPrior
	}

	var confErr *ConfigError
	if errors.As(err, &confErr) {
		return ExitConfig
	}

	var transportErr *feed.TransportError
	if errors.As(err, &transportErr) {
		return ExitTransport
	}

	return ExitStorage
}
