package app

import (
	"errors"
	"fmt"
	"testing"

	"wallsync/internal/feed"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error",
			err:  nil,
			want: ExitOK,
		},
		{
			name: "missing access token",
			err:  ErrMissingAccessToken,
			want: ExitNoAccessToken,
		},
		{
			name: "wrapped missing access token",
			err:  fmt.Errorf("fetch failed: %w", ErrMissingAccessToken),
			want: ExitNoAccessToken,
		},
		{
			name: "cache fresh",
			err:  feed.ErrCacheFresh,
			want: ExitCacheFresh,
		},
		{
			name: "prior completed",
			err:  ErrPriorCompleted,
			want: ExitFetchPrior,
		},
		{
			name: "config error",
			err:  &ConfigError{Err: errors.New("no such file")},
			want: ExitConfig,
		},
		{
			name: "transport error",
			err:  &feed.TransportError{URL: "https://example.com", StatusCode: 500, Err: errors.New("boom")},
			want: ExitTransport,
		},
		{
			name: "wrapped transport error",
			err:  fmt.Errorf("fetch failed: %w", &feed.TransportError{URL: "https://example.com", Err: errors.New("refused")}),
			want: ExitTransport,
		},
		{
			name: "anything else is a storage failure",
			err:  errors.New("disk full"),
			want: ExitStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	inner := errors.New("decode failed")
	err := &ConfigError{Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is() = false, want ConfigError to unwrap to inner error")
	}
	if err.Error() != "decode failed" {
		t.Errorf("Error() = %q, want inner message", err.Error())
	}
}
