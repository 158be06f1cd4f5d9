package main

import (
	"testing"

	"wallsync/internal/config"
	"wallsync/internal/feed"
)

func TestSummaryLine(t *testing.T) {
	tests := []struct {
		name   string
		counts feed.Counts
		want   string
	}{
		{"inserted posts", feed.Counts{Inserted: 12, Skipped: 3}, "Inserted 12 posts"},
		{"nothing inserted", feed.Counts{Skipped: 5, Invalid: 1}, "No additional posts were fetched."},
		{"empty run", feed.Counts{}, "No additional posts were fetched."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summaryLine(tt.counts); got != tt.want {
				t.Errorf("summaryLine(%+v) = %q, want %q", tt.counts, got, tt.want)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	t.Run("flags override the file config", func(t *testing.T) {
		cfg := config.NewConfig("host", t.TempDir())
		cfg.Graph.AccessToken = "from-file"
		cfg.Graph.ClientID = 1

		applyOverrides(cfg, "from-flag", 42)
		if cfg.Graph.AccessToken != "from-flag" {
			t.Errorf("AccessToken = %q, want %q", cfg.Graph.AccessToken, "from-flag")
		}
		if cfg.Graph.ClientID != 42 {
			t.Errorf("ClientID = %d, want 42", cfg.Graph.ClientID)
		}
	})

	t.Run("unset flags leave the config alone", func(t *testing.T) {
		cfg := config.NewConfig("host", t.TempDir())
		cfg.Graph.AccessToken = "from-file"
		cfg.Graph.ClientID = 1

		applyOverrides(cfg, "", 0)
		if cfg.Graph.AccessToken != "from-file" {
			t.Errorf("AccessToken = %q, want %q", cfg.Graph.AccessToken, "from-file")
		}
		if cfg.Graph.ClientID != 1 {
			t.Errorf("ClientID = %d, want 1", cfg.Graph.ClientID)
		}
	})
}

func TestPersistentFlags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
	}{
		{"access-token", "A"},
		{"client-id", "C"},
		{"config-file", "f"},
	}
	for _, tt := range tests {
		f := rootCmd.PersistentFlags().Lookup(tt.name)
		if f == nil {
			t.Fatalf("persistent flag %q not registered", tt.name)
		}
		if f.Shorthand != tt.shorthand {
			t.Errorf("flag %q shorthand = %q, want %q", tt.name, f.Shorthand, tt.shorthand)
		}
	}

	force := fetchCmd.Flags().Lookup("force")
	if force == nil {
		t.Fatal("fetch flag \"force\" not registered")
	}
	if force.Shorthand != "R" {
		t.Errorf("force shorthand = %q, want %q", force.Shorthand, "R")
	}
}
