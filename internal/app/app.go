package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"wallsync/internal/archive"
	"wallsync/internal/config"
	"wallsync/internal/encryption"
	"wallsync/internal/feed"
	"wallsync/internal/graph"
	"wallsync/internal/model"
	"wallsync/internal/store"
	"wallsync/internal/vault"
)

// App is the application layer between the CLI and the feed service.
// It constructs all dependencies from config, exposes the high-level
// operations the commands run, and manages the store lifetime: one
// connection acquired here, guaranteed released by Close.
type App struct {
	cfg     *config.Config
	store   *store.Store
	service *feed.Service
	logger  feed.Logger
	logFile *os.File
}

// New creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Fetch", "Archive").
// The caller must call Close when done.
func New(cfg *config.Config, operation string, verbosity int) (*App, error) {
	opID := uuid.New().String()
	slogger, logFile, err := newLogger(cfg.LogDir, opID, verbosity)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With(slog.String("operation", operation))}

	st, err := store.NewFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening cache store: %w", err)
	}

	client := graph.NewClient(cfg.Graph, logger)
	svc := feed.NewService(st, client, logger, feed.RealClock{}, cfg.Graph.UpdateInterval())

	return &App{
		cfg:     cfg,
		store:   st,
		service: svc,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Fetch pulls status posts from the remote feed into the cache.
// force bypasses the freshness gate and fetches a single page only;
// ignoreCacheTime disables just the time-window check.
func (a *App) Fetch(force, ignoreCacheTime bool) (feed.Counts, error) {
	if a.cfg.Graph.AccessToken == "" {
		return feed.Counts{}, ErrMissingAccessToken
	}

	opts := feed.Options{
		Mode: feed.ModePosts,
		Query: feed.Query{
			Type:   "status",
			Fields: a.cfg.Graph.Fields,
			Limit:  a.cfg.Graph.PageLimit,
		},
		MaxPages:        a.cfg.Graph.MaxPages,
		SinglePage:      force,
		Force:           force,
		IgnoreCacheTime: ignoreCacheTime,
	}
	return a.service.Run(context.Background(), opts)
}

// FetchLikes pulls the likes lists for cached posts. Like scraping always
// fetches; its requests still land in the txn log and so feed future gate
// decisions.
func (a *App) FetchLikes() (feed.Counts, error) {
	if a.cfg.Graph.AccessToken == "" {
		return feed.Counts{}, ErrMissingAccessToken
	}

	opts := feed.Options{
		Mode: feed.ModeLikes,
		Query: feed.Query{
			Type:   "status",
			Fields: []string{"id", "likes"},
		},
		MaxPages:        a.cfg.Graph.MaxPages,
		IgnoreCacheTime: true,
	}
	return a.service.Run(context.Background(), opts)
}

// FetchPrior pulls the window before the earliest cached post.
func (a *App) FetchPrior() (feed.Counts, error) {
	if a.cfg.Graph.AccessToken == "" {
		return feed.Counts{}, ErrMissingAccessToken
	}

	opts := feed.Options{
		Mode: feed.ModePosts,
		Query: feed.Query{
			Type:   "status",
			Fields: a.cfg.Graph.Fields,
		},
	}
	return a.service.Prior(context.Background(), opts)
}

// History returns the most recent request attempts, newest first.
func (a *App) History(limit int) ([]model.Transaction, error) {
	return a.store.RecentTransactions(limit)
}

// Archive snapshots the cache database into the configured vault. Returns
// the stored snapshot version.
func (a *App) Archive() (int64, error) {
	svc, err := a.archiveService()
	if err != nil {
		return 0, err
	}
	return svc.Archive()
}

// RestoreSnapshot downloads the archived snapshot and writes it to
// destPath. passphrase unlocks the private key when encryption is
// configured; it is ignored otherwise.
func (a *App) RestoreSnapshot(destPath, passphrase string) error {
	svc, err := a.archiveService()
	if err != nil {
		return err
	}

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	var dec encryption.DecryptionContext
	if enc.IsConfigured() {
		dec, err = enc.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}

	return svc.Restore(destPath, dec)
}

// archiveService wires the archive layer from config.
func (a *App) archiveService() (*archive.Service, error) {
	if len(a.cfg.Vaults) == 0 {
		return nil, &ConfigError{Err: fmt.Errorf("no vaults configured")}
	}

	v, err := vault.NewVaultFromConfig(a.cfg.Vaults[0])
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	return archive.NewService(a.store, v, enc, a.logger, a.cfg.HostID), nil
}

// Close releases the store connection and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing cache store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
