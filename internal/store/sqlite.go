package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wallsync/internal/config"
	"wallsync/internal/feed"
	"wallsync/internal/model"
	"wallsync/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// CacheFileName is the cache database file inside the configured cache dir.
const CacheFileName = "wallsync_cache.db"

// Store is the SQLite-backed persistent store. It owns the four cache
// tables (txn, posts, posts_likes, person) and is the single source of
// truth for every other component.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the cache database at path and brings
// its schema up to date. path can be ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// NewFromConfig creates a Store based on the database config type.
func NewFromConfig(cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.CacheDir == "" {
			return nil, fmt.Errorf("cache_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		return Open(filepath.Join(cfg.CacheDir, CacheFileName))
	case "memory":
		return Open(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// Exported for tools and tests that need a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Transaction log operations

// RecordRequest appends a row to the txn log for a request that produced no
// committed page: statusCode is the HTTP status when one was received, nil
// on transport failure. Pages that commit record their txn row inside
// CommitPage instead.
func (s *Store) RecordRequest(requestedAt time.Time, statusCode *int) error {
	code := sql.NullInt64{}
	if statusCode != nil {
		code = sql.NullInt64{Int64: int64(*statusCode), Valid: true}
	}
	_, err := s.db.Exec(
		"INSERT INTO txn (datetime_requested, return_code) VALUES (?, ?)",
		requestedAt.Unix(), code,
	)
	if err != nil {
		return fmt.Errorf("recording request: %w", err)
	}
	return nil
}

// LatestSuccessfulRequest returns the time of the most recent request that
// got a 2xx response. The second return value is false when no such request
// has been recorded.
func (s *Store) LatestSuccessfulRequest() (time.Time, bool, error) {
	var unix int64
	err := s.db.QueryRow(
		"SELECT datetime_requested FROM txn WHERE return_code BETWEEN 200 AND 299 ORDER BY id DESC LIMIT 1",
	).Scan(&unix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("finding latest successful request: %w", err)
	}
	return time.Unix(unix, 0), true, nil
}

// LatestTransactionID returns the highest txn id, 0 for an empty log.
// Used as the monotonic version for snapshot archiving.
func (s *Store) LatestTransactionID() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM txn").Scan(&id); err != nil {
		return 0, fmt.Errorf("finding latest transaction id: %w", err)
	}
	return id.Int64, nil
}

// RecentTransactions returns the most recent request attempts, newest first.
func (s *Store) RecentTransactions(limit int) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		"SELECT id, datetime_requested, return_code FROM txn ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var unix int64
		if err := rows.Scan(&t.ID, &unix, &t.StatusCode); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.RequestedAt = time.Unix(unix, 0)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, nil
}

// Post operations

// KnownRemoteIDs returns the set of remote ids already cached. Callers take
// this snapshot once per fetch run; it is not refreshed between pages.
func (s *Store) KnownRemoteIDs() (map[string]struct{}, error) {
	rows, err := s.db.Query("SELECT fbk_id FROM posts")
	if err != nil {
		return nil, fmt.Errorf("loading known remote ids: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning remote id: %w", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading known remote ids: %w", err)
	}
	return known, nil
}

// EarliestPostTimestamp returns the smallest created_timestamp in the posts
// table. The second return value is false when no posts are cached.
func (s *Store) EarliestPostTimestamp() (string, bool, error) {
	var ts string
	err := s.db.QueryRow(
		"SELECT created_timestamp FROM posts ORDER BY created_timestamp ASC LIMIT 1",
	).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("finding earliest post timestamp: %w", err)
	}
	return ts, true, nil
}

// FindPostByRemoteID returns the cached post with the given remote id, or
// nil when it was never cached.
func (s *Store) FindPostByRemoteID(remoteID string) (*model.Post, error) {
	var p model.Post
	err := s.db.QueryRow(
		"SELECT id, fbk_id, message, privacy_description, created_timestamp, type FROM posts WHERE fbk_id = ?",
		remoteID,
	).Scan(&p.ID, &p.RemoteID, &p.Message, &p.PrivacyDescription, &p.CreatedTimestamp, &p.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding post by remote id: %w", err)
	}
	return &p, nil
}

// ListPosts returns all cached posts ordered by created timestamp. This is
// the read surface the rendering collaborator consumes.
func (s *Store) ListPosts() ([]model.Post, error) {
	rows, err := s.db.Query(
		"SELECT id, fbk_id, message, privacy_description, created_timestamp, type FROM posts ORDER BY created_timestamp ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.RemoteID, &p.Message, &p.PrivacyDescription, &p.CreatedTimestamp, &p.Type); err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// PostCount returns the number of cached posts.
func (s *Store) PostCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting posts: %w", err)
	}
	return n, nil
}

// PersonCount returns the number of cached people.
func (s *Store) PersonCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM person").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting people: %w", err)
	}
	return n, nil
}

// LikersForPost returns the people who liked the post with the given remote
// id, ordered by person id.
func (s *Store) LikersForPost(remoteID string) ([]model.Person, error) {
	rows, err := s.db.Query(
		`SELECT person.id, person.name
		 FROM person
		 JOIN posts_likes ON posts_likes.person_id = person.id
		 JOIN posts ON posts.id = posts_likes.posts_id
		 WHERE posts.fbk_id = ?
		 ORDER BY person.id ASC`,
		remoteID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing likers: %w", err)
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scanning liker: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing likers: %w", err)
	}
	return people, nil
}

// CommitPage atomically records one fetched page: the txn row for the
// request plus every post, person, and like upsert from its payload. A
// failure partway rolls the whole page back, so the txn log never reports a
// success whose items were not committed.
//
// All inserts are insert-or-ignore: re-committing an already-seen page is a
// no-op. Likes whose post is not cached (never fetched, or filtered as
// invalid) are dropped silently.
func (s *Store) CommitPage(requestedAt time.Time, statusCode int, posts []model.Post, people []model.Person, likes []model.Like) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO txn (datetime_requested, return_code) VALUES (?, ?)",
		requestedAt.Unix(), statusCode,
	)
	if err != nil {
		return fmt.Errorf("recording request: %w", err)
	}

	for _, p := range posts {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO posts (fbk_id, message, privacy_description, created_timestamp, type)
			 VALUES (?, ?, ?, ?, ?)`,
			p.RemoteID, p.Message, p.PrivacyDescription, p.CreatedTimestamp, p.Type,
		)
		if err != nil {
			return fmt.Errorf("inserting post %s: %w", p.RemoteID, err)
		}
	}

	for _, p := range people {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO person (id, name) VALUES (?, ?)",
			p.ID, p.Name,
		)
		if err != nil {
			return fmt.Errorf("inserting person %d: %w", p.ID, err)
		}
	}

	for _, l := range likes {
		var postID int64
		err := tx.QueryRow("SELECT id FROM posts WHERE fbk_id = ?", l.PostRemoteID).Scan(&postID)
		if errors.Is(err, sql.ErrNoRows) {
			continue // post never cached; drop the like
		}
		if err != nil {
			return fmt.Errorf("resolving post %s: %w", l.PostRemoteID, err)
		}
		_, err = tx.Exec(
			"INSERT OR IGNORE INTO posts_likes (person_id, posts_id) VALUES (?, ?)",
			l.PersonID, postID,
		)
		if err != nil {
			return fmt.Errorf("inserting like (%d, %d): %w", l.PersonID, postID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing page: %w", err)
	}
	return nil
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *Store) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *Store) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that Store implements feed.Store
var _ feed.Store = (*Store)(nil)
