package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wallsync/internal/config"
	"wallsync/internal/model"
	"wallsync/internal/store"
	"wallsync/internal/testutil"
)

var testTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func somePosts(ids ...string) []model.Post {
	var posts []model.Post
	for _, id := range ids {
		posts = append(posts, model.Post{
			RemoteID:           id,
			Message:            "message for " + id,
			PrivacyDescription: "Public",
			CreatedTimestamp:   "2024-01-01T12:00:00+0000",
			Type:               "status",
		})
	}
	return posts
}

func TestStore_RecordRequest(t *testing.T) {
	t.Run("records status code", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		code := 500
		if err := s.RecordRequest(testTime, &code); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}

		txns, err := s.RecentTransactions(10)
		if err != nil {
			t.Fatalf("RecentTransactions() error = %v", err)
		}
		if len(txns) != 1 {
			t.Fatalf("len(txns) = %d, want 1", len(txns))
		}
		if !txns[0].StatusCode.Valid || txns[0].StatusCode.Int64 != 500 {
			t.Errorf("StatusCode = %+v, want 500", txns[0].StatusCode)
		}
		if !txns[0].RequestedAt.Equal(testTime) {
			t.Errorf("RequestedAt = %v, want %v", txns[0].RequestedAt, testTime)
		}
	})

	t.Run("records transport failure as NULL", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		if err := s.RecordRequest(testTime, nil); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}

		txns, err := s.RecentTransactions(10)
		if err != nil {
			t.Fatalf("RecentTransactions() error = %v", err)
		}
		if len(txns) != 1 {
			t.Fatalf("len(txns) = %d, want 1", len(txns))
		}
		if txns[0].StatusCode.Valid {
			t.Errorf("StatusCode = %+v, want NULL", txns[0].StatusCode)
		}
	})
}

func TestStore_LatestSuccessfulRequest(t *testing.T) {
	t.Run("empty log", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		_, ok, err := s.LatestSuccessfulRequest()
		if err != nil {
			t.Fatalf("LatestSuccessfulRequest() error = %v", err)
		}
		if ok {
			t.Error("ok = true, want false for empty log")
		}
	})

	t.Run("ignores failures and non-2xx", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		bad := 500
		if err := s.RecordRequest(testTime, &bad); err != nil {
			t.Fatalf("RecordRequest(500) error = %v", err)
		}
		if err := s.RecordRequest(testTime.Add(time.Minute), nil); err != nil {
			t.Fatalf("RecordRequest(nil) error = %v", err)
		}

		_, ok, err := s.LatestSuccessfulRequest()
		if err != nil {
			t.Fatalf("LatestSuccessfulRequest() error = %v", err)
		}
		if ok {
			t.Error("ok = true, want false when no request succeeded")
		}
	})

	t.Run("returns the most recent success", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		if err := s.CommitPage(testTime, 200, nil, nil, nil); err != nil {
			t.Fatalf("CommitPage() error = %v", err)
		}
		later := testTime.Add(2 * time.Hour)
		if err := s.CommitPage(later, 200, nil, nil, nil); err != nil {
			t.Fatalf("CommitPage() error = %v", err)
		}

		got, ok, err := s.LatestSuccessfulRequest()
		if err != nil {
			t.Fatalf("LatestSuccessfulRequest() error = %v", err)
		}
		if !ok {
			t.Fatal("ok = false, want true")
		}
		if !got.Equal(later) {
			t.Errorf("LatestSuccessfulRequest() = %v, want %v", got, later)
		}
	})
}

func TestStore_CommitPage(t *testing.T) {
	t.Run("commits txn row and posts together", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		if err := s.CommitPage(testTime, 200, somePosts("10", "11"), nil, nil); err != nil {
			t.Fatalf("CommitPage() error = %v", err)
		}

		count, err := s.PostCount()
		if err != nil {
			t.Fatalf("PostCount() error = %v", err)
		}
		if count != 2 {
			t.Errorf("PostCount() = %d, want 2", count)
		}

		txns, err := s.RecentTransactions(10)
		if err != nil {
			t.Fatalf("RecentTransactions() error = %v", err)
		}
		if len(txns) != 1 {
			t.Fatalf("len(txns) = %d, want 1", len(txns))
		}
		if !txns[0].StatusCode.Valid || txns[0].StatusCode.Int64 != 200 {
			t.Errorf("StatusCode = %+v, want 200", txns[0].StatusCode)
		}
	})

	t.Run("recommitting a page is a no-op for existing rows", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		if err := s.CommitPage(testTime, 200, somePosts("10"), nil, nil); err != nil {
			t.Fatalf("first CommitPage() error = %v", err)
		}
		if err := s.CommitPage(testTime.Add(time.Hour), 200, somePosts("10"), nil, nil); err != nil {
			t.Fatalf("second CommitPage() error = %v", err)
		}

		count, err := s.PostCount()
		if err != nil {
			t.Fatalf("PostCount() error = %v", err)
		}
		if count != 1 {
			t.Errorf("PostCount() = %d, want 1 after recommit", count)
		}

		// Both requests are still audited
		txns, err := s.RecentTransactions(10)
		if err != nil {
			t.Fatalf("RecentTransactions() error = %v", err)
		}
		if len(txns) != 2 {
			t.Errorf("len(txns) = %d, want 2", len(txns))
		}
	})

	t.Run("first write of a remote id wins", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		original := somePosts("10")
		original[0].Message = "original"
		if err := s.CommitPage(testTime, 200, original, nil, nil); err != nil {
			t.Fatalf("first CommitPage() error = %v", err)
		}

		changed := somePosts("10")
		changed[0].Message = "edited upstream"
		if err := s.CommitPage(testTime.Add(time.Hour), 200, changed, nil, nil); err != nil {
			t.Fatalf("second CommitPage() error = %v", err)
		}

		p, err := s.FindPostByRemoteID("10")
		if err != nil {
			t.Fatalf("FindPostByRemoteID() error = %v", err)
		}
		if p == nil {
			t.Fatal("post not found")
		}
		if p.Message != "original" {
			t.Errorf("Message = %q, want %q", p.Message, "original")
		}
	})

	t.Run("stores likes for cached posts", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		if err := s.CommitPage(testTime, 200, somePosts("10"), nil, nil); err != nil {
			t.Fatalf("seeding posts: %v", err)
		}

		people := []model.Person{{ID: 5, Name: "Alice"}}
		likes := []model.Like{{PersonID: 5, PostRemoteID: "10"}}
		if err := s.CommitPage(testTime.Add(time.Hour), 200, nil, people, likes); err != nil {
			t.Fatalf("CommitPage() error = %v", err)
		}

		likers, err := s.LikersForPost("10")
		if err != nil {
			t.Fatalf("LikersForPost() error = %v", err)
		}
		if len(likers) != 1 {
			t.Fatalf("len(likers) = %d, want 1", len(likers))
		}
		if likers[0].ID != 5 || likers[0].Name != "Alice" {
			t.Errorf("liker = %+v, want {5 Alice}", likers[0])
		}
	})

	t.Run("drops likes for uncached posts", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		people := []model.Person{{ID: 5, Name: "Alice"}}
		likes := []model.Like{{PersonID: 5, PostRemoteID: "never-fetched"}}
		if err := s.CommitPage(testTime, 200, nil, people, likes); err != nil {
			t.Fatalf("CommitPage() error = %v", err)
		}

		likers, err := s.LikersForPost("never-fetched")
		if err != nil {
			t.Fatalf("LikersForPost() error = %v", err)
		}
		if len(likers) != 0 {
			t.Errorf("len(likers) = %d, want 0", len(likers))
		}
	})

	t.Run("duplicate like is ignored", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		if err := s.CommitPage(testTime, 200, somePosts("10"), nil, nil); err != nil {
			t.Fatalf("seeding posts: %v", err)
		}

		people := []model.Person{{ID: 5, Name: "Alice"}}
		likes := []model.Like{{PersonID: 5, PostRemoteID: "10"}}
		for i := 0; i < 2; i++ {
			if err := s.CommitPage(testTime.Add(time.Hour), 200, nil, people, likes); err != nil {
				t.Fatalf("CommitPage() #%d error = %v", i, err)
			}
		}

		likers, err := s.LikersForPost("10")
		if err != nil {
			t.Fatalf("LikersForPost() error = %v", err)
		}
		if len(likers) != 1 {
			t.Errorf("len(likers) = %d, want 1", len(likers))
		}
	})
}

func TestStore_KnownRemoteIDs(t *testing.T) {
	s := testutil.NewTestStore(t)

	known, err := s.KnownRemoteIDs()
	if err != nil {
		t.Fatalf("KnownRemoteIDs() error = %v", err)
	}
	if len(known) != 0 {
		t.Errorf("len(known) = %d, want 0", len(known))
	}

	if err := s.CommitPage(testTime, 200, somePosts("10", "11"), nil, nil); err != nil {
		t.Fatalf("CommitPage() error = %v", err)
	}

	known, err = s.KnownRemoteIDs()
	if err != nil {
		t.Fatalf("KnownRemoteIDs() error = %v", err)
	}
	if len(known) != 2 {
		t.Fatalf("len(known) = %d, want 2", len(known))
	}
	if _, ok := known["10"]; !ok {
		t.Error("known ids missing \"10\"")
	}
}

func TestStore_EarliestPostTimestamp(t *testing.T) {
	t.Run("empty cache", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		_, ok, err := s.EarliestPostTimestamp()
		if err != nil {
			t.Fatalf("EarliestPostTimestamp() error = %v", err)
		}
		if ok {
			t.Error("ok = true, want false for empty cache")
		}
	})

	t.Run("returns smallest timestamp", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		posts := somePosts("10", "11")
		posts[0].CreatedTimestamp = "2024-02-01T12:00:00+0000"
		posts[1].CreatedTimestamp = "2024-01-01T12:00:00+0000"
		if err := s.CommitPage(testTime, 200, posts, nil, nil); err != nil {
			t.Fatalf("CommitPage() error = %v", err)
		}

		ts, ok, err := s.EarliestPostTimestamp()
		if err != nil {
			t.Fatalf("EarliestPostTimestamp() error = %v", err)
		}
		if !ok {
			t.Fatal("ok = false, want true")
		}
		if ts != "2024-01-01T12:00:00+0000" {
			t.Errorf("EarliestPostTimestamp() = %q, want %q", ts, "2024-01-01T12:00:00+0000")
		}
	})
}

func TestStore_FindPostByRemoteID_NotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	p, err := s.FindPostByRemoteID("missing")
	if err != nil {
		t.Fatalf("FindPostByRemoteID() error = %v", err)
	}
	if p != nil {
		t.Errorf("FindPostByRemoteID() = %+v, want nil", p)
	}
}

func TestStore_ListPosts_OrderedByTimestamp(t *testing.T) {
	s := testutil.NewTestStore(t)

	posts := somePosts("b", "a")
	posts[0].CreatedTimestamp = "2024-02-01T12:00:00+0000"
	posts[1].CreatedTimestamp = "2024-01-01T12:00:00+0000"
	if err := s.CommitPage(testTime, 200, posts, nil, nil); err != nil {
		t.Fatalf("CommitPage() error = %v", err)
	}

	got, err := s.ListPosts()
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(got))
	}
	if got[0].RemoteID != "a" || got[1].RemoteID != "b" {
		t.Errorf("order = [%s %s], want [a b]", got[0].RemoteID, got[1].RemoteID)
	}
}

func TestStore_LatestTransactionID(t *testing.T) {
	s := testutil.NewTestStore(t)

	id, err := s.LatestTransactionID()
	if err != nil {
		t.Fatalf("LatestTransactionID() error = %v", err)
	}
	if id != 0 {
		t.Errorf("LatestTransactionID() = %d, want 0 for empty log", id)
	}

	code := 200
	if err := s.RecordRequest(testTime, &code); err != nil {
		t.Fatalf("RecordRequest() error = %v", err)
	}

	id, err = s.LatestTransactionID()
	if err != nil {
		t.Fatalf("LatestTransactionID() error = %v", err)
	}
	if id != 1 {
		t.Errorf("LatestTransactionID() = %d, want 1", id)
	}
}

func TestStore_BackupTo(t *testing.T) {
	s := testutil.NewTestStore(t)

	if err := s.CommitPage(testTime, 200, somePosts("10", "11"), nil, nil); err != nil {
		t.Fatalf("CommitPage() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := s.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("backup file not created: %v", err)
	}

	restored, err := store.Open(dest)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer restored.Close()

	count, err := restored.PostCount()
	if err != nil {
		t.Fatalf("PostCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("restored PostCount() = %d, want 2", count)
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, err := store.NewFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewFromConfig() error = %v", err)
		}
		defer s.Close()

		if s.Path() != ":memory:" {
			t.Errorf("Path() = %q, want %q", s.Path(), ":memory:")
		}
	})

	t.Run("sqlite creates cache dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "cache")
		s, err := store.NewFromConfig(config.DatabaseConfig{Type: "sqlite", CacheDir: dir})
		if err != nil {
			t.Fatalf("NewFromConfig() error = %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dir, store.CacheFileName)); err != nil {
			t.Errorf("cache file not created: %v", err)
		}
	})

	t.Run("sqlite requires cache dir", func(t *testing.T) {
		_, err := store.NewFromConfig(config.DatabaseConfig{Type: "sqlite"})
		if err == nil {
			t.Fatal("NewFromConfig() expected error for missing cache_dir")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := store.NewFromConfig(config.DatabaseConfig{Type: "etcd"})
		if err == nil {
			t.Fatal("NewFromConfig() expected error for unknown type")
		}
	})
}
