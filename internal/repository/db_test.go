package repository

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jmporch/musings/internal/model"
	_ "github.com/mattn/go-sqlite3"
)

// Mock database for testing
type testDb struct {
	*sql.DB
}

func (t *testDb) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return t.DB.Query(query, args...)
}

func (t *testDb) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.DB.Exec(query, args...)
}

func (t *testDb) Get() *sql.DB {
	return t.DB
}

func (t *testDb) Close() error {
	return t.DB.Close()
}

func (t *testDb) InitDb() error {
	_, err := t.DB.Exec(`
		CREATE TABLE IF NOT EXISTS config (
			param TEXT PRIMARY KEY,
			value TEXT
		);
		CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL UNIQUE,
			url TEXT UNIQUE,
			title TEXT,
			summary TEXT,
			content BLOB,
			date_published TEXT,
			date_modified TEXT,
			tags TEXT,
			public INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0
		);
	`)
	return err
}

func setupTestRepo(t *testing.T) *DbPostRepository {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Each pooled connection would get its own private :memory: database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	testDB := &testDb{DB: sqlDB}
	if err := testDB.InitDb(); err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	seed := map[string]string{
		"blog_id":   "test",
		"blog_path": "/musings",
		"base_url":  "jmporch.com/musings",
		"id_salt":   "test-salt",
	}
	for param, value := range seed {
		if _, err := testDB.Exec(`INSERT INTO config (param, value) VALUES (?, ?)`, param, value); err != nil {
			t.Fatalf("Failed to seed config: %v", err)
		}
	}

	repo := NewDbPostRepository(testDB)
	if err := repo.Init(); err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}
	return repo
}

func TestCreateDefaults(t *testing.T) {
	repo := setupTestRepo(t)

	post, err := repo.Create(CreatePost{Content: "hello"})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	if post.Deleted {
		t.Error("New post should not be deleted")
	}
	if post.Public {
		t.Error("New post should default to private")
	}
	if post.Published != post.Modified {
		t.Errorf("Expected date_published == date_modified, got %s vs %s", post.Published, post.Modified)
	}
	if len(post.ID) < 8 {
		t.Errorf("Id %q shorter than the configured minimum length", post.ID)
	}
	if post.URL != "jmporch.com/musings/"+string(post.ID) {
		t.Errorf("Unexpected url %q for id %q", post.URL, post.ID)
	}
	if post.Content != "hello" {
		t.Errorf("Expected content %q, got %q", "hello", post.Content)
	}
}

func TestCreateRequiresContent(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Create(CreatePost{Title: "no body"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestCreateIdsAreDistinct(t *testing.T) {
	repo := setupTestRepo(t)

	seen := make(map[model.PostID]bool)
	for i := 0; i < 50; i++ {
		post, err := repo.Create(CreatePost{Content: "post body"})
		if err != nil {
			t.Fatalf("Failed to create post %d: %v", i, err)
		}
		if seen[post.ID] {
			t.Fatalf("Duplicate id %q at post %d", post.ID, i)
		}
		seen[post.ID] = true
	}
}

func TestGetDeletedFiltering(t *testing.T) {
	repo := setupTestRepo(t)

	post, err := repo.Create(CreatePost{Content: "soon gone"})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	if _, err := repo.Delete(string(post.ID)); err != nil {
		t.Fatalf("Failed to delete post: %v", err)
	}

	t.Run("ExcludeDeleted", func(t *testing.T) {
		_, err := repo.Get(string(post.ID), false)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for deleted post, got %v", err)
		}
	})

	t.Run("IncludeDeleted", func(t *testing.T) {
		got, err := repo.Get(string(post.ID), true)
		if err != nil {
			t.Fatalf("Failed to get deleted post: %v", err)
		}
		if !got.Deleted {
			t.Error("Expected deleted flag to be set")
		}
		if got.Content != "soon gone" {
			t.Errorf("Deleted post lost its content: %q", got.Content)
		}
	})
}

func TestGetUnknownId(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Get("nosuchid", true)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListVisibility(t *testing.T) {
	repo := setupTestRepo(t)

	public, err := repo.Create(CreatePost{Content: "public post", Public: true})
	if err != nil {
		t.Fatalf("Failed to create public post: %v", err)
	}
	private, err := repo.Create(CreatePost{Content: "private post"})
	if err != nil {
		t.Fatalf("Failed to create private post: %v", err)
	}

	t.Run("PublicOnly", func(t *testing.T) {
		posts, err := repo.List(false, false)
		if err != nil {
			t.Fatalf("Failed to list posts: %v", err)
		}
		if len(posts) != 1 {
			t.Fatalf("Expected 1 post, got %d", len(posts))
		}
		if posts[0].ID != public.ID {
			t.Errorf("Expected public post %q, got %q", public.ID, posts[0].ID)
		}
	})

	t.Run("IncludePrivate", func(t *testing.T) {
		posts, err := repo.List(false, true)
		if err != nil {
			t.Fatalf("Failed to list posts: %v", err)
		}
		if len(posts) != 2 {
			t.Fatalf("Expected 2 posts, got %d", len(posts))
		}
		// Insertion order: ascending creation sequence.
		if posts[0].ID != public.ID || posts[1].ID != private.ID {
			t.Errorf("Posts out of insertion order: %q, %q", posts[0].ID, posts[1].ID)
		}
	})
}

func TestListDeletedFiltering(t *testing.T) {
	repo := setupTestRepo(t)

	kept, err := repo.Create(CreatePost{Content: "kept", Public: true})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	gone, err := repo.Create(CreatePost{Content: "gone", Public: true})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	if _, err := repo.Delete(string(gone.ID)); err != nil {
		t.Fatalf("Failed to delete post: %v", err)
	}

	posts, err := repo.List(false, true)
	if err != nil {
		t.Fatalf("Failed to list posts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != kept.ID {
		t.Errorf("Expected only post %q, got %d posts", kept.ID, len(posts))
	}

	posts, err = repo.List(true, true)
	if err != nil {
		t.Fatalf("Failed to list posts: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("Expected 2 posts with deleted included, got %d", len(posts))
	}
}

func TestEditPartialFields(t *testing.T) {
	repo := setupTestRepo(t)

	post, err := repo.Create(CreatePost{
		Title:   "Original Title",
		Summary: "Original summary",
		Content: "Original content",
		Tags:    "a,b",
	})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	public := true
	edited, err := repo.Edit(string(post.ID), PostPatch{
		Title:  "New Title",
		Public: &public,
	})
	if err != nil {
		t.Fatalf("Failed to edit post: %v", err)
	}

	if edited.Title != "New Title" {
		t.Errorf("Title not updated: %q", edited.Title)
	}
	if !edited.Public {
		t.Error("Visibility not updated")
	}
	if edited.Summary != "Original summary" || edited.Content != "Original content" || edited.Tags != "a,b" {
		t.Error("Fields absent from the patch were modified")
	}
	if edited.ID != post.ID {
		t.Error("Edit changed the post id")
	}
	if edited.Published != post.Published {
		t.Error("Edit changed the published date")
	}
	if edited.Modified.Time().Before(post.Modified.Time()) {
		t.Error("Edit moved the modified date backwards")
	}
}

func TestEditEmptyPatch(t *testing.T) {
	repo := setupTestRepo(t)

	post, err := repo.Create(CreatePost{Title: "Keep", Content: "Keep body", Tags: "x"})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	edited, err := repo.Edit(string(post.ID), PostPatch{})
	if err != nil {
		t.Fatalf("Failed to apply empty edit: %v", err)
	}

	if edited.Title != post.Title || edited.Content != post.Content || edited.Tags != post.Tags {
		t.Error("Empty patch modified stored fields")
	}
	if edited.ID != post.ID || edited.Published != post.Published {
		t.Error("Empty patch touched id or published date")
	}
	if edited.Modified.Time().Before(post.Modified.Time()) {
		t.Error("Empty patch should still advance the modified date")
	}
}

func TestEditUnknownId(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Edit("nosuchid", PostPatch{Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEditDeletedPost(t *testing.T) {
	// Edits apply regardless of deleted state so a deleted post can still
	// be corrected.
	repo := setupTestRepo(t)

	post, err := repo.Create(CreatePost{Content: "typo"})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	if _, err := repo.Delete(string(post.ID)); err != nil {
		t.Fatalf("Failed to delete post: %v", err)
	}

	edited, err := repo.Edit(string(post.ID), PostPatch{Content: "fixed"})
	if err != nil {
		t.Fatalf("Failed to edit deleted post: %v", err)
	}
	if edited.Content != "fixed" {
		t.Errorf("Expected edited content, got %q", edited.Content)
	}
	if !edited.Deleted {
		t.Error("Edit should not resurrect a deleted post")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	repo := setupTestRepo(t)

	post, err := repo.Create(CreatePost{Content: "delete me twice"})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	first, err := repo.Delete(string(post.ID))
	if err != nil {
		t.Fatalf("First delete failed: %v", err)
	}
	second, err := repo.Delete(string(post.ID))
	if err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}

	if !first.Deleted || !second.Deleted {
		t.Error("Deleted flag not set")
	}
	if first.Content != second.Content || first.ID != second.ID {
		t.Error("Repeated delete changed observable post state")
	}
}

func TestDeleteUnknownId(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Delete("nosuchid")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentCreates(t *testing.T) {
	repo := setupTestRepo(t)

	const workers = 8
	const perWorker = 5

	type result struct {
		id  model.PostID
		err error
	}
	results := make(chan result, workers*perWorker)

	for w := 0; w < workers; w++ {
		go func() {
			for i := 0; i < perWorker; i++ {
				post, err := repo.Create(CreatePost{Content: "concurrent"})
				if err != nil {
					results <- result{err: err}
					continue
				}
				results <- result{id: post.ID}
			}
		}()
	}

	seen := make(map[model.PostID]bool)
	for i := 0; i < workers*perWorker; i++ {
		res := <-results
		if res.err != nil {
			t.Fatalf("Concurrent create failed: %v", res.err)
		}
		if seen[res.id] {
			t.Fatalf("Concurrent creates collided on id %q", res.id)
		}
		seen[res.id] = true
	}
}

func TestConfigExposure(t *testing.T) {
	repo := setupTestRepo(t)

	cfg := repo.Config()
	if cfg["blog_id"] != "test" {
		t.Errorf("Expected blog_id %q, got %q", "test", cfg["blog_id"])
	}
	if cfg.Get("missing", "fallback") != "fallback" {
		t.Error("BlogConfig.Get should fall back for missing keys")
	}
}

func TestGzipContentEncoding(t *testing.T) {
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	testDB := &testDb{DB: sqlDB}
	if err := testDB.InitDb(); err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	if _, err := testDB.Exec(`INSERT INTO config (param, value) VALUES ('content_encoding', 'gzip')`); err != nil {
		t.Fatalf("Failed to seed config: %v", err)
	}

	repo := NewDbPostRepository(testDB)
	if err := repo.Init(); err != nil {
		t.Fatalf("Failed to initialize repository: %v", err)
	}

	post, err := repo.Create(CreatePost{Content: "gzip round trip"})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	got, err := repo.Get(string(post.ID), false)
	if err != nil {
		t.Fatalf("Failed to get post: %v", err)
	}
	if got.Content != "gzip round trip" {
		t.Errorf("Content did not round-trip through gzip: %q", got.Content)
	}
}
