package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"github.com/jmporch/musings/internal/cache"
	"github.com/jmporch/musings/internal/db"
	"github.com/jmporch/musings/internal/model"
	"github.com/jmporch/musings/internal/postid"
	"github.com/jmporch/musings/internal/util/compression"
)

type DbPostRepository struct { // implements PostRepository
	db db.Db

	cfg        model.BlogConfig
	encoder    *postid.Encoder
	compressor compression.Compressor
	baseURL    string

	// Write-through cache of every row, deleted and private included.
	// The database stays authoritative for list ordering; this process is
	// the only writer while it runs, so no reload loop is needed.
	postsCache *cache.Cache[string, *model.Post]

	// Serializes the read-max-then-insert sequence so concurrent creates
	// can never observe the same next position.
	createMu sync.Mutex
}

func NewDbPostRepository(db db.Db) *DbPostRepository {
	return &DbPostRepository{
		db: db,

		postsCache: cache.NewCache[string, *model.Post](),
	}
}

func (r *DbPostRepository) Init() error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	r.cfg = cfg
	r.baseURL = cfg.Get(model.KeyBaseURL, "jmporch.com/musings")

	idLength := postid.DefaultMinLength
	if v := cfg.Get(model.KeyIDLength, ""); v != "" {
		idLength, err = strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", model.KeyIDLength, v, err)
		}
	}
	r.encoder, err = postid.NewEncoder(cfg.Get(model.KeyIDSalt, postid.DefaultSalt), idLength)
	if err != nil {
		return err
	}

	r.compressor, err = compression.ForEncoding(cfg.Get(model.KeyContentEncoding, "zstd"))
	if err != nil {
		return err
	}

	posts, err := r.List(true, true)
	if err != nil {
		return fmt.Errorf("warming post cache: %w", err)
	}
	postMap := make(map[string]*model.Post, len(posts))
	for i := range posts {
		postMap[string(posts[i].ID)] = &posts[i]
	}
	r.postsCache.SetTo(postMap)

	repoLogger.Info().Int("posts", len(posts)).Msg("Post repository initialized")
	return nil
}

func (r *DbPostRepository) Config() model.BlogConfig {
	return r.cfg
}

func (r *DbPostRepository) loadConfig() (model.BlogConfig, error) {
	rows, err := r.db.Query(`SELECT param, value FROM config`)
	if err != nil {
		return nil, fmt.Errorf("error querying config: %w", err)
	}
	defer rows.Close()

	cfg := make(model.BlogConfig)
	for rows.Next() {
		var param, value string
		if err := rows.Scan(&param, &value); err != nil {
			return nil, fmt.Errorf("error scanning config row: %w", err)
		}
		cfg[param] = value
	}
	return cfg, rows.Err()
}

func (r *DbPostRepository) Create(post CreatePost) (*model.Post, error) {
	if post.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	compressed, err := r.compressor.Compress([]byte(post.Content))
	if err != nil {
		return nil, fmt.Errorf("error compressing content: %w", err)
	}

	now := model.Now()

	r.createMu.Lock()
	defer r.createMu.Unlock()

	tx, err := r.db.Get().Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	// The first post of an empty blog is sequence position 1.
	var prevSeq int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM posts`).Scan(&prevSeq); err != nil {
		return nil, fmt.Errorf("error reading max sequence position: %w", err)
	}
	seq := prevSeq + 1

	id, err := r.encoder.Encode(seq)
	if err != nil {
		return nil, err
	}
	url := r.baseURL + "/" + id

	_, err = tx.Exec(
		`INSERT INTO posts (id, seq, url, title, summary, content, date_published, date_modified, tags, public, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id, seq, url, post.Title, post.Summary, compressed,
		now.String(), now.String(), post.Tags, boolToInt(post.Public),
	)
	if err != nil {
		return nil, fmt.Errorf("error inserting post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing post: %w", err)
	}

	created := &model.Post{
		ID:        model.PostID(id),
		URL:       url,
		Title:     post.Title,
		Summary:   post.Summary,
		Content:   post.Content,
		Tags:      post.Tags,
		Published: now,
		Modified:  now,
		Public:    post.Public,
		Deleted:   false,
	}
	r.postsCache.Set(id, created)

	repoLogger.Info().Str("post_id", id).Int64("seq", seq).Msg("Post created")
	return created, nil
}

func (r *DbPostRepository) Get(id string, includeDeleted bool) (*model.Post, error) {
	post, ok := r.postsCache.Get(id)
	if !ok {
		var err error
		post, err = r.queryPost(id)
		if err != nil {
			return nil, err
		}
		r.postsCache.Set(id, post)
	}

	if post.Deleted && !includeDeleted {
		return nil, ErrNotFound
	}
	return post, nil
}

func (r *DbPostRepository) List(includeDeleted, includePrivate bool) ([]model.Post, error) {
	// Natural storage order: ascending creation sequence.
	query := `SELECT id, url, title, summary, content, date_published, date_modified, tags, public, deleted
	          FROM posts WHERE 1=1`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	if !includePrivate {
		query += ` AND public = 1`
	}
	query += ` ORDER BY seq ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// Edit applies the patch regardless of the post's deleted state, so a
// deleted post can still be corrected administratively. The modification
// date always advances, even for an empty patch.
func (r *DbPostRepository) Edit(id string, patch PostPatch) (*model.Post, error) {
	tx, err := r.db.Get().Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE posts SET date_modified = ? WHERE id = ?`, model.Now().String(), id)
	if err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	set := func(column string, value any) {
		if err != nil {
			return
		}
		_, err = tx.Exec(`UPDATE posts SET `+column+` = ? WHERE id = ?`, value, id)
	}

	if patch.Title != "" {
		set("title", patch.Title)
	}
	if patch.Summary != "" {
		set("summary", patch.Summary)
	}
	if patch.Content != "" {
		var compressed []byte
		compressed, err = r.compressor.Compress([]byte(patch.Content))
		if err != nil {
			return nil, fmt.Errorf("error compressing content: %w", err)
		}
		set("content", compressed)
	}
	if patch.Tags != "" {
		set("tags", patch.Tags)
	}
	if patch.Public != nil {
		set("public", boolToInt(*patch.Public))
	}
	if err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing edit: %w", err)
	}

	post, err := r.queryPost(id)
	if err != nil {
		return nil, err
	}
	r.postsCache.Set(id, post)

	repoLogger.Info().Str("post_id", id).Msg("Post edited")
	return post, nil
}

// Delete soft-deletes a post. It is idempotent: deleting an already-deleted
// post succeeds and returns the post unchanged. The row and all fields
// persist; there is no undelete.
func (r *DbPostRepository) Delete(id string) (*model.Post, error) {
	res, err := r.db.Exec(`UPDATE posts SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("error deleting post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error deleting post: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	post, err := r.queryPost(id)
	if err != nil {
		return nil, err
	}
	r.postsCache.Set(id, post)

	repoLogger.Info().Str("post_id", id).Msg("Post deleted")
	return post, nil
}

func (r *DbPostRepository) queryPost(id string) (*model.Post, error) {
	rows, err := r.db.Query(
		`SELECT id, url, title, summary, content, date_published, date_modified, tags, public, deleted
		 FROM posts WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("error querying post: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error querying post: %w", err)
		}
		return nil, ErrNotFound
	}
	return r.scanPost(rows)
}

func (r *DbPostRepository) scanPost(rows *sql.Rows) (*model.Post, error) {
	var post model.Post
	var compressed []byte
	var title, summary, tags, published, modified sql.NullString
	var public, deleted int

	err := rows.Scan(&post.ID, &post.URL, &title, &summary, &compressed,
		&published, &modified, &tags, &public, &deleted)
	if err != nil {
		return nil, fmt.Errorf("error scanning post: %w", err)
	}

	post.Title = title.String
	post.Summary = summary.String
	post.Tags = tags.String
	post.Public = public != 0
	post.Deleted = deleted != 0

	content, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing content: %w", err)
	}
	post.Content = string(content)

	if published.Valid {
		post.Published, err = model.ParseTimestamp(published.String)
		if err != nil {
			return nil, fmt.Errorf("error parsing published date: %w", err)
		}
	}
	if modified.Valid {
		post.Modified, err = model.ParseTimestamp(modified.String)
		if err != nil {
			return nil, fmt.Errorf("error parsing modified date: %w", err)
		}
	}

	return &post, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
