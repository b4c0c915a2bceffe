// Package repository implements the durable post store.
package repository

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/jmporch/musings/internal/model"
)

// ErrNotFound is returned when no post matches the requested id (or the
// match is hidden by the deleted filter).
var ErrNotFound = errors.New("post not found")

// ErrValidation is returned when a write is rejected before touching
// storage, e.g. a create without content.
var ErrValidation = errors.New("validation failed")

// CreatePost carries the caller-supplied fields of a new post. Content is
// the only required field; visibility defaults to private.
type CreatePost struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
	Public  bool   `json:"public"`
}

// PostPatch is a partial update. String fields are applied only when
// non-empty; Public is applied whenever present. Id and the published date
// are never touched by an edit.
type PostPatch struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
	Public  *bool  `json:"public"`
}

// IsZero reports whether the patch carries no field at all. An empty patch
// is still a valid edit: it advances the modification date and nothing else.
func (p PostPatch) IsZero() bool {
	return p.Title == "" && p.Summary == "" && p.Content == "" && p.Tags == "" && p.Public == nil
}

type PostRepository interface {
	Init() error

	// Config exposes the blog's key/value configuration, read once at Init.
	// Callers must treat the returned map as read-only.
	Config() model.BlogConfig

	Create(post CreatePost) (*model.Post, error)
	Get(id string, includeDeleted bool) (*model.Post, error)
	List(includeDeleted, includePrivate bool) ([]model.Post, error)
	Edit(id string, patch PostPatch) (*model.Post, error)
	Delete(id string) (*model.Post, error)
}

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}
