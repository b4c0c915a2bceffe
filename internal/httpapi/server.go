// Package httpapi exposes the blog over a JSON HTTP API.
//
// All routes live under the blog's configured path. Mutating operations and
// the config endpoint require a valid bearer credential; reads stay open but
// only see private or deleted posts when the caller is authenticated.
// Transport security is the reverse proxy's job, not ours.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jmporch/musings/internal/config"
	"github.com/jmporch/musings/internal/model"
	"github.com/jmporch/musings/internal/repository"
	"github.com/jmporch/musings/internal/token"
)

type Server struct {
	repo repository.PostRepository
	cfg  *config.Config
	log  zerolog.Logger
}

func NewServer(repo repository.PostRepository, cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{repo: repo, cfg: cfg, log: log}
}

// BasePath returns the blog's route prefix, normalized to a leading slash
// and no trailing slash.
func (s *Server) BasePath() string {
	base := s.repo.Config().Get(model.KeyBlogPath, "/musings")
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}

func (s *Server) Handler() http.Handler {
	base := s.BasePath()

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+base+"/config", s.handleConfig)
	mux.HandleFunc("GET "+base, s.handleList)
	mux.HandleFunc("GET "+base+"/{$}", s.handleList)
	mux.HandleFunc("POST "+base, s.handleCreate)
	mux.HandleFunc("POST "+base+"/{$}", s.handleCreate)
	mux.HandleFunc("GET "+base+"/{id}", s.handleGet)
	mux.HandleFunc("PUT "+base+"/{id}", s.handleEdit)
	mux.HandleFunc("DELETE "+base+"/{id}", s.handleDelete)

	return s.withRequestLogging(secureHeaders(mux))
}

// authenticated consults the credential list with the secret presented in
// the configured header. An absent header is unauthenticated, not an error.
func (s *Server) authenticated(r *http.Request) bool {
	secret := r.Header.Get(s.cfg.Auth.Header)
	secret = strings.TrimPrefix(secret, "Bearer ")
	return token.Authenticate(s.cfg.Auth.Tokens, secret)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeError(w, http.StatusForbidden, config.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, s.repo.Config())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	authed := s.authenticated(r)

	posts, err := s.repo.List(authed, authed)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeError(w, http.StatusForbidden, config.ErrForbidden)
		return
	}

	var post repository.CreatePost
	if !s.decodeBody(w, r, &post) {
		return
	}

	created, err := s.repo.Create(post)
	if err != nil {
		if errors.Is(err, repository.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   config.ErrContentRequired,
				"request": post,
			})
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	authed := s.authenticated(r)

	post, err := s.repo.Get(r.PathValue("id"), authed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, config.ErrPostNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}

	// Private posts look like they don't exist to unauthenticated callers.
	if !post.Public && !authed {
		writeError(w, http.StatusNotFound, config.ErrPostNotFound)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeError(w, http.StatusForbidden, config.ErrForbidden)
		return
	}

	var patch repository.PostPatch
	if !s.decodeBody(w, r, &patch) {
		return
	}

	edited, err := s.repo.Edit(r.PathValue("id"), patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, config.ErrPostNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edited)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.authenticated(r) {
		writeError(w, http.StatusForbidden, config.ErrForbidden)
		return
	}

	deleted, err := s.repo.Delete(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, config.ErrPostNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.PostID{"Deleted": deleted.ID})
}

// decodeBody reads and parses the request body into v, writing the 400
// response itself when the body is empty or unparseable.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.serverError(w, r, err)
		return false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeError(w, http.StatusBadRequest, config.ErrEmptyBody)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, config.ErrUnparseableBody)
		return false
	}
	return true
}

// serverError handles StorageUnavailable-class failures: logged, surfaced
// as 500, never silently swallowed.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Request failed")
	writeError(w, http.StatusInternalServerError, config.ErrInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure here can only mean
	// a dead connection.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
