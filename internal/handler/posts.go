package handler

import (
	"net/http"

	"github.com/Dan9191/secrets-board/internal/feed"
	"github.com/Dan9191/secrets-board/internal/middleware"
	"github.com/gorilla/mux"
)

// Secrets renders users who revealed a secret together with every post
func (h *Handler) Secrets(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.SecretsBoard(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to load secrets")
		return
	}
	h.render(w, "secrets", map[string]any{
		"UsersWithSecrets": board.UsersWithSecrets,
		"Posts":            board.Posts,
		"User":             middleware.CurrentUser(r.Context()),
	})
}

// ListPosts renders every post
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListPosts(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to list posts")
		return
	}
	h.render(w, "posts", map[string]any{"Posts": posts})
}

// EditPost renders the edit form for one post
func (h *Handler) EditPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serverError(w, err, "Failed to load post")
		return
	}
	h.render(w, "edit-post", map[string]any{"Post": post})
}

// CreatePost adds a post from the form
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.serverError(w, err, "Failed to parse post form")
		return
	}
	if _, err := h.svc.CreatePost(r.Context(), r.PostForm.Get("title"), r.PostForm.Get("content")); err != nil {
		h.serverError(w, err, "Failed to create post")
		return
	}
	h.metrics.RecordPostOp("create")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// UpdatePost replaces a post's title and content
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.serverError(w, err, "Failed to parse post form")
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.svc.UpdatePost(r.Context(), id, r.PostForm.Get("title"), r.PostForm.Get("content")); err != nil {
		h.serverError(w, err, "Failed to update post")
		return
	}
	h.metrics.RecordPostOp("update")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// DeletePost removes a post
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePost(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.serverError(w, err, "Failed to delete post")
		return
	}
	h.metrics.RecordPostOp("delete")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// Feed serves the posts as RSS
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListPosts(r.Context())
	if err != nil {
		h.serverError(w, err, "Failed to list posts")
		return
	}
	out, err := feed.RSS(h.feed, posts)
	if err != nil {
		h.serverError(w, err, "Failed to build feed")
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(out)
}
