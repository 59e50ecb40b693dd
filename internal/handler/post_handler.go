package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/luminosmc/luminos-community/internal/auth"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/service"
)

// PostHandler serves the forum.
type PostHandler struct {
	*api
	posts *service.PostService
}

type createPostRequest struct {
	Title   string `json:"title" validate:"required,max=100"`
	Content string `json:"content" validate:"required,max=1000"`
}

type updatePostRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=100"`
	Content *string `json:"content" validate:"omitempty,max=1000"`
}

type replyRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// RegisterRoutes registers the /posts routes.
func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Post("/replies", h.handleReply)
	})
}

// handleList serves GET /posts?q=&offset=&limit=.
func (h *PostHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.posts.List(r.Context(), service.ListPostsInput{
		Query:  q.Get("q"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PostHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	post, err := h.posts.Create(r.Context(), auth.PrincipalFrom(r.Context()), service.CreatePostInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	post, err := h.posts.Update(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), service.UpdatePostInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	post, err := h.posts.Reply(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// intParam parses an optional integer query parameter.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "%s must be an integer", name)
	}
	return n, nil
}
