package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminosmc/luminos-community/internal/auth"
	"github.com/luminosmc/luminos-community/internal/service"
)

// ProductHandler serves the store catalogue.
type ProductHandler struct {
	*api
	products *service.ProductService
}

type productRequest struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Price    float64  `json:"price" validate:"gt=0"`
	Features []string `json:"features" validate:"required"`
	Featured bool     `json:"featured"`
}

func (req productRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:     req.Name,
		Price:    req.Price,
		Features: req.Features,
		Featured: req.Featured,
	}
}

// RegisterRoutes registers the /products routes.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.products.Create(r.Context(), auth.PrincipalFrom(r.Context()), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.products.Update(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), auth.PrincipalFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
