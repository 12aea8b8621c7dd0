package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell/internal/catalog"
	"github.com/inkwell/inkwell/internal/handler/dto"
)

// TemplateHandler serves the built-in template catalog.
type TemplateHandler struct {
	catalog *catalog.Catalog
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(c *catalog.Catalog) *TemplateHandler {
	return &TemplateHandler{catalog: c}
}

// List handles GET /api/v1/templates with an optional ?category= filter.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.TemplateListResponse{
		Templates:  h.catalog.List(r.URL.Query().Get("category")),
		Categories: h.catalog.Categories(),
	})
}

// Get handles GET /api/v1/templates/{slug}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.catalog.Get(chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Template not found")
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}
