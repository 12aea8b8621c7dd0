package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/catalog"
	"github.com/inkwell/inkwell/internal/handler/dto"
	"github.com/inkwell/inkwell/internal/service"
)

// ContentHandler handles generation and history requests.
type ContentHandler struct {
	svc       *service.GenerationService
	templates *catalog.Catalog
	resp      *Responder
	logger    *slog.Logger
}

// NewContentHandler creates a new ContentHandler. templates may be nil, in
// which case every request must carry its own prompt.
func NewContentHandler(svc *service.GenerationService, templates *catalog.Catalog, resp *Responder) *ContentHandler {
	return &ContentHandler{
		svc:       svc,
		templates: templates,
		resp:      resp,
		logger:    resp.Logger(),
	}
}

// Generate handles POST /api/v1/generate.
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prompt := req.AIPrompt
	if h.templates != nil {
		if tmpl, ok := h.templates.Get(req.TemplateSlug); ok {
			if missing := tmpl.MissingRequired(req.FormData); len(missing) > 0 {
				writeError(w, http.StatusBadRequest, "INVALID_INPUT",
					"Missing required fields: "+strings.Join(missing, ", "))
				return
			}
			if prompt == "" {
				prompt = tmpl.Prompt
			}
		}
	}

	out, err := h.svc.Generate(r.Context(), service.GenerateInput{
		AccountID:      accountID,
		TemplateSlug:   req.TemplateSlug,
		TemplateName:   req.TemplateName,
		InputFields:    req.FormData,
		PromptTemplate: prompt,
		ComponentType:  req.ComponentType,
	})
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToGenerateResponse(out))
}

// History handles GET /api/v1/history.
func (h *ContentHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	result, err := h.svc.History(r.Context(), accountID, page, limit)
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToHistoryResponse(result))
}

// GetGeneration handles GET /api/v1/history/{id}.
func (h *ContentHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Generation ID is required")
		return
	}

	record, err := h.svc.GetGeneration(r.Context(), accountID, id)
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToGenerationResponse(record))
}
