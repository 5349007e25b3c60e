package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aura-systems/aura/internal/api"
	"github.com/aura-systems/aura/internal/api/middleware"
	"github.com/aura-systems/aura/internal/domain"
)

type SearchService interface {
	Retrieve(ctx context.Context, query string, brainID int64, limit int) ([]domain.Source, error)
}

// SearchHandler exposes raw retrieval without generation. Useful for
// debugging relevance and for clients that render their own answers.
type SearchHandler struct {
	svc    SearchService
	brains BrainAccessChecker
}

// BrainAccessChecker is the access gate search shares with documents.
type BrainAccessChecker interface {
	Authorize(ctx context.Context, p domain.Principal, brainID int64) (*domain.Brain, error)
}

func NewSearchHandler(svc SearchService, brains BrainAccessChecker) *SearchHandler {
	return &SearchHandler{svc: svc, brains: brains}
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	brainID, err := parseID(chi.URLParam(r, "brainID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid brain id")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	if _, err := h.brains.Authorize(r.Context(), *principal, brainID); err != nil {
		api.HandleError(w, err)
		return
	}

	sources, err := h.svc.Retrieve(r.Context(), req.Query, brainID, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sources)
}
