package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aura-systems/aura/internal/api"
	"github.com/aura-systems/aura/internal/api/middleware"
	"github.com/aura-systems/aura/internal/domain"
	"github.com/aura-systems/aura/internal/service"
)

type BrainService interface {
	Create(ctx context.Context, p domain.Principal, input service.BrainInput) (*domain.Brain, error)
	ListAccessible(ctx context.Context, p domain.Principal) ([]*domain.Brain, error)
	Get(ctx context.Context, p domain.Principal, brainID int64) (*domain.Brain, error)
	Update(ctx context.Context, p domain.Principal, brainID int64, input service.BrainInput) (*domain.Brain, error)
	Delete(ctx context.Context, p domain.Principal, brainID int64) error
}

type BrainHandler struct {
	svc BrainService
}

func NewBrainHandler(svc BrainService) *BrainHandler {
	return &BrainHandler{svc: svc}
}

type BrainRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Visibility    string         `json:"visibility"`
	Settings      map[string]any `json:"settings"`
	RoleIDs       []int64        `json:"role_ids"`
	DepartmentIDs []int64        `json:"department_ids"`
	TeamIDs       []int64        `json:"team_ids"`
}

type BrainResponse struct {
	ID          int64          `json:"id"`
	OrgID       int64          `json:"org_id"`
	OwnerID     int64          `json:"owner_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Visibility  string         `json:"visibility"`
	Settings    map[string]any `json:"settings,omitempty"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

func brainToResponse(b *domain.Brain) *BrainResponse {
	return &BrainResponse{
		ID:          b.ID,
		OrgID:       b.OrgID,
		OwnerID:     b.OwnerID,
		Name:        b.Name,
		Description: b.Description,
		Visibility:  string(b.Visibility),
		Settings:    b.Settings,
		IsActive:    b.IsActive,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   b.UpdatedAt.Format(time.RFC3339),
	}
}

func (r *BrainRequest) toInput() service.BrainInput {
	return service.BrainInput{
		Name:          r.Name,
		Description:   r.Description,
		Visibility:    domain.Visibility(r.Visibility),
		Settings:      r.Settings,
		RoleIDs:       r.RoleIDs,
		DepartmentIDs: r.DepartmentIDs,
		TeamIDs:       r.TeamIDs,
	}
}

func (h *BrainHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	brain, err := h.svc.Create(r.Context(), *principal, req.toInput())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, brainToResponse(brain))
}

func (h *BrainHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	brains, err := h.svc.ListAccessible(r.Context(), *principal)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*BrainResponse, 0, len(brains))
	for _, b := range brains {
		responses = append(responses, brainToResponse(b))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *BrainHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	brain, err := h.svc.Get(r.Context(), *principal, brainID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, brainToResponse(brain))
}

func (h *BrainHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req BrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	brain, err := h.svc.Update(r.Context(), *principal, brainID, req.toInput())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, brainToResponse(brain))
}

func (h *BrainHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.svc.Delete(r.Context(), *principal, brainID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
