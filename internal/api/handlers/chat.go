package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aura-systems/aura/internal/api"
	"github.com/aura-systems/aura/internal/api/middleware"
	"github.com/aura-systems/aura/internal/domain"
	"github.com/aura-systems/aura/internal/service"
)

type ChatService interface {
	CreateSession(ctx context.Context, p domain.Principal, brainID int64, firstMessage string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, p domain.Principal) ([]*domain.ChatSession, error)
	ListMessages(ctx context.Context, p domain.Principal, sessionID int64) ([]*domain.ChatMessage, error)
	DeleteSession(ctx context.Context, p domain.Principal, sessionID int64) error
	SendMessage(ctx context.Context, p domain.Principal, sessionID int64, content string) (*domain.ChatMessage, *service.Answer, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type CreateSessionRequest struct {
	BrainID      int64  `json:"brain_id"`
	FirstMessage string `json:"first_message"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type SessionResponse struct {
	ID        int64  `json:"id"`
	BrainID   int64  `json:"brain_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type MessageResponse struct {
	ID        int64           `json:"id"`
	SessionID int64           `json:"session_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Sources   []domain.Source `json:"sources,omitempty"`
	CreatedAt string          `json:"created_at"`
}

func sessionToResponse(s *domain.ChatSession) *SessionResponse {
	return &SessionResponse{
		ID:        s.ID,
		BrainID:   s.BrainID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

func messageToResponse(m *domain.ChatMessage) *MessageResponse {
	return &MessageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		Sources:   m.Sources,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.BrainID == 0 {
		api.Error(w, http.StatusBadRequest, "brain_id is required")
		return
	}

	session, err := h.svc.CreateSession(r.Context(), *principal, req.BrainID, req.FirstMessage)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, sessionToResponse(session))
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), *principal)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, sessionToResponse(s))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := parseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	messages, err := h.svc.ListMessages(r.Context(), *principal, sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, messageToResponse(m))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := parseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.svc.DeleteSession(r.Context(), *principal, sessionID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := parseID(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	reply, answer, err := h.svc.SendMessage(r.Context(), *principal, sessionID, req.Content)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{
		"message":      messageToResponse(reply),
		"used_context": answer.UsedContext,
	})
}
