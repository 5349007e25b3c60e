package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aura-systems/aura/internal/api"
	"github.com/aura-systems/aura/internal/api/middleware"
	"github.com/aura-systems/aura/internal/domain"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing;
// larger files spill to temp storage.
const maxUploadMemory = 10 << 20

type DocumentService interface {
	Upload(ctx context.Context, p domain.Principal, brainID int64, filename string, data []byte, contentType string, metadata map[string]any) (*domain.Document, error)
	Get(ctx context.Context, p domain.Principal, documentID int64) (*domain.Document, error)
	List(ctx context.Context, p domain.Principal, brainID int64) ([]*domain.Document, error)
	DownloadURL(ctx context.Context, p domain.Principal, documentID int64) (string, error)
	Reprocess(ctx context.Context, p domain.Principal, documentID int64) (*domain.Document, error)
	Delete(ctx context.Context, p domain.Principal, documentID int64) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID               int64          `json:"id"`
	BrainID          int64          `json:"brain_id"`
	OriginalFilename string         `json:"original_filename"`
	FileType         string         `json:"file_type"`
	FileSize         int64          `json:"file_size"`
	Status           string         `json:"status"`
	Error            string         `json:"error,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:               d.ID,
		BrainID:          d.BrainID,
		OriginalFilename: d.OriginalFilename,
		FileType:         string(d.FileType),
		FileSize:         d.FileSize,
		Status:           string(d.Status),
		Error:            d.ProcessingError,
		Metadata:         d.Metadata,
		CreatedAt:        d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        d.UpdatedAt.Format(time.RFC3339),
	}
}

// Upload accepts a multipart form with a "file" part and an optional
// "metadata" part holding a JSON object.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	var metadata map[string]any
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid metadata JSON")
			return
		}
	}

	contentType := header.Header.Get("Content-Type")

	doc, err := h.svc.Upload(r.Context(), *principal, brainID, header.Filename, data, contentType, metadata)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
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

	docs, err := h.svc.List(r.Context(), *principal, brainID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		responses = append(responses, documentToResponse(d))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID, err := parseID(chi.URLParam(r, "documentID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.svc.Get(r.Context(), *principal, documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

// Download returns a short-lived presigned URL for the original file rather
// than streaming the bytes through the API.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID, err := parseID(chi.URLParam(r, "documentID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), *principal, documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"url": url})
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID, err := parseID(chi.URLParam(r, "documentID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.svc.Reprocess(r.Context(), *principal, documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID, err := parseID(chi.URLParam(r, "documentID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.svc.Delete(r.Context(), *principal, documentID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
