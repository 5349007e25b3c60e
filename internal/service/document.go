package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aura-systems/aura/internal/domain"
)

// DocumentRepository defines the repository interface for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	ListByBrain(ctx context.Context, brainID int64) ([]*domain.Document, error)
	ResetForReprocess(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// BrainAuthorizer resolves whether a principal may read a brain
type BrainAuthorizer interface {
	Authorize(ctx context.Context, p domain.Principal, brainID int64) (*domain.Brain, error)
}

// BlobURLSigner issues short-lived download links for stored blobs
type BlobURLSigner interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// DocumentService registers uploads and manages the document lifecycle.
// Ingestion itself runs asynchronously; Upload returns as soon as the blob
// is saved and the pending row exists.
type DocumentService struct {
	docs   DocumentRepository
	blobs  BlobStore
	signer BlobURLSigner
	index  VectorIndex
	brains BrainAuthorizer
	now    func() time.Time
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(docs DocumentRepository, blobs BlobStore, signer BlobURLSigner, index VectorIndex, brains BrainAuthorizer) *DocumentService {
	return &DocumentService{
		docs:   docs,
		blobs:  blobs,
		signer: signer,
		index:  index,
		brains: brains,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Upload validates the declared file type, saves the raw bytes, and creates
// a pending document row. Unsupported extensions are rejected before any
// byte is persisted. The ingest worker picks the row up asynchronously.
func (s *DocumentService) Upload(ctx context.Context, p domain.Principal, brainID int64, filename string, data []byte, contentType string, metadata map[string]any) (*domain.Document, error) {
	if _, err := s.brains.Authorize(ctx, p, brainID); err != nil {
		return nil, err
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	fileType, ok := domain.FileTypeFromExtension(ext)
	if !ok {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnsupportedFile,
			fmt.Sprintf("unsupported file type: %s", ext), domain.ErrUnsupportedFileType)
	}

	storedName := uuid.NewString() + "." + ext
	storageKey := fmt.Sprintf("brains/%d/%s", brainID, storedName)

	if err := s.blobs.PutObject(ctx, storageKey, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	doc := domain.NewDocument(brainID, storedName, filename, fileType, storageKey, int64(len(data)), metadata, s.now())
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	id, err := s.docs.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.ID = id

	return doc, nil
}

// Get returns one document after checking access to its brain.
func (s *DocumentService) Get(ctx context.Context, p domain.Principal, documentID int64) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.brains.Authorize(ctx, p, doc.BrainID); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns a brain's documents after an access check.
func (s *DocumentService) List(ctx context.Context, p domain.Principal, brainID int64) ([]*domain.Document, error) {
	if _, err := s.brains.Authorize(ctx, p, brainID); err != nil {
		return nil, err
	}
	return s.docs.ListByBrain(ctx, brainID)
}

// DownloadURL returns a presigned link for the document's original file.
// The link expires; clients should request a fresh one per download.
func (s *DocumentService) DownloadURL(ctx context.Context, p domain.Principal, documentID int64) (string, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}
	if _, err := s.brains.Authorize(ctx, p, doc.BrainID); err != nil {
		return "", err
	}

	url, err := s.signer.GenerateDownloadURL(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign download URL for document %d: %w", documentID, err)
	}
	return url, nil
}

// Reprocess deletes a document's existing vector entries and resets it to
// pending so the ingest worker runs the pipeline again.
func (s *DocumentService) Reprocess(ctx context.Context, p domain.Principal, documentID int64) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.brains.Authorize(ctx, p, doc.BrainID); err != nil {
		return nil, err
	}

	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("failed to delete existing vectors for document %d: %w", documentID, err)
	}

	if err := s.docs.ResetForReprocess(ctx, documentID); err != nil {
		return nil, err
	}

	return s.docs.GetByID(ctx, documentID)
}

// Delete removes a document's vectors, its blob, and its row, in that order.
func (s *DocumentService) Delete(ctx context.Context, p domain.Principal, documentID int64) error {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if _, err := s.brains.Authorize(ctx, p, doc.BrainID); err != nil {
		return err
	}

	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document %d vectors: %w", documentID, err)
	}

	if err := s.blobs.DeleteObject(ctx, doc.StorageKey); err != nil {
		return fmt.Errorf("failed to delete document %d blob: %w", documentID, err)
	}

	return s.docs.Delete(ctx, documentID)
}
