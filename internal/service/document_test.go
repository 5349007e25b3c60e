package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aura-systems/aura/internal/domain"
)

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) (int64, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByBrain(ctx context.Context, brainID int64) ([]*domain.Document, error) {
	args := m.Called(ctx, brainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ResetForReprocess(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestDocumentService(docs *MockDocumentRepository, blobs *MockBlobStore, index *MockVectorIndex, brains *MockBrainAuthorizer) *DocumentService {
	return NewDocumentService(docs, blobs, blobs, index, brains)
}

func grantBrain(brains *MockBrainAuthorizer, p domain.Principal, brainID int64) {
	brains.On("Authorize", mock.Anything, p, brainID).
		Return(ownedBrain(brainID, p.OrgID, p.UserID, domain.VisibilityPrivate), nil)
}

func TestUpload_CreatesPendingDocument(t *testing.T) {
	docs := new(MockDocumentRepository)
	blobs := new(MockBlobStore)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	grantBrain(brains, p, 7)

	blobs.On("PutObject", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "brains/7/") && strings.HasSuffix(key, ".pdf")
	}), []byte("%PDF-1.4"), "application/pdf").Return(nil)

	docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.BrainID == 7 &&
			d.OriginalFilename == "Quarterly Report.PDF" &&
			d.FileType == domain.FileTypePDF &&
			d.Status == domain.DocumentStatusPending &&
			d.FileSize == int64(len("%PDF-1.4"))
	})).Return(int64(42), nil)

	svc := newTestDocumentService(docs, blobs, new(MockVectorIndex), brains)
	doc, err := svc.Upload(context.Background(), p, 7, "Quarterly Report.PDF", []byte("%PDF-1.4"), "application/pdf", nil)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), doc.ID)
	assert.Equal(t, domain.DocumentStatusPending, doc.Status)
	docs.AssertExpectations(t)
	blobs.AssertExpectations(t)
}

func TestUpload_UnsupportedExtensionRejectedBeforeStorage(t *testing.T) {
	docs := new(MockDocumentRepository)
	blobs := new(MockBlobStore)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	grantBrain(brains, p, 7)

	svc := newTestDocumentService(docs, blobs, new(MockVectorIndex), brains)
	_, err := svc.Upload(context.Background(), p, 7, "setup.exe", []byte("MZ"), "application/octet-stream", nil)

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	blobs.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpload_AccessDenied(t *testing.T) {
	docs := new(MockDocumentRepository)
	blobs := new(MockBlobStore)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 200, OrgID: 10}
	brains.On("Authorize", mock.Anything, p, int64(7)).Return(nil, domain.ErrAccessDenied)

	svc := newTestDocumentService(docs, blobs, new(MockVectorIndex), brains)
	_, err := svc.Upload(context.Background(), p, 7, "report.pdf", []byte("%PDF-1.4"), "application/pdf", nil)

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	blobs.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_BlobFailureLeavesNoRow(t *testing.T) {
	docs := new(MockDocumentRepository)
	blobs := new(MockBlobStore)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	grantBrain(brains, p, 7)
	blobs.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket unavailable"))

	svc := newTestDocumentService(docs, blobs, new(MockVectorIndex), brains)
	_, err := svc.Upload(context.Background(), p, 7, "report.pdf", []byte("%PDF-1.4"), "application/pdf", nil)

	assert.Error(t, err)
	docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetDocument_ChecksBrainAccess(t *testing.T) {
	docs := new(MockDocumentRepository)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 200, OrgID: 10}
	docs.On("GetByID", mock.Anything, int64(42)).Return(&domain.Document{ID: 42, BrainID: 7}, nil)
	brains.On("Authorize", mock.Anything, p, int64(7)).Return(nil, domain.ErrAccessDenied)

	svc := newTestDocumentService(docs, new(MockBlobStore), new(MockVectorIndex), brains)
	_, err := svc.Get(context.Background(), p, 42)

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestDownloadURL_SignsStorageKey(t *testing.T) {
	docs := new(MockDocumentRepository)
	blobs := new(MockBlobStore)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	grantBrain(brains, p, 7)

	docs.On("GetByID", mock.Anything, int64(42)).
		Return(&domain.Document{ID: 42, BrainID: 7, StorageKey: "brains/7/abc.pdf"}, nil)
	blobs.On("GenerateDownloadURL", mock.Anything, "brains/7/abc.pdf").
		Return("https://blobs.example/brains/7/abc.pdf?sig=xyz", nil)

	svc := newTestDocumentService(docs, blobs, new(MockVectorIndex), brains)
	url, err := svc.DownloadURL(context.Background(), p, 42)

	assert.NoError(t, err)
	assert.Equal(t, "https://blobs.example/brains/7/abc.pdf?sig=xyz", url)
}

func TestDownloadURL_AccessDenied(t *testing.T) {
	docs := new(MockDocumentRepository)
	blobs := new(MockBlobStore)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 200, OrgID: 10}
	docs.On("GetByID", mock.Anything, int64(42)).Return(&domain.Document{ID: 42, BrainID: 7}, nil)
	brains.On("Authorize", mock.Anything, p, int64(7)).Return(nil, domain.ErrAccessDenied)

	svc := newTestDocumentService(docs, blobs, new(MockVectorIndex), brains)
	_, err := svc.DownloadURL(context.Background(), p, 42)

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	blobs.AssertNotCalled(t, "GenerateDownloadURL", mock.Anything, mock.Anything)
}

func TestReprocess_DeletesVectorsThenResets(t *testing.T) {
	docs := new(MockDocumentRepository)
	index := new(MockVectorIndex)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	processed := &domain.Document{ID: 42, BrainID: 7, Status: domain.DocumentStatusProcessed}
	pending := &domain.Document{ID: 42, BrainID: 7, Status: domain.DocumentStatusPending}

	docs.On("GetByID", mock.Anything, int64(42)).Return(processed, nil).Once()
	grantBrain(brains, p, 7)
	index.On("DeleteByDocument", mock.Anything, int64(42)).Return(nil)
	docs.On("ResetForReprocess", mock.Anything, int64(42)).Return(nil)
	docs.On("GetByID", mock.Anything, int64(42)).Return(pending, nil).Once()

	svc := newTestDocumentService(docs, new(MockBlobStore), index, brains)
	doc, err := svc.Reprocess(context.Background(), p, 42)

	assert.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPending, doc.Status)
	docs.AssertExpectations(t)
	index.AssertExpectations(t)
}

func TestDeleteDocument_RemovesVectorsBlobAndRow(t *testing.T) {
	docs := new(MockDocumentRepository)
	blobs := new(MockBlobStore)
	index := new(MockVectorIndex)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	docs.On("GetByID", mock.Anything, int64(42)).Return(&domain.Document{ID: 42, BrainID: 7, StorageKey: "brains/7/abc.pdf"}, nil)
	grantBrain(brains, p, 7)
	index.On("DeleteByDocument", mock.Anything, int64(42)).Return(nil)
	blobs.On("DeleteObject", mock.Anything, "brains/7/abc.pdf").Return(nil)
	docs.On("Delete", mock.Anything, int64(42)).Return(nil)

	svc := newTestDocumentService(docs, blobs, index, brains)
	err := svc.Delete(context.Background(), p, 42)

	assert.NoError(t, err)
	docs.AssertExpectations(t)
	blobs.AssertExpectations(t)
	index.AssertExpectations(t)
}

func TestDeleteDocument_BlobFailureAborts(t *testing.T) {
	docs := new(MockDocumentRepository)
	blobs := new(MockBlobStore)
	index := new(MockVectorIndex)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	docs.On("GetByID", mock.Anything, int64(42)).Return(&domain.Document{ID: 42, BrainID: 7, StorageKey: "brains/7/abc.pdf"}, nil)
	grantBrain(brains, p, 7)
	index.On("DeleteByDocument", mock.Anything, int64(42)).Return(nil)
	blobs.On("DeleteObject", mock.Anything, "brains/7/abc.pdf").Return(errors.New("storage unavailable"))

	svc := newTestDocumentService(docs, blobs, index, brains)
	err := svc.Delete(context.Background(), p, 42)

	assert.Error(t, err)
	docs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
