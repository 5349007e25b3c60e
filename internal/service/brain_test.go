package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aura-systems/aura/internal/domain"
)

// MockBrainRepository is a mock implementation of BrainRepository
type MockBrainRepository struct {
	mock.Mock
}

func (m *MockBrainRepository) Create(ctx context.Context, b *domain.Brain, access domain.BrainAccess) (int64, error) {
	args := m.Called(ctx, b, access)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBrainRepository) GetByID(ctx context.Context, id int64) (*domain.Brain, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brain), args.Error(1)
}

func (m *MockBrainRepository) GetAccess(ctx context.Context, id int64) (domain.BrainAccess, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.BrainAccess), args.Error(1)
}

func (m *MockBrainRepository) ListByOrg(ctx context.Context, orgID int64) ([]*domain.Brain, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Brain), args.Error(1)
}

func (m *MockBrainRepository) Update(ctx context.Context, b *domain.Brain, access domain.BrainAccess) error {
	args := m.Called(ctx, b, access)
	return args.Error(0)
}

func (m *MockBrainRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBrainDocumentLister is a mock implementation of BrainDocumentLister
type MockBrainDocumentLister struct {
	mock.Mock
}

func (m *MockBrainDocumentLister) ListByBrain(ctx context.Context, brainID int64) ([]*domain.Document, error) {
	args := m.Called(ctx, brainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func ownedBrain(id, orgID, ownerID int64, visibility domain.Visibility) *domain.Brain {
	return &domain.Brain{
		ID:         id,
		OrgID:      orgID,
		OwnerID:    ownerID,
		Name:       "Support KB",
		Visibility: visibility,
		IsActive:   true,
	}
}

func TestAuthorize_OwnerGranted(t *testing.T) {
	repo := new(MockBrainRepository)
	repo.On("GetByID", mock.Anything, int64(1)).Return(ownedBrain(1, 10, 100, domain.VisibilityPrivate), nil)
	repo.On("GetAccess", mock.Anything, int64(1)).Return(domain.BrainAccess{}, nil)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	brain, err := svc.Authorize(context.Background(), domain.Principal{UserID: 100, OrgID: 10}, 1)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), brain.ID)
}

func TestAuthorize_PrivateDeniesNonOwner(t *testing.T) {
	repo := new(MockBrainRepository)
	repo.On("GetByID", mock.Anything, int64(1)).Return(ownedBrain(1, 10, 100, domain.VisibilityPrivate), nil)
	repo.On("GetAccess", mock.Anything, int64(1)).Return(domain.BrainAccess{}, nil)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	_, err := svc.Authorize(context.Background(), domain.Principal{UserID: 200, OrgID: 10}, 1)

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestAuthorize_RoleVisibilityGranted(t *testing.T) {
	repo := new(MockBrainRepository)
	repo.On("GetByID", mock.Anything, int64(1)).Return(ownedBrain(1, 10, 100, domain.VisibilityRole), nil)
	repo.On("GetAccess", mock.Anything, int64(1)).Return(domain.BrainAccess{RoleIDs: []int64{5, 9}}, nil)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	brain, err := svc.Authorize(context.Background(), domain.Principal{UserID: 200, OrgID: 10, RoleIDs: []int64{9}}, 1)

	assert.NoError(t, err)
	assert.NotNil(t, brain)
}

func TestAuthorize_BrainNotFound(t *testing.T) {
	repo := new(MockBrainRepository)
	repo.On("GetByID", mock.Anything, int64(99)).Return(nil, domain.ErrBrainNotFound)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	_, err := svc.Authorize(context.Background(), domain.Principal{UserID: 100, OrgID: 10}, 99)

	assert.ErrorIs(t, err, domain.ErrBrainNotFound)
}

func TestCreateBrain_SetsOwnerAndOrgFromPrincipal(t *testing.T) {
	repo := new(MockBrainRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(b *domain.Brain) bool {
		return b.OrgID == 10 && b.OwnerID == 100 && b.Name == "Support KB" && b.IsActive
	}), domain.BrainAccess{RoleIDs: []int64{5}}).Return(int64(42), nil)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	brain, err := svc.Create(context.Background(), domain.Principal{UserID: 100, OrgID: 10}, BrainInput{
		Name:       "Support KB",
		Visibility: domain.VisibilityRole,
		RoleIDs:    []int64{5},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(42), brain.ID)
	repo.AssertExpectations(t)
}

func TestCreateBrain_RejectsEmptyName(t *testing.T) {
	repo := new(MockBrainRepository)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	_, err := svc.Create(context.Background(), domain.Principal{UserID: 100, OrgID: 10}, BrainInput{
		Visibility: domain.VisibilityPrivate,
	})

	assert.Error(t, err)
	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestListAccessible_FiltersDeniedBrains(t *testing.T) {
	repo := new(MockBrainRepository)
	mine := ownedBrain(1, 10, 100, domain.VisibilityPrivate)
	theirs := ownedBrain(2, 10, 200, domain.VisibilityPrivate)
	shared := ownedBrain(3, 10, 200, domain.VisibilityOrganization)
	repo.On("ListByOrg", mock.Anything, int64(10)).Return([]*domain.Brain{mine, theirs, shared}, nil)
	repo.On("GetAccess", mock.Anything, mock.Anything).Return(domain.BrainAccess{}, nil)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	brains, err := svc.ListAccessible(context.Background(), domain.Principal{UserID: 100, OrgID: 10})

	assert.NoError(t, err)
	assert.Len(t, brains, 2)
	assert.Equal(t, int64(1), brains[0].ID)
	assert.Equal(t, int64(3), brains[1].ID)
}

func TestUpdateBrain_NonOwnerDenied(t *testing.T) {
	repo := new(MockBrainRepository)
	repo.On("GetByID", mock.Anything, int64(1)).Return(ownedBrain(1, 10, 100, domain.VisibilityPrivate), nil)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	_, err := svc.Update(context.Background(), domain.Principal{UserID: 200, OrgID: 10}, 1, BrainInput{Name: "Renamed"})

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateBrain_SuperuserSameOrgAllowed(t *testing.T) {
	repo := new(MockBrainRepository)
	repo.On("GetByID", mock.Anything, int64(1)).Return(ownedBrain(1, 10, 100, domain.VisibilityPrivate), nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(b *domain.Brain) bool {
		return b.Name == "Renamed"
	}), mock.Anything).Return(nil)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	brain, err := svc.Update(context.Background(), domain.Principal{UserID: 999, OrgID: 10, IsSuperuser: true}, 1, BrainInput{Name: "Renamed"})

	assert.NoError(t, err)
	assert.Equal(t, "Renamed", brain.Name)
}

func TestUpdateBrain_SuperuserOtherOrgDenied(t *testing.T) {
	repo := new(MockBrainRepository)
	repo.On("GetByID", mock.Anything, int64(1)).Return(ownedBrain(1, 10, 100, domain.VisibilityPrivate), nil)

	svc := NewBrainService(repo, new(MockBrainDocumentLister), new(MockVectorIndex), new(MockBlobStore))
	_, err := svc.Update(context.Background(), domain.Principal{UserID: 999, OrgID: 20, IsSuperuser: true}, 1, BrainInput{Name: "Renamed"})

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestDeleteBrain_CleansVectorsAndBlobs(t *testing.T) {
	repo := new(MockBrainRepository)
	docs := new(MockBrainDocumentLister)
	index := new(MockVectorIndex)
	blobs := new(MockBlobStore)

	repo.On("GetByID", mock.Anything, int64(1)).Return(ownedBrain(1, 10, 100, domain.VisibilityPrivate), nil)
	index.On("DeleteByBrain", mock.Anything, int64(1)).Return(nil)
	docs.On("ListByBrain", mock.Anything, int64(1)).Return([]*domain.Document{
		{ID: 7, StorageKey: "brains/1/doc-7.pdf"},
		{ID: 8, StorageKey: "brains/1/doc-8.pdf"},
	}, nil)
	blobs.On("DeleteObject", mock.Anything, "brains/1/doc-7.pdf").Return(nil)
	blobs.On("DeleteObject", mock.Anything, "brains/1/doc-8.pdf").Return(errors.New("object missing"))
	repo.On("Delete", mock.Anything, int64(1)).Return(nil)

	svc := NewBrainService(repo, docs, index, blobs)
	err := svc.Delete(context.Background(), domain.Principal{UserID: 100, OrgID: 10}, 1)

	// A failed blob delete must not block the row delete.
	assert.NoError(t, err)
	repo.AssertExpectations(t)
	index.AssertExpectations(t)
	blobs.AssertExpectations(t)
}

func TestDeleteBrain_VectorDeleteFailureAborts(t *testing.T) {
	repo := new(MockBrainRepository)
	index := new(MockVectorIndex)

	repo.On("GetByID", mock.Anything, int64(1)).Return(ownedBrain(1, 10, 100, domain.VisibilityPrivate), nil)
	index.On("DeleteByBrain", mock.Anything, int64(1)).Return(errors.New("index unavailable"))

	svc := NewBrainService(repo, new(MockBrainDocumentLister), index, new(MockBlobStore))
	err := svc.Delete(context.Background(), domain.Principal{UserID: 100, OrgID: 10}, 1)

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
