package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aura-systems/aura/internal/domain"
)

// BrainRepository defines the repository interface for brain persistence
type BrainRepository interface {
	Create(ctx context.Context, b *domain.Brain, access domain.BrainAccess) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Brain, error)
	GetAccess(ctx context.Context, id int64) (domain.BrainAccess, error)
	ListByOrg(ctx context.Context, orgID int64) ([]*domain.Brain, error)
	Update(ctx context.Context, b *domain.Brain, access domain.BrainAccess) error
	Delete(ctx context.Context, id int64) error
}

// BrainDocumentLister exposes the documents owned by a brain, used when a
// brain is deleted to clean up blobs.
type BrainDocumentLister interface {
	ListByBrain(ctx context.Context, brainID int64) ([]*domain.Document, error)
}

// BrainInput carries caller-supplied brain fields.
type BrainInput struct {
	Name          string
	Description   string
	Visibility    domain.Visibility
	Settings      map[string]any
	RoleIDs       []int64
	DepartmentIDs []int64
	TeamIDs       []int64
}

// BrainService manages brains and resolves principal access to them.
type BrainService struct {
	repo  BrainRepository
	docs  BrainDocumentLister
	index VectorIndex
	blobs BlobStore
	now   func() time.Time
}

// NewBrainService creates a new BrainService instance
func NewBrainService(repo BrainRepository, docs BrainDocumentLister, index VectorIndex, blobs BlobStore) *BrainService {
	return &BrainService{
		repo:  repo,
		docs:  docs,
		index: index,
		blobs: blobs,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Authorize loads the brain and its assignment sets and evaluates the
// principal against them. Returns ErrAccessDenied when no rule grants
// access; the denial is always surfaced, never silently degraded.
func (s *BrainService) Authorize(ctx context.Context, p domain.Principal, brainID int64) (*domain.Brain, error) {
	brain, err := s.repo.GetByID(ctx, brainID)
	if err != nil {
		return nil, err
	}

	access, err := s.repo.GetAccess(ctx, brainID)
	if err != nil {
		return nil, err
	}

	if !domain.CanAccess(p, brain, access) {
		return nil, domain.ErrAccessDenied
	}

	return brain, nil
}

// Create creates a brain owned by the principal inside the principal's org.
func (s *BrainService) Create(ctx context.Context, p domain.Principal, input BrainInput) (*domain.Brain, error) {
	now := s.now()
	brain := domain.NewBrain(0, p.OrgID, p.UserID, input.Name, input.Description, input.Visibility, input.Settings, now, now)

	if err := domain.ValidateBrain(brain); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid brain", err)
	}

	id, err := s.repo.Create(ctx, brain, domain.BrainAccess{
		RoleIDs:       input.RoleIDs,
		DepartmentIDs: input.DepartmentIDs,
		TeamIDs:       input.TeamIDs,
	})
	if err != nil {
		return nil, err
	}

	brain.ID = id
	return brain, nil
}

// ListAccessible returns the active brains in the principal's org that the
// principal may read.
func (s *BrainService) ListAccessible(ctx context.Context, p domain.Principal) ([]*domain.Brain, error) {
	brains, err := s.repo.ListByOrg(ctx, p.OrgID)
	if err != nil {
		return nil, err
	}

	accessible := make([]*domain.Brain, 0, len(brains))
	for _, brain := range brains {
		access, err := s.repo.GetAccess(ctx, brain.ID)
		if err != nil {
			return nil, err
		}
		if domain.CanAccess(p, brain, access) {
			accessible = append(accessible, brain)
		}
	}
	return accessible, nil
}

// Get returns a single brain after an access check.
func (s *BrainService) Get(ctx context.Context, p domain.Principal, brainID int64) (*domain.Brain, error) {
	return s.Authorize(ctx, p, brainID)
}

// Update modifies a brain. Only the owner or a same-org superuser may write.
func (s *BrainService) Update(ctx context.Context, p domain.Principal, brainID int64, input BrainInput) (*domain.Brain, error) {
	brain, err := s.repo.GetByID(ctx, brainID)
	if err != nil {
		return nil, err
	}

	if !canManage(p, brain) {
		return nil, domain.ErrAccessDenied
	}

	if input.Name != "" {
		brain.Name = input.Name
	}
	brain.Description = input.Description
	if input.Visibility != "" {
		brain.Visibility = input.Visibility
	}
	if input.Settings != nil {
		brain.Settings = input.Settings
	}
	brain.UpdatedAt = s.now()

	if err := domain.ValidateBrain(brain); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid brain", err)
	}

	if err := s.repo.Update(ctx, brain, domain.BrainAccess{
		RoleIDs:       input.RoleIDs,
		DepartmentIDs: input.DepartmentIDs,
		TeamIDs:       input.TeamIDs,
	}); err != nil {
		return nil, err
	}

	return brain, nil
}

// Delete removes a brain, its vector entries, and its documents' blobs.
func (s *BrainService) Delete(ctx context.Context, p domain.Principal, brainID int64) error {
	brain, err := s.repo.GetByID(ctx, brainID)
	if err != nil {
		return err
	}

	if !canManage(p, brain) {
		return domain.ErrAccessDenied
	}

	if err := s.index.DeleteByBrain(ctx, brainID); err != nil {
		return fmt.Errorf("failed to delete brain %d vectors: %w", brainID, err)
	}

	documents, err := s.docs.ListByBrain(ctx, brainID)
	if err != nil {
		return err
	}
	for _, doc := range documents {
		if err := s.blobs.DeleteObject(ctx, doc.StorageKey); err != nil {
			// Blob cleanup is best effort; the row delete below cascades.
			log.Printf("failed to delete blob %s: %v", doc.StorageKey, err)
		}
	}

	return s.repo.Delete(ctx, brainID)
}

// canManage gates write operations: ownership or same-org superuser.
func canManage(p domain.Principal, b *domain.Brain) bool {
	if p.UserID == b.OwnerID {
		return true
	}
	return p.IsSuperuser && p.OrgID == b.OrgID
}
