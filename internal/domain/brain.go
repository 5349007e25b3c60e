package domain

import (
	"fmt"
	"time"
)

// Visibility determines which principals may read a brain.
type Visibility string

const (
	VisibilityPrivate      Visibility = "private"
	VisibilityOrganization Visibility = "organization"
	VisibilityRole         Visibility = "role"
	VisibilityDepartment   Visibility = "department"
	VisibilityTeam         Visibility = "team"
)

// Brain represents an isolated, access-controlled knowledge base.
type Brain struct {
	ID          int64
	OrgID       int64
	OwnerID     int64
	Name        string
	Description string
	Visibility  Visibility
	Settings    map[string]any
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BrainAccess holds the assignment sets attached to a brain's visibility
// rule. Loaded once per access check and passed as plain data into CanAccess.
type BrainAccess struct {
	RoleIDs       []int64
	DepartmentIDs []int64
	TeamIDs       []int64
}

// Principal carries the membership facts needed to evaluate brain access.
type Principal struct {
	UserID       int64
	OrgID        int64
	IsSuperuser  bool
	RoleIDs      []int64
	DepartmentID *int64
	TeamID       *int64
}

// NewBrain creates a new Brain instance
func NewBrain(
	id, orgID, ownerID int64,
	name, description string,
	visibility Visibility,
	settings map[string]any,
	createdAt, updatedAt time.Time,
) *Brain {
	return &Brain{
		ID:          id,
		OrgID:       orgID,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Visibility:  visibility,
		Settings:    settings,
		IsActive:    true,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// ValidateBrain validates a Brain instance
func ValidateBrain(b *Brain) error {
	if b == nil {
		return fmt.Errorf("brain cannot be nil")
	}

	if b.Name == "" {
		return fmt.Errorf("brain Name is required")
	}

	if b.OrgID == 0 {
		return fmt.Errorf("brain OrgID is required")
	}

	if b.OwnerID == 0 {
		return fmt.Errorf("brain OwnerID is required")
	}

	if !isValidVisibility(b.Visibility) {
		return fmt.Errorf("brain Visibility is invalid: %s", b.Visibility)
	}

	return nil
}

func isValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityPrivate, VisibilityOrganization, VisibilityRole, VisibilityDepartment, VisibilityTeam:
		return true
	default:
		return false
	}
}
