package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-systems/aura/internal/domain"
)

// BrainRepository handles persistence of brains and their assignment sets.
type BrainRepository struct {
	db dbtx
}

func NewBrainRepository(pool *pgxpool.Pool) *BrainRepository {
	return &BrainRepository{db: pool}
}

func NewBrainRepositoryWithTx(tx pgx.Tx) *BrainRepository {
	return &BrainRepository{db: tx}
}

func (r *BrainRepository) Create(ctx context.Context, b *domain.Brain, access domain.BrainAccess) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO brains (org_id, owner_id, name, description, visibility, settings, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		b.OrgID, b.OwnerID, b.Name, b.Description, b.Visibility, b.Settings, b.IsActive, b.CreatedAt, b.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	if err := r.replaceAssignments(ctx, id, access); err != nil {
		return 0, err
	}

	return id, nil
}

func (r *BrainRepository) GetByID(ctx context.Context, id int64) (*domain.Brain, error) {
	var b domain.Brain
	err := r.db.QueryRow(ctx,
		`SELECT id, org_id, owner_id, name, description, visibility, settings, is_active, created_at, updated_at
		 FROM brains WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.OrgID, &b.OwnerID, &b.Name, &b.Description, &b.Visibility, &b.Settings, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBrainNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetAccess loads the brain's assignment sets in a single round trip per set.
func (r *BrainRepository) GetAccess(ctx context.Context, id int64) (domain.BrainAccess, error) {
	var access domain.BrainAccess
	var err error

	if access.RoleIDs, err = r.assignedIDs(ctx, `SELECT role_id FROM brain_roles WHERE brain_id = $1`, id); err != nil {
		return access, err
	}
	if access.DepartmentIDs, err = r.assignedIDs(ctx, `SELECT department_id FROM brain_departments WHERE brain_id = $1`, id); err != nil {
		return access, err
	}
	if access.TeamIDs, err = r.assignedIDs(ctx, `SELECT team_id FROM brain_teams WHERE brain_id = $1`, id); err != nil {
		return access, err
	}

	return access, nil
}

func (r *BrainRepository) ListByOrg(ctx context.Context, orgID int64) ([]*domain.Brain, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, org_id, owner_id, name, description, visibility, settings, is_active, created_at, updated_at
		 FROM brains
		 WHERE org_id = $1 AND is_active = TRUE
		 ORDER BY updated_at DESC`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brains := make([]*domain.Brain, 0)
	for rows.Next() {
		var b domain.Brain
		if err := rows.Scan(&b.ID, &b.OrgID, &b.OwnerID, &b.Name, &b.Description, &b.Visibility, &b.Settings, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		brains = append(brains, &b)
	}

	return brains, rows.Err()
}

func (r *BrainRepository) Update(ctx context.Context, b *domain.Brain, access domain.BrainAccess) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE brains
		 SET name = $1, description = $2, visibility = $3, settings = $4, is_active = $5, updated_at = $6
		 WHERE id = $7`,
		b.Name, b.Description, b.Visibility, b.Settings, b.IsActive, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrBrainNotFound
	}

	return r.replaceAssignments(ctx, b.ID, access)
}

func (r *BrainRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM brains WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrBrainNotFound
	}
	return nil
}

func (r *BrainRepository) assignedIDs(ctx context.Context, query string, brainID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, query, brainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *BrainRepository) replaceAssignments(ctx context.Context, brainID int64, access domain.BrainAccess) error {
	assignments := []struct {
		table  string
		column string
		ids    []int64
	}{
		{"brain_roles", "role_id", access.RoleIDs},
		{"brain_departments", "department_id", access.DepartmentIDs},
		{"brain_teams", "team_id", access.TeamIDs},
	}

	for _, a := range assignments {
		if _, err := r.db.Exec(ctx, `DELETE FROM `+a.table+` WHERE brain_id = $1`, brainID); err != nil {
			return err
		}
		for _, id := range a.ids {
			if _, err := r.db.Exec(ctx,
				`INSERT INTO `+a.table+` (brain_id, `+a.column+`) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				brainID, id,
			); err != nil {
				return err
			}
		}
	}

	return nil
}
