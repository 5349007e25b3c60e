package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-systems/aura/internal/domain"
)

// PrincipalRepository resolves API bearer tokens to principals. Tokens are
// stored hashed; the raw token never touches the database.
type PrincipalRepository struct {
	db dbtx
}

func NewPrincipalRepository(pool *pgxpool.Pool) *PrincipalRepository {
	return &PrincipalRepository{db: pool}
}

// GetByToken looks up the user behind a bearer token and assembles the
// principal used by access checks. Unknown or revoked tokens resolve to
// domain.ErrInvalidPrincipal.
func (r *PrincipalRepository) GetByToken(ctx context.Context, token string) (*domain.Principal, error) {
	sum := sha256.Sum256([]byte(token))
	hash := hex.EncodeToString(sum[:])

	var p domain.Principal
	err := r.db.QueryRow(ctx,
		`SELECT u.id, u.organization_id, u.is_superuser, u.department_id, u.team_id
		 FROM access_tokens t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.token_hash = $1
		   AND t.revoked_at IS NULL
		   AND (t.expires_at IS NULL OR t.expires_at > NOW())`,
		hash,
	).Scan(&p.UserID, &p.OrgID, &p.IsSuperuser, &p.DepartmentID, &p.TeamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidPrincipal
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id`,
		p.UserID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var roleID int64
		if err := rows.Scan(&roleID); err != nil {
			return nil, err
		}
		p.RoleIDs = append(p.RoleIDs, roleID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}
