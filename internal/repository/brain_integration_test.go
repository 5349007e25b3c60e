//go:build integration

package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-systems/aura/internal/domain"
	"github.com/aura-systems/aura/internal/testutil"
)

var (
	poolOnce   sync.Once
	sharedPool *pgxpool.Pool
)

// testPool lazily starts one Postgres container for the whole package and
// empties every table before each test. The reaper removes the container
// when the test process exits.
func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		pc := testutil.NewPostgresContainer(ctx, t)
		sharedPool = testutil.NewTestPool(ctx, t, pc)
	})
	require.NoError(t, testutil.TruncateAll(ctx, sharedPool))
	return sharedPool
}

func createOrgAndUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool, orgName, email string) (int64, int64) {
	t.Helper()

	var orgID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO organizations (name) VALUES ($1) RETURNING id`, orgName,
	).Scan(&orgID))

	var userID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (organization_id, email) VALUES ($1, $2) RETURNING id`, orgID, email,
	).Scan(&userID))

	return orgID, userID
}

func newPersistedBrain(orgID, ownerID int64) *domain.Brain {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.NewBrain(0, orgID, ownerID, "Support KB", "Customer support articles", domain.VisibilityPrivate, map[string]any{"language": "en"}, now, now)
}

func TestBrainRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)

	orgID, userID := createOrgAndUser(ctx, t, pool, "Acme", "owner@acme.test")

	repo := NewBrainRepository(pool)
	brain := newPersistedBrain(orgID, userID)

	id, err := repo.Create(ctx, brain, domain.BrainAccess{})
	require.NoError(t, err)
	require.NotZero(t, id)

	retrieved, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orgID, retrieved.OrgID)
	assert.Equal(t, userID, retrieved.OwnerID)
	assert.Equal(t, "Support KB", retrieved.Name)
	assert.Equal(t, domain.VisibilityPrivate, retrieved.Visibility)
	assert.Equal(t, "en", retrieved.Settings["language"])
	assert.True(t, retrieved.IsActive)
}

func TestBrainRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)

	repo := NewBrainRepository(pool)
	_, err := repo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, domain.ErrBrainNotFound)
}

func TestBrainRepository_AccessAssignments(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)

	orgID, userID := createOrgAndUser(ctx, t, pool, "Acme", "owner@acme.test")

	var roleID, departmentID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO roles (organization_id, name) VALUES ($1, 'support') RETURNING id`, orgID,
	).Scan(&roleID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO departments (organization_id, name) VALUES ($1, 'customer-care') RETURNING id`, orgID,
	).Scan(&departmentID))

	repo := NewBrainRepository(pool)
	brain := newPersistedBrain(orgID, userID)
	brain.Visibility = domain.VisibilityRole

	id, err := repo.Create(ctx, brain, domain.BrainAccess{RoleIDs: []int64{roleID}})
	require.NoError(t, err)

	access, err := repo.GetAccess(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{roleID}, access.RoleIDs)
	assert.Empty(t, access.DepartmentIDs)

	// Update replaces the full assignment set.
	brain.ID = id
	brain.Visibility = domain.VisibilityDepartment
	require.NoError(t, repo.Update(ctx, brain, domain.BrainAccess{DepartmentIDs: []int64{departmentID}}))

	access, err = repo.GetAccess(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, access.RoleIDs)
	assert.Equal(t, []int64{departmentID}, access.DepartmentIDs)
}

func TestBrainRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)

	orgID, userID := createOrgAndUser(ctx, t, pool, "Acme", "owner@acme.test")

	repo := NewBrainRepository(pool)
	id, err := repo.Create(ctx, newPersistedBrain(orgID, userID), domain.BrainAccess{})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))

	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrBrainNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, id), domain.ErrBrainNotFound)
}

func TestPrincipalRepository_GetByToken(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)

	orgID, userID := createOrgAndUser(ctx, t, pool, "Acme", "owner@acme.test")

	var roleID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO roles (organization_id, name) VALUES ($1, 'support') RETURNING id`, orgID,
	).Scan(&roleID))
	_, err := pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
	require.NoError(t, err)

	token := "aura_integration_token"
	sum := sha256.Sum256([]byte(token))
	_, err = pool.Exec(ctx,
		`INSERT INTO access_tokens (user_id, token_hash) VALUES ($1, $2)`,
		userID, hex.EncodeToString(sum[:]),
	)
	require.NoError(t, err)

	repo := NewPrincipalRepository(pool)

	p, err := repo.GetByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, orgID, p.OrgID)
	assert.False(t, p.IsSuperuser)
	assert.Equal(t, []int64{roleID}, p.RoleIDs)

	_, err = repo.GetByToken(ctx, "unknown-token")
	assert.ErrorIs(t, err, domain.ErrInvalidPrincipal)
}

func TestPrincipalRepository_RevokedToken(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)

	_, userID := createOrgAndUser(ctx, t, pool, "Acme", "owner@acme.test")

	token := "aura_revoked_token"
	sum := sha256.Sum256([]byte(token))
	_, err := pool.Exec(ctx,
		`INSERT INTO access_tokens (user_id, token_hash, revoked_at) VALUES ($1, $2, NOW())`,
		userID, hex.EncodeToString(sum[:]),
	)
	require.NoError(t, err)

	repo := NewPrincipalRepository(pool)
	_, err = repo.GetByToken(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidPrincipal)
}
