// Package members exposes the member-directory contract consumed by the
// payment ledger. Member CRUD itself lives in another service; this package
// only resolves a member under a tenant and reports the branch the member
// currently belongs to.
package members

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubledger/clubledger/internal/shared"
)

// ErrMemberNotFound is returned for absent members and for members owned by
// a different tenant; the message is identical in both cases.
var ErrMemberNotFound = shared.NotFound("member_not_found", "member not found")

// Member is the slice of the directory record the ledger needs.
type Member struct {
	ID       int64
	TenantID int64
	BranchID int64
	FullName string
	Active   bool
}

// Directory resolves members scoped to a tenant.
type Directory interface {
	GetMember(ctx context.Context, tenantID, memberID int64) (*Member, error)
}

// Repository provides PostgreSQL backed member lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetMember loads a member by id within the tenant. Foreign-tenant rows are
// indistinguishable from absent ones.
func (r *Repository) GetMember(ctx context.Context, tenantID, memberID int64) (*Member, error) {
	var m Member
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, branch_id, full_name, active
FROM members WHERE id = $1 AND tenant_id = $2`, memberID, tenantID).
		Scan(&m.ID, &m.TenantID, &m.BranchID, &m.FullName, &m.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
