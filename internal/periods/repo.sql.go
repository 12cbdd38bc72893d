package periods

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for month locks.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

// InsertLock persists a lock; the uq_revenue_month_locks constraint turns a
// duplicate into ErrAlreadyLocked.
func (r *Repository) InsertLock(ctx context.Context, lock MonthLock) (*MonthLock, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO revenue_month_locks (tenant_id, branch_id, month, locked_by, locked_at, note)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		lock.TenantID, lock.BranchID, lock.Month, lock.LockedBy, lock.LockedAt, lock.Note).Scan(&lock.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyLocked
		}
		return nil, err
	}
	return &lock, nil
}

// DeleteLock removes a lock, reporting whether a row existed.
func (r *Repository) DeleteLock(ctx context.Context, tenantID, branchID int64, month string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM revenue_month_locks
WHERE tenant_id = $1 AND branch_id = $2 AND month = $3`, tenantID, branchID, month)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// LockExists reports whether the month is locked for the branch.
func (r *Repository) LockExists(ctx context.Context, tenantID, branchID int64, month string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM revenue_month_locks
WHERE tenant_id = $1 AND branch_id = $2 AND month = $3)`, tenantID, branchID, month).Scan(&exists)
	return exists, err
}

// ListLocks returns the branch's locks ordered by month descending.
func (r *Repository) ListLocks(ctx context.Context, tenantID, branchID int64) ([]MonthLock, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, branch_id, month, locked_by, locked_at, note
FROM revenue_month_locks WHERE tenant_id = $1 AND branch_id = $2 ORDER BY month DESC`, tenantID, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var locks []MonthLock
	for rows.Next() {
		var l MonthLock
		if err := rows.Scan(&l.ID, &l.TenantID, &l.BranchID, &l.Month, &l.LockedBy, &l.LockedAt, &l.Note); err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locks, nil
}
