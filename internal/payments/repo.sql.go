package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/clubledger/clubledger/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, tenant_id, branch_id, member_id, amount::text, paid_on, payment_method, note,
is_correction, corrected_payment_id, is_corrected, version, created_by, created_at, updated_at`

// InsertPayment persists a new payment row.
func (r *Repository) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO payments
(id, tenant_id, branch_id, member_id, amount, paid_on, payment_method, note,
 is_correction, corrected_payment_id, is_corrected, version, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.TenantID, p.BranchID, p.MemberID, p.Amount.StringFixed(2), p.PaidOn, string(p.Method), p.Note,
		p.IsCorrection, p.CorrectedPaymentID, p.IsCorrected, p.Version, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("payments: insert: %w", err)
	}
	return &p, nil
}

// GetPayment loads one payment scoped to the tenant. Foreign-tenant rows are
// indistinguishable from absent ones.
func (r *Repository) GetPayment(ctx context.Context, tenantID int64, id uuid.UUID) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPayments returns a filtered page plus the total match count.
func (r *Repository) ListPayments(ctx context.Context, tenantID int64, f ListFilter) ([]Payment, int, error) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}
	next := 2

	add := func(cond string, value any) {
		conds = append(conds, fmt.Sprintf(cond, next))
		args = append(args, value)
		next++
	}

	if f.BranchID != 0 {
		add("branch_id = $%d", f.BranchID)
	}
	if f.MemberID != 0 {
		add("member_id = $%d", f.MemberID)
	}
	if f.Method != "" {
		add("payment_method = $%d", string(f.Method))
	}
	if !f.From.IsZero() {
		add("paid_on >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("paid_on < $%d", f.To)
	}
	if !f.IncludeCorrected {
		conds = append(conds, "(is_correction OR NOT is_corrected)")
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("payments: count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY paid_on DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		paymentColumns, where, next, next+1)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("payments: list: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ApplyCorrection runs the transactional phase of the correction protocol:
// insert the correcting row, then conditionally flip the original. Zero rows
// affected by the conditional update means a concurrent corrector won the
// race after the caller's pre-check; the returned ErrVersionConflict rolls
// back the insert with it.
func (r *Repository) ApplyCorrection(ctx context.Context, correcting Payment, originalID uuid.UUID, expectedVersion int) (*Payment, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO payments
(id, tenant_id, branch_id, member_id, amount, paid_on, payment_method, note,
 is_correction, corrected_payment_id, is_corrected, version, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			correcting.ID, correcting.TenantID, correcting.BranchID, correcting.MemberID,
			correcting.Amount.StringFixed(2), correcting.PaidOn, string(correcting.Method), correcting.Note,
			true, originalID, false, correcting.Version, correcting.CreatedBy, correcting.CreatedAt, correcting.UpdatedAt)
		if err != nil {
			return fmt.Errorf("payments: insert correction: %w", err)
		}

		tag, err := tx.Exec(ctx, `UPDATE payments
SET is_corrected = true, corrected_payment_id = $1, version = version + 1, updated_at = $2
WHERE id = $3 AND tenant_id = $4 AND version = $5`,
			correcting.ID, correcting.UpdatedAt, originalID, correcting.TenantID, expectedVersion)
		if err != nil {
			return fmt.Errorf("payments: flip original: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &correcting, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	var (
		p         Payment
		amount    string
		method    string
		corrected *uuid.UUID
	)
	if err := row.Scan(&p.ID, &p.TenantID, &p.BranchID, &p.MemberID, &amount, &p.PaidOn, &method, &p.Note,
		&p.IsCorrection, &corrected, &p.IsCorrected, &p.Version, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("payments: scan amount %q: %w", amount, err)
	}
	p.Amount = d
	p.Method = PaymentMethod(method)
	p.CorrectedPaymentID = corrected
	p.PaidOn = p.PaidOn.In(time.UTC)
	p.CreatedAt = p.CreatedAt.In(time.UTC)
	p.UpdatedAt = p.UpdatedAt.In(time.UTC)
	return &p, nil
}
