package revenue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads payment sums straight off the ledger table. It never
// writes; isolation is whatever the store's default read level provides.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// exclusionFilter keeps a superseded original and its correction from
// summing together: a row counts when it is a correction or has not been
// corrected.
const exclusionFilter = `(is_correction OR NOT is_corrected)`

// SumInRange totals payments inside [start, end).
func (r *Repository) SumInRange(ctx context.Context, tenantID, branchID int64, start, end time.Time) (decimal.Decimal, error) {
	var total string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM payments
WHERE tenant_id = $1 AND branch_id = $2 AND paid_on >= $3 AND paid_on < $4 AND `+exclusionFilter,
		tenantID, branchID, start, end).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("revenue: sum payments: %w", err)
	}
	return decimal.NewFromString(total)
}

// SumByMethod totals payments per payment method inside [start, end).
func (r *Repository) SumByMethod(ctx context.Context, tenantID, branchID int64, start, end time.Time) ([]MethodSum, error) {
	rows, err := r.pool.Query(ctx, `SELECT payment_method, COALESCE(SUM(amount), 0)::text FROM payments
WHERE tenant_id = $1 AND branch_id = $2 AND paid_on >= $3 AND paid_on < $4 AND `+exclusionFilter+`
GROUP BY payment_method`, tenantID, branchID, start, end)
	if err != nil {
		return nil, fmt.Errorf("revenue: sum payments by method: %w", err)
	}
	defer rows.Close()
	var out []MethodSum
	for rows.Next() {
		var (
			sum MethodSum
			raw string
		)
		if err := rows.Scan(&sum.Method, &raw); err != nil {
			return nil, err
		}
		if sum.Total, err = decimal.NewFromString(raw); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SumByDay totals payments per UTC calendar day inside [start, end).
// paid_on is already midnight UTC, so the day key is paid_on itself.
func (r *Repository) SumByDay(ctx context.Context, tenantID, branchID int64, start, end time.Time) ([]DaySum, error) {
	rows, err := r.pool.Query(ctx, `SELECT paid_on, COALESCE(SUM(amount), 0)::text FROM payments
WHERE tenant_id = $1 AND branch_id = $2 AND paid_on >= $3 AND paid_on < $4 AND `+exclusionFilter+`
GROUP BY paid_on ORDER BY paid_on`, tenantID, branchID, start, end)
	if err != nil {
		return nil, fmt.Errorf("revenue: sum payments by day: %w", err)
	}
	defer rows.Close()
	var out []DaySum
	for rows.Next() {
		var (
			sum DaySum
			raw string
		)
		if err := rows.Scan(&sum.Day, &raw); err != nil {
			return nil, err
		}
		if sum.Total, err = decimal.NewFromString(raw); err != nil {
			return nil, err
		}
		sum.Day = sum.Day.In(time.UTC)
		out = append(out, sum)
	}
	return out, rows.Err()
}
