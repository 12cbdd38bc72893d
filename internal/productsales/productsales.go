// Package productsales is the read-only aggregation source over the sibling
// product-sales ledger. The rows are written by another service; this
// package only sums them for revenue reports, applying the same
// correction-exclusion rule as the payment ledger.
package productsales

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MethodSum is one payment method's share of product revenue.
type MethodSum struct {
	Method string
	Total  decimal.Decimal
}

// DaySum is one UTC calendar day's product revenue.
type DaySum struct {
	Day   time.Time
	Total decimal.Decimal
}

// Source exposes the sums the revenue engine needs. All intervals are
// half-open [start, end); empty result sets sum to exact zero.
type Source interface {
	SumInRange(ctx context.Context, tenantID, branchID int64, start, end time.Time) (decimal.Decimal, error)
	SumByMethod(ctx context.Context, tenantID, branchID int64, start, end time.Time) ([]MethodSum, error)
	SumByDay(ctx context.Context, tenantID, branchID int64, start, end time.Time) ([]DaySum, error)
}

// Repository provides PostgreSQL backed product-sale sums.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const exclusionFilter = `(is_correction OR NOT is_corrected)`

// SumInRange totals product sales inside [start, end).
func (r *Repository) SumInRange(ctx context.Context, tenantID, branchID int64, start, end time.Time) (decimal.Decimal, error) {
	var total string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0)::text FROM product_sales
WHERE tenant_id = $1 AND branch_id = $2 AND sold_at >= $3 AND sold_at < $4 AND `+exclusionFilter,
		tenantID, branchID, start, end).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("productsales: sum: %w", err)
	}
	return decimal.NewFromString(total)
}

// SumByMethod totals product sales per payment method inside [start, end).
func (r *Repository) SumByMethod(ctx context.Context, tenantID, branchID int64, start, end time.Time) ([]MethodSum, error) {
	rows, err := r.pool.Query(ctx, `SELECT payment_method, COALESCE(SUM(total_amount), 0)::text FROM product_sales
WHERE tenant_id = $1 AND branch_id = $2 AND sold_at >= $3 AND sold_at < $4 AND `+exclusionFilter+`
GROUP BY payment_method`, tenantID, branchID, start, end)
	if err != nil {
		return nil, fmt.Errorf("productsales: sum by method: %w", err)
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

// SumByDay totals product sales per UTC calendar day inside [start, end).
func (r *Repository) SumByDay(ctx context.Context, tenantID, branchID int64, start, end time.Time) ([]DaySum, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc('day', sold_at AT TIME ZONE 'UTC') AS day, COALESCE(SUM(total_amount), 0)::text
FROM product_sales
WHERE tenant_id = $1 AND branch_id = $2 AND sold_at >= $3 AND sold_at < $4 AND `+exclusionFilter+`
GROUP BY day ORDER BY day`, tenantID, branchID, start, end)
	if err != nil {
		return nil, fmt.Errorf("productsales: sum by day: %w", err)
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
		sum.Day = time.Date(sum.Day.Year(), sum.Day.Month(), sum.Day.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, sum)
	}
	return out, rows.Err()
}
