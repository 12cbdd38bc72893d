package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubledger/clubledger/internal/dates"
	jobmetrics "github.com/clubledger/clubledger/internal/jobs"
	"github.com/clubledger/clubledger/internal/revenue"
)

// RevenueWarmupJob pre-populates revenue report caches for active branches.
type RevenueWarmupJob struct {
	Revenue *revenue.Service
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewRevenueWarmupJob wires dependencies for the warmup handler.
func NewRevenueWarmupJob(revenueSvc *revenue.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *RevenueWarmupJob {
	return &RevenueWarmupJob{
		Revenue: revenueSvc,
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type warmupScope struct {
	TenantID int64
	BranchID int64
}

// Handle processes revenue warmup tasks.
func (j *RevenueWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Revenue == nil {
		return errors.New("revenue warmup: handler not configured")
	}
	var payload RevenueWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskRevenueWarmup)
	return tracker.End(j.run(ctx, payload))
}

func (j *RevenueWarmupJob) run(ctx context.Context, payload RevenueWarmupPayload) error {
	logger := j.logger()
	scopes, err := j.fetchScopes(ctx, payload.TenantID)
	if err != nil {
		logger.Error("load warmup scopes", slog.Any("error", err))
		return err
	}
	if len(scopes) == 0 {
		logger.Info("no branches discovered for warmup")
		return nil
	}

	month := dates.FormatMonth(j.clock())
	warmed := 0
	for _, scope := range scopes {
		if _, err := j.Revenue.MonthlyRevenue(ctx, scope.TenantID, scope.BranchID, month); err != nil {
			logger.Error("warm monthly revenue",
				slog.Int64("tenant_id", scope.TenantID),
				slog.Int64("branch_id", scope.BranchID),
				slog.Any("error", err))
			return err
		}
		if _, err := j.Revenue.PaymentMethodBreakdown(ctx, scope.TenantID, scope.BranchID, month); err != nil {
			logger.Error("warm method breakdown",
				slog.Int64("tenant_id", scope.TenantID),
				slog.Int64("branch_id", scope.BranchID),
				slog.Any("error", err))
			return err
		}
		warmed++
	}
	logger.Info("revenue warmup complete", slog.Int("branches", warmed), slog.String("month", month))
	return nil
}

// fetchScopes discovers (tenant, branch) pairs with ledger activity in the
// last 90 days.
func (j *RevenueWarmupJob) fetchScopes(ctx context.Context, tenantID int64) ([]warmupScope, error) {
	if j.Pool == nil {
		return nil, nil
	}
	since := j.clock().AddDate(0, 0, -90)
	query := `SELECT DISTINCT tenant_id, branch_id FROM payments WHERE paid_on >= $1`
	args := []any{since}
	if tenantID != 0 {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}
	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var scopes []warmupScope
	for rows.Next() {
		var s warmupScope
		if err := rows.Scan(&s.TenantID, &s.BranchID); err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}

func (j *RevenueWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
