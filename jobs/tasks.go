// Package jobs defines the background tasks of the service. The ledger core
// itself has no background workers; the only job is report-cache warmup,
// which precomputes the current month's revenue summaries so the first
// dashboard hit after an invalidation stays fast.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRevenueWarmup precomputes revenue report caches.
	TaskRevenueWarmup = "revenue:warmup"
)

// RevenueWarmupPayload narrows a warmup run to one tenant, or all when zero.
type RevenueWarmupPayload struct {
	TenantID int64 `json:"tenantId,omitempty"`
}

// NewRevenueWarmupTask constructs an Asynq task.
func NewRevenueWarmupTask(payload RevenueWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRevenueWarmup, data), nil
}
