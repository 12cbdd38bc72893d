// Package periods manages revenue month locks. A lock on
// (tenant, branch, month) marks the accounting period as closed: the ledger
// write path rejects payments dated inside it and every revenue report
// surfaces the locked flag.
package periods

import (
	"time"

	"github.com/clubledger/clubledger/internal/shared"
)

// MonthLock marks a closed accounting month for one branch of a tenant.
type MonthLock struct {
	ID       int64     `json:"id"`
	TenantID int64     `json:"tenantId"`
	BranchID int64     `json:"branchId"`
	Month    string    `json:"month"`
	LockedBy int64     `json:"lockedBy"`
	LockedAt time.Time `json:"lockedAt"`
	Note     string    `json:"note,omitempty"`
}

// Lock failure modes.
var (
	ErrInvalidMonth  = shared.BadRequest("invalid_month", "month must be formatted as YYYY-MM")
	ErrAlreadyLocked = shared.Conflict("month_already_locked", "revenue month is already locked")
	ErrLockNotFound  = shared.NotFound("month_lock_not_found", "revenue month lock not found")
)

// LockInput bundles parameters for closing a month.
type LockInput struct {
	BranchID int64
	Month    string
	Note     string
}
