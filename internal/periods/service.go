package periods

import (
	"context"
	"strconv"
	"time"

	"github.com/clubledger/clubledger/internal/dates"
	"github.com/clubledger/clubledger/internal/shared"
)

// RepositoryPort defines data access methods for month locks.
type RepositoryPort interface {
	InsertLock(ctx context.Context, lock MonthLock) (*MonthLock, error)
	DeleteLock(ctx context.Context, tenantID, branchID int64, month string) (bool, error)
	LockExists(ctx context.Context, tenantID, branchID int64, month string) (bool, error)
	ListLocks(ctx context.Context, tenantID, branchID int64) ([]MonthLock, error)
}

// AuditRecorder is the slice of the audit logger the service uses.
type AuditRecorder interface {
	Record(ctx context.Context, ev shared.AuditEvent) error
}

// Invalidator drops cached revenue reports after a lock state change.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID, branchID int64) error
}

// Service handles month lock lifecycle.
type Service struct {
	repo       RepositoryPort
	audit      AuditRecorder
	invalidate Invalidator
	now        func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit AuditRecorder, invalidate Invalidator) *Service {
	return &Service{repo: repo, audit: audit, invalidate: invalidate, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Lock closes a revenue month for one branch.
func (s *Service) Lock(ctx context.Context, tenantID, actorID int64, in LockInput) (*MonthLock, error) {
	if _, err := dates.ParseMonth(in.Month); err != nil {
		return nil, ErrInvalidMonth
	}
	lock, err := s.repo.InsertLock(ctx, MonthLock{
		TenantID: tenantID,
		BranchID: in.BranchID,
		Month:    in.Month,
		LockedBy: actorID,
		LockedAt: s.now().UTC(),
		Note:     in.Note,
	})
	if err != nil {
		return nil, err
	}
	s.afterChange(ctx, tenantID, actorID, in.BranchID, in.Month, "revenue_month.locked", lock.ID)
	return lock, nil
}

// Unlock reopens a revenue month for one branch.
func (s *Service) Unlock(ctx context.Context, tenantID, actorID, branchID int64, month string) error {
	if _, err := dates.ParseMonth(month); err != nil {
		return ErrInvalidMonth
	}
	deleted, err := s.repo.DeleteLock(ctx, tenantID, branchID, month)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrLockNotFound
	}
	s.afterChange(ctx, tenantID, actorID, branchID, month, "revenue_month.unlocked", 0)
	return nil
}

// IsLocked reports whether the month is closed for the branch.
func (s *Service) IsLocked(ctx context.Context, tenantID, branchID int64, month string) (bool, error) {
	if _, err := dates.ParseMonth(month); err != nil {
		return false, ErrInvalidMonth
	}
	return s.repo.LockExists(ctx, tenantID, branchID, month)
}

// List returns the locks held by a branch, newest month first.
func (s *Service) List(ctx context.Context, tenantID, branchID int64) ([]MonthLock, error) {
	return s.repo.ListLocks(ctx, tenantID, branchID)
}

func (s *Service) afterChange(ctx context.Context, tenantID, actorID, branchID int64, month, action string, lockID int64) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditEvent{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   action,
			Entity:   "revenue_month_lock",
			EntityID: strconv.FormatInt(branchID, 10) + ":" + month,
			Meta: map[string]any{
				"branch_id": branchID,
				"month":     month,
				"lock_id":   lockID,
			},
		})
	}
	if s.invalidate != nil {
		_ = s.invalidate.Invalidate(ctx, tenantID, branchID)
	}
}
