package periods_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clubledger/clubledger/internal/periods"
	"github.com/clubledger/clubledger/internal/shared"
)

type fakeRepo struct {
	nextID int64
	locks  map[string]periods.MonthLock
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, locks: make(map[string]periods.MonthLock)}
}

func key(tenantID, branchID int64, month string) string {
	return fmt.Sprintf("%d:%d:%s", tenantID, branchID, month)
}

func (r *fakeRepo) InsertLock(_ context.Context, lock periods.MonthLock) (*periods.MonthLock, error) {
	k := key(lock.TenantID, lock.BranchID, lock.Month)
	if _, exists := r.locks[k]; exists {
		return nil, periods.ErrAlreadyLocked
	}
	lock.ID = r.nextID
	r.nextID++
	r.locks[k] = lock
	out := lock
	return &out, nil
}

func (r *fakeRepo) DeleteLock(_ context.Context, tenantID, branchID int64, month string) (bool, error) {
	k := key(tenantID, branchID, month)
	if _, exists := r.locks[k]; !exists {
		return false, nil
	}
	delete(r.locks, k)
	return true, nil
}

func (r *fakeRepo) LockExists(_ context.Context, tenantID, branchID int64, month string) (bool, error) {
	_, exists := r.locks[key(tenantID, branchID, month)]
	return exists, nil
}

func (r *fakeRepo) ListLocks(_ context.Context, tenantID, branchID int64) ([]periods.MonthLock, error) {
	var out []periods.MonthLock
	for _, l := range r.locks {
		if l.TenantID == tenantID && l.BranchID == branchID {
			out = append(out, l)
		}
	}
	return out, nil
}

type capturedAudit struct {
	events []shared.AuditEvent
}

func (a *capturedAudit) Record(_ context.Context, ev shared.AuditEvent) error {
	a.events = append(a.events, ev)
	return nil
}

const (
	tenantID = int64(1)
	actorID  = int64(7)
	branchID = int64(10)
)

func TestLockMonth(t *testing.T) {
	audit := &capturedAudit{}
	svc := periods.NewService(newFakeRepo(), audit, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC)
	})
	ctx := context.Background()

	lock, err := svc.Lock(ctx, tenantID, actorID, periods.LockInput{
		BranchID: branchID,
		Month:    "2026-07",
		Note:     "july close",
	})
	require.NoError(t, err)
	require.Equal(t, "2026-07", lock.Month)
	require.Equal(t, actorID, lock.LockedBy)

	locked, err := svc.IsLocked(ctx, tenantID, branchID, "2026-07")
	require.NoError(t, err)
	require.True(t, locked)

	require.Len(t, audit.events, 1)
	require.Equal(t, "revenue_month.locked", audit.events[0].Action)
}

func TestLockMonthTwice(t *testing.T) {
	svc := periods.NewService(newFakeRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Lock(ctx, tenantID, actorID, periods.LockInput{BranchID: branchID, Month: "2026-07"})
	require.NoError(t, err)

	_, err = svc.Lock(ctx, tenantID, actorID, periods.LockInput{BranchID: branchID, Month: "2026-07"})
	require.ErrorIs(t, err, periods.ErrAlreadyLocked)
	require.True(t, shared.IsConflict(err))
}

func TestLockMonthBadFormat(t *testing.T) {
	svc := periods.NewService(newFakeRepo(), nil, nil)

	for _, month := range []string{"2026-7", "2026/07", "", "2026-00"} {
		_, err := svc.Lock(context.Background(), tenantID, actorID, periods.LockInput{BranchID: branchID, Month: month})
		require.ErrorIs(t, err, periods.ErrInvalidMonth, "month %q", month)
	}
}

func TestUnlockMonth(t *testing.T) {
	audit := &capturedAudit{}
	svc := periods.NewService(newFakeRepo(), audit, nil)
	ctx := context.Background()

	_, err := svc.Lock(ctx, tenantID, actorID, periods.LockInput{BranchID: branchID, Month: "2026-07"})
	require.NoError(t, err)

	require.NoError(t, svc.Unlock(ctx, tenantID, actorID, branchID, "2026-07"))

	locked, err := svc.IsLocked(ctx, tenantID, branchID, "2026-07")
	require.NoError(t, err)
	require.False(t, locked)
	require.Equal(t, "revenue_month.unlocked", audit.events[len(audit.events)-1].Action)
}

func TestUnlockAbsentMonth(t *testing.T) {
	svc := periods.NewService(newFakeRepo(), nil, nil)

	err := svc.Unlock(context.Background(), tenantID, actorID, branchID, "2026-07")
	require.ErrorIs(t, err, periods.ErrLockNotFound)
	require.True(t, shared.IsNotFound(err))
}

func TestLocksAreBranchScoped(t *testing.T) {
	svc := periods.NewService(newFakeRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Lock(ctx, tenantID, actorID, periods.LockInput{BranchID: branchID, Month: "2026-07"})
	require.NoError(t, err)

	locked, err := svc.IsLocked(ctx, tenantID, 99, "2026-07")
	require.NoError(t, err)
	require.False(t, locked)

	locks, err := svc.List(ctx, tenantID, branchID)
	require.NoError(t, err)
	require.Len(t, locks, 1)
}
