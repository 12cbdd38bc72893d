package payments_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/clubledger/clubledger/internal/members"
	"github.com/clubledger/clubledger/internal/payments"
	"github.com/clubledger/clubledger/internal/shared"
)

type fakeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]payments.Payment
	// beforeApply runs inside ApplyCorrection before the version check,
	// used to interleave a competing correction.
	beforeApply func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[uuid.UUID]payments.Payment)}
}

func (r *fakeRepo) InsertPayment(_ context.Context, p payments.Payment) (*payments.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = p
	out := p
	return &out, nil
}

func (r *fakeRepo) GetPayment(_ context.Context, tenantID int64, id uuid.UUID) (*payments.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok || p.TenantID != tenantID {
		return nil, payments.ErrPaymentNotFound
	}
	out := p
	return &out, nil
}

func (r *fakeRepo) ListPayments(_ context.Context, tenantID int64, f payments.ListFilter) ([]payments.Payment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []payments.Payment
	for _, p := range r.rows {
		if p.TenantID != tenantID {
			continue
		}
		if !f.IncludeCorrected && p.IsCorrected {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *fakeRepo) ApplyCorrection(_ context.Context, correcting payments.Payment, originalID uuid.UUID, expectedVersion int) (*payments.Payment, error) {
	if r.beforeApply != nil {
		hook := r.beforeApply
		r.beforeApply = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	original, ok := r.rows[originalID]
	if !ok {
		return nil, payments.ErrPaymentNotFound
	}
	if original.Version != expectedVersion {
		// Insert never happened as far as the caller can tell.
		return nil, payments.ErrVersionConflict
	}
	r.rows[correcting.ID] = correcting
	original.IsCorrected = true
	original.CorrectedPaymentID = &correcting.ID
	original.Version++
	original.UpdatedAt = correcting.CreatedAt
	r.rows[originalID] = original
	out := correcting
	return &out, nil
}

type fakeDirectory struct {
	members map[int64]members.Member
}

func (d *fakeDirectory) GetMember(_ context.Context, tenantID, memberID int64) (*members.Member, error) {
	m, ok := d.members[memberID]
	if !ok || m.TenantID != tenantID {
		return nil, members.ErrMemberNotFound
	}
	out := m
	return &out, nil
}

type fakeLocks struct {
	locked map[string]bool
}

func (l *fakeLocks) IsLocked(_ context.Context, _, _ int64, month string) (bool, error) {
	return l.locked[month], nil
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
	memberID = int64(100)
)

func newTestService(t *testing.T) (*payments.Service, *fakeRepo, *capturedAudit) {
	t.Helper()
	repo := newFakeRepo()
	dir := &fakeDirectory{members: map[int64]members.Member{
		memberID: {ID: memberID, TenantID: tenantID, BranchID: branchID, FullName: "Alice Muller", Active: true},
	}}
	audit := &capturedAudit{}
	svc := payments.NewService(repo, dir, &fakeLocks{locked: map[string]bool{}}, audit, nil, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2026, time.August, 30, 15, 4, 5, 0, time.UTC)
	})
	return svc, repo, audit
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreatePayment(t *testing.T) {
	svc, _, audit := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, tenantID, actorID, payments.CreatePaymentInput{
		MemberID: memberID,
		Amount:   amt("59.90"),
		PaidOn:   time.Date(2026, time.August, 12, 18, 30, 0, 0, time.UTC),
		Method:   payments.MethodCash,
		Note:     "august dues",
	})
	require.NoError(t, err)
	require.Equal(t, branchID, created.BranchID, "branch comes from the member, not the caller")
	require.Equal(t, 0, created.Version)
	require.False(t, created.IsCorrection)
	require.False(t, created.IsCorrected)
	require.Equal(t, time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC), created.PaidOn, "paidOn truncates to midnight UTC")

	require.Len(t, audit.events, 1)
	ev := audit.events[0]
	require.Equal(t, "payment.created", ev.Action)
	require.Equal(t, created.ID.String(), ev.EntityID)
	require.NotContains(t, ev.Meta, "amount")
	require.NotContains(t, ev.Meta, "note")
	require.Equal(t, "2026-08-12", ev.Meta["paid_on"])
}

func TestCreatePaymentValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	base := payments.CreatePaymentInput{
		MemberID: memberID,
		Amount:   amt("10.00"),
		PaidOn:   time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC),
		Method:   payments.MethodCash,
	}

	t.Run("unknown member", func(t *testing.T) {
		in := base
		in.MemberID = 999
		_, err := svc.Create(ctx, tenantID, actorID, in)
		require.ErrorIs(t, err, members.ErrMemberNotFound)
	})

	t.Run("zero amount", func(t *testing.T) {
		in := base
		in.Amount = decimal.Zero
		_, err := svc.Create(ctx, tenantID, actorID, in)
		require.ErrorIs(t, err, payments.ErrAmountNotPositive)
	})

	t.Run("negative amount", func(t *testing.T) {
		in := base
		in.Amount = amt("-4.50")
		_, err := svc.Create(ctx, tenantID, actorID, in)
		require.ErrorIs(t, err, payments.ErrAmountNotPositive)
	})

	t.Run("amount above maximum", func(t *testing.T) {
		in := base
		in.Amount = amt("1000000.00")
		_, err := svc.Create(ctx, tenantID, actorID, in)
		require.ErrorIs(t, err, payments.ErrAmountTooLarge)
	})

	t.Run("too many decimal places", func(t *testing.T) {
		in := base
		in.Amount = amt("10.005")
		_, err := svc.Create(ctx, tenantID, actorID, in)
		require.ErrorIs(t, err, payments.ErrAmountPrecision)
	})

	t.Run("unknown method", func(t *testing.T) {
		in := base
		in.Method = payments.PaymentMethod("CHEQUE")
		_, err := svc.Create(ctx, tenantID, actorID, in)
		require.ErrorIs(t, err, payments.ErrInvalidMethod)
	})

	t.Run("future paidOn", func(t *testing.T) {
		in := base
		in.PaidOn = time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)
		_, err := svc.Create(ctx, tenantID, actorID, in)
		require.ErrorIs(t, err, payments.ErrPaidOnInFuture)
	})

	t.Run("today is allowed", func(t *testing.T) {
		in := base
		in.PaidOn = time.Date(2026, time.August, 30, 23, 59, 0, 0, time.UTC)
		_, err := svc.Create(ctx, tenantID, actorID, in)
		require.NoError(t, err)
	})
}

func TestCreatePaymentLockedMonth(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{members: map[int64]members.Member{
		memberID: {ID: memberID, TenantID: tenantID, BranchID: branchID, Active: true},
	}}
	locks := &fakeLocks{locked: map[string]bool{"2026-07": true}}
	svc := payments.NewService(repo, dir, locks, nil, nil, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	})

	_, err := svc.Create(context.Background(), tenantID, actorID, payments.CreatePaymentInput{
		MemberID: memberID,
		Amount:   amt("10.00"),
		PaidOn:   time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC),
		Method:   payments.MethodCash,
	})
	require.ErrorIs(t, err, payments.ErrMonthLocked)
}

func createSample(t *testing.T, svc *payments.Service) *payments.Payment {
	t.Helper()
	created, err := svc.Create(context.Background(), tenantID, actorID, payments.CreatePaymentInput{
		MemberID: memberID,
		Amount:   amt("100.00"),
		PaidOn:   time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC),
		Method:   payments.MethodCash,
		Note:     "original",
	})
	require.NoError(t, err)
	return created
}

func TestCorrectPayment(t *testing.T) {
	svc, repo, audit := newTestService(t)
	ctx := context.Background()
	original := createSample(t, svc)

	correction, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
		Amount:          payments.Provided(amt("150.00")),
		ExpectedVersion: 0,
	})
	require.NoError(t, err)
	require.True(t, correction.IsCorrection)
	require.True(t, correction.Amount.Equal(amt("150.00")))
	require.Equal(t, original.ID, *correction.CorrectedPaymentID)
	require.Equal(t, original.PaidOn, correction.PaidOn, "unprovided fields fall back to the original")
	require.Equal(t, original.Method, correction.Method)
	require.Equal(t, original.Note, correction.Note)

	stored, err := repo.GetPayment(ctx, tenantID, original.ID)
	require.NoError(t, err)
	require.True(t, stored.IsCorrected)
	require.Equal(t, 1, stored.Version, "version advances exactly once")
	require.Equal(t, correction.ID, *stored.CorrectedPaymentID)

	require.Len(t, audit.events, 2)
	ev := audit.events[1]
	require.Equal(t, "payment.corrected", ev.Action)
	require.Equal(t, original.ID.String(), ev.Meta["corrected_payment_id"])
	require.NotContains(t, ev.Meta, "amount")
	require.NotContains(t, ev.Meta, "note")
}

func TestCorrectPaymentStaleVersion(t *testing.T) {
	svc, _, _ := newTestService(t)
	original := createSample(t, svc)

	_, err := svc.Correct(context.Background(), tenantID, actorID, original.ID, payments.CorrectPaymentInput{
		Amount:          payments.Provided(amt("150.00")),
		ExpectedVersion: 5,
	})
	require.ErrorIs(t, err, payments.ErrVersionConflict)
	require.True(t, shared.IsConflict(err))
}

func TestCorrectPaymentAlreadyCorrected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	original := createSample(t, svc)

	_, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
		Amount:          payments.Provided(amt("150.00")),
		ExpectedVersion: 0,
	})
	require.NoError(t, err)

	_, err = svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
		Amount:          payments.Provided(amt("175.00")),
		ExpectedVersion: 1,
	})
	require.ErrorIs(t, err, payments.ErrAlreadyCorrected)
}

func TestCorrectPaymentOfCorrection(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	original := createSample(t, svc)

	correction, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
		Amount:          payments.Provided(amt("150.00")),
		ExpectedVersion: 0,
	})
	require.NoError(t, err)

	_, err = svc.Correct(ctx, tenantID, actorID, correction.ID, payments.CorrectPaymentInput{
		Amount:          payments.Provided(amt("200.00")),
		ExpectedVersion: 0,
	})
	require.ErrorIs(t, err, payments.ErrNotCorrectable)
}

// A second correction slipping in between the fast version check and the
// conditional update must lose at the conditional update, leaving exactly one
// winner and no orphan correction row.
func TestCorrectPaymentRace(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	original := createSample(t, svc)

	var winner *payments.Payment
	repo.beforeApply = func() {
		w, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
			Amount:          payments.Provided(amt("120.00")),
			ExpectedVersion: 0,
		})
		require.NoError(t, err)
		winner = w
	}

	_, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
		Amount:          payments.Provided(amt("150.00")),
		ExpectedVersion: 0,
	})
	require.ErrorIs(t, err, payments.ErrVersionConflict)
	require.NotNil(t, winner)

	stored, err := repo.GetPayment(ctx, tenantID, original.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.Version, "the competing loser never bumps the version again")
	require.Equal(t, winner.ID, *stored.CorrectedPaymentID)

	rows, _, err := repo.ListPayments(ctx, tenantID, payments.ListFilter{IncludeCorrected: true})
	require.NoError(t, err)
	require.Len(t, rows, 2, "losing correction row is rolled back")
}

func TestCorrectPaymentValidatesOverrides(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	original := createSample(t, svc)

	t.Run("bad amount", func(t *testing.T) {
		_, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
			Amount:          payments.Provided(amt("-1.00")),
			ExpectedVersion: 0,
		})
		require.ErrorIs(t, err, payments.ErrAmountNotPositive)
	})

	t.Run("bad method", func(t *testing.T) {
		_, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
			Method:          payments.Provided(payments.PaymentMethod("IOU")),
			ExpectedVersion: 0,
		})
		require.ErrorIs(t, err, payments.ErrInvalidMethod)
	})

	t.Run("future paidOn", func(t *testing.T) {
		_, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
			PaidOn:          payments.Provided(time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)),
			ExpectedVersion: 0,
		})
		require.ErrorIs(t, err, payments.ErrPaidOnInFuture)
	})

	t.Run("unknown payment", func(t *testing.T) {
		_, err := svc.Correct(ctx, tenantID, actorID, uuid.New(), payments.CorrectPaymentInput{
			ExpectedVersion: 0,
		})
		require.ErrorIs(t, err, payments.ErrPaymentNotFound)
	})
}

func TestListPaymentsExcludesCorrected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	original := createSample(t, svc)

	_, err := svc.Correct(ctx, tenantID, actorID, original.ID, payments.CorrectPaymentInput{
		Amount:          payments.Provided(amt("150.00")),
		ExpectedVersion: 0,
	})
	require.NoError(t, err)

	rows, page, err := svc.List(ctx, tenantID, payments.ListFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].IsCorrection)
	require.Equal(t, 1, page.Total)

	rows, _, err = svc.List(ctx, tenantID, payments.ListFilter{IncludeCorrected: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
