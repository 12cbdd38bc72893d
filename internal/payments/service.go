package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubledger/clubledger/internal/dates"
	"github.com/clubledger/clubledger/internal/members"
	"github.com/clubledger/clubledger/internal/money"
	"github.com/clubledger/clubledger/internal/shared"
)

// RepositoryPort defines data access methods for the ledger.
type RepositoryPort interface {
	InsertPayment(ctx context.Context, p Payment) (*Payment, error)
	GetPayment(ctx context.Context, tenantID int64, id uuid.UUID) (*Payment, error)
	ListPayments(ctx context.Context, tenantID int64, f ListFilter) ([]Payment, int, error)
	// ApplyCorrection atomically inserts the correcting row and flips the
	// original with `SET is_corrected=true, corrected_payment_id=$new,
	// version=version+1 WHERE id=$orig AND version=$expected`. When the
	// conditional update touches zero rows the whole unit rolls back,
	// including the insert, and ErrVersionConflict is returned.
	ApplyCorrection(ctx context.Context, correcting Payment, originalID uuid.UUID, expectedVersion int) (*Payment, error)
}

// LockChecker reports whether a revenue month is closed for a branch.
type LockChecker interface {
	IsLocked(ctx context.Context, tenantID, branchID int64, month string) (bool, error)
}

// AuditRecorder is the slice of the audit logger the service uses.
type AuditRecorder interface {
	Record(ctx context.Context, ev shared.AuditEvent) error
}

// Invalidator drops cached revenue reports after a successful write.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID, branchID int64) error
}

// MetricsRecorder counts ledger outcomes.
type MetricsRecorder interface {
	PaymentCreated(method string)
	PaymentCorrected()
	CorrectionConflict()
}

// Service handles ledger business logic.
type Service struct {
	repo       RepositoryPort
	members    members.Directory
	locks      LockChecker
	audit      AuditRecorder
	invalidate Invalidator
	metrics    MetricsRecorder
	now        func() time.Time
}

// NewService builds a Service instance. Locks, audit, invalidate, and
// metrics may be nil; the corresponding side effects are then skipped.
func NewService(repo RepositoryPort, dir members.Directory, locks LockChecker, audit AuditRecorder, invalidate Invalidator, metrics MetricsRecorder) *Service {
	return &Service{
		repo:       repo,
		members:    dir,
		locks:      locks,
		audit:      audit,
		invalidate: invalidate,
		metrics:    metrics,
		now:        time.Now,
	}
}

// WithNow overrides the clock for deterministic tests. The tenant clock is
// currently UTC; swapping it never changes the day-truncation rule.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and persists a new payment for the tenant.
func (s *Service) Create(ctx context.Context, tenantID, actorID int64, in CreatePaymentInput) (*Payment, error) {
	member, err := s.members.GetMember(ctx, tenantID, in.MemberID)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	paidOn, err := s.normalisePaidOn(in.PaidOn)
	if err != nil {
		return nil, err
	}
	if err := s.checkMonthOpen(ctx, tenantID, member.BranchID, paidOn); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.repo.InsertPayment(ctx, Payment{
		ID:        uuid.New(),
		TenantID:  tenantID,
		BranchID:  member.BranchID,
		MemberID:  member.ID,
		Amount:    in.Amount,
		PaidOn:    paidOn,
		Method:    in.Method,
		Note:      in.Note,
		Version:   0,
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, tenantID, actorID, "payment.created", created, nil)
	if s.metrics != nil {
		s.metrics.PaymentCreated(string(created.Method))
	}
	s.invalidateReports(ctx, tenantID, created.BranchID)
	return created, nil
}

// Correct supersedes an existing payment under optimistic concurrency. The
// version is checked twice: once on the loaded row to fail fast on stale
// clients, and once via the conditional update inside the transaction, which
// is the authoritative gate.
func (s *Service) Correct(ctx context.Context, tenantID, actorID int64, originalID uuid.UUID, in CorrectPaymentInput) (*Payment, error) {
	original, err := s.repo.GetPayment(ctx, tenantID, originalID)
	if err != nil {
		return nil, err
	}
	if original.IsCorrection {
		return nil, ErrNotCorrectable
	}
	if original.IsCorrected {
		return nil, ErrAlreadyCorrected
	}
	if original.Version != in.ExpectedVersion {
		if s.metrics != nil {
			s.metrics.CorrectionConflict()
		}
		return nil, ErrVersionConflict
	}

	amount := in.Amount.Or(original.Amount)
	if in.Amount.IsProvided() {
		if err := validateAmount(amount); err != nil {
			return nil, err
		}
	}
	method := in.Method.Or(original.Method)
	if in.Method.IsProvided() && !method.Valid() {
		return nil, ErrInvalidMethod
	}
	paidOn := original.PaidOn
	if in.PaidOn.IsProvided() {
		paidOn, err = s.normalisePaidOn(in.PaidOn.Or(original.PaidOn))
		if err != nil {
			return nil, err
		}
	}
	if err := s.checkMonthOpen(ctx, tenantID, original.BranchID, paidOn); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	correcting := Payment{
		ID:                 uuid.New(),
		TenantID:           original.TenantID,
		BranchID:           original.BranchID,
		MemberID:           original.MemberID,
		Amount:             amount,
		PaidOn:             paidOn,
		Method:             method,
		Note:               in.Note.Or(original.Note),
		IsCorrection:       true,
		CorrectedPaymentID: &original.ID,
		Version:            0,
		CreatedBy:          actorID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	created, err := s.repo.ApplyCorrection(ctx, correcting, original.ID, in.ExpectedVersion)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) && s.metrics != nil {
			s.metrics.CorrectionConflict()
		}
		return nil, err
	}

	s.recordAudit(ctx, tenantID, actorID, "payment.corrected", created, &original.ID)
	if s.metrics != nil {
		s.metrics.PaymentCorrected()
	}
	s.invalidateReports(ctx, tenantID, created.BranchID)
	return created, nil
}

// Get loads a payment scoped to the tenant.
func (s *Service) Get(ctx context.Context, tenantID int64, id uuid.UUID) (*Payment, error) {
	return s.repo.GetPayment(ctx, tenantID, id)
}

// List returns a page of payments matching the filter plus pagination
// metadata.
func (s *Service) List(ctx context.Context, tenantID int64, f ListFilter) ([]Payment, shared.Pagination, error) {
	f.Page, f.PerPage = shared.NormalisePage(f.Page, f.PerPage)
	rows, total, err := s.repo.ListPayments(ctx, tenantID, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(f.Page, f.PerPage, total), nil
}

func validateAmount(amount decimal.Decimal) error {
	switch err := money.ValidateAmount(amount); {
	case err == nil:
		return nil
	case errors.Is(err, money.ErrAmountNotPositive):
		return ErrAmountNotPositive
	case errors.Is(err, money.ErrAmountTooLarge):
		return ErrAmountTooLarge
	case errors.Is(err, money.ErrAmountPrecision):
		return ErrAmountPrecision
	default:
		return ErrAmountInvalid
	}
}

// normalisePaidOn rejects future dates, comparing calendar days only, then
// truncates to midnight UTC.
func (s *Service) normalisePaidOn(paidOn time.Time) (time.Time, error) {
	day := dates.TruncateToDay(paidOn)
	today := dates.TruncateToDay(s.now())
	if day.After(today) {
		return time.Time{}, ErrPaidOnInFuture
	}
	return day, nil
}

func (s *Service) checkMonthOpen(ctx context.Context, tenantID, branchID int64, paidOn time.Time) error {
	if s.locks == nil {
		return nil
	}
	locked, err := s.locks.IsLocked(ctx, tenantID, branchID, dates.FormatMonth(paidOn))
	if err != nil {
		return err
	}
	if locked {
		return ErrMonthLocked
	}
	return nil
}

// recordAudit emits the structured audit event. Amount and note are
// deliberately absent from meta; only identifiers and the method travel into
// the audit trail.
func (s *Service) recordAudit(ctx context.Context, tenantID, actorID int64, action string, p *Payment, originalID *uuid.UUID) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"branch_id":      p.BranchID,
		"member_id":      p.MemberID,
		"payment_method": string(p.Method),
		"paid_on":        p.PaidOn.Format("2006-01-02"),
	}
	if originalID != nil {
		meta["corrected_payment_id"] = originalID.String()
	}
	_ = s.audit.Record(ctx, shared.AuditEvent{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "payment",
		EntityID: p.ID.String(),
		Meta:     meta,
	})
}

func (s *Service) invalidateReports(ctx context.Context, tenantID, branchID int64) {
	if s.invalidate != nil {
		_ = s.invalidate.Invalidate(ctx, tenantID, branchID)
	}
}
