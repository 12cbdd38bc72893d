// Package payments implements the tenant-scoped payment ledger: immutable
// payment rows, the optimistically-concurrent correction protocol, and the
// listing surface. Revenue reporting over these rows lives in
// internal/revenue.
package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubledger/clubledger/internal/shared"
)

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodDebitCard    PaymentMethod = "DEBIT_CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodOnline       PaymentMethod = "ONLINE"
)

// AllMethods lists every accepted payment method; reports zero-fill against
// this set.
var AllMethods = []PaymentMethod{
	MethodCash,
	MethodCreditCard,
	MethodDebitCard,
	MethodBankTransfer,
	MethodOnline,
}

// Valid reports whether m is one of the accepted methods.
func (m PaymentMethod) Valid() bool {
	for _, known := range AllMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Payment is a ledger row. The monetary fields are immutable once created;
// only the correction-tracking fields (IsCorrected, CorrectedPaymentID,
// Version, UpdatedAt) change afterwards, and each of them exactly once.
type Payment struct {
	ID       uuid.UUID
	TenantID int64
	BranchID int64
	MemberID int64
	Amount   decimal.Decimal
	// PaidOn is date-only: always midnight UTC of the calendar day.
	PaidOn time.Time
	Method PaymentMethod
	Note   string
	// IsCorrection marks a row that exists to supersede another row.
	IsCorrection bool
	// CorrectedPaymentID links the two-node chain in both directions: on a
	// correction it points at the original, on a corrected original it
	// points at the correction.
	CorrectedPaymentID *uuid.UUID
	// IsCorrected is set on an original exactly once, together with the
	// version bump that serves as the optimistic-concurrency token.
	IsCorrected bool
	Version     int
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreatePaymentInput carries the caller-supplied fields for a new payment.
// The branch is never supplied; it is copied from the member at creation.
type CreatePaymentInput struct {
	MemberID int64
	Amount   decimal.Decimal
	PaidOn   time.Time
	Method   PaymentMethod
	Note     string
}

// Patch is an explicit override-or-fallback field for corrections. The zero
// value means "use the original's value"; Provided wraps an override. This
// keeps "not supplied" distinguishable from a deliberate zero.
type Patch[T any] struct {
	value    T
	provided bool
}

// Provided wraps an explicit override value.
func Provided[T any](v T) Patch[T] {
	return Patch[T]{value: v, provided: true}
}

// IsProvided reports whether the patch carries an override.
func (p Patch[T]) IsProvided() bool { return p.provided }

// Or returns the override when provided, fallback otherwise.
func (p Patch[T]) Or(fallback T) T {
	if p.provided {
		return p.value
	}
	return fallback
}

// CorrectPaymentInput describes a correction: per-field overrides plus the
// version token the client last observed on the original.
type CorrectPaymentInput struct {
	Amount          Patch[decimal.Decimal]
	PaidOn          Patch[time.Time]
	Method          Patch[PaymentMethod]
	Note            Patch[string]
	ExpectedVersion int
}

// ListFilter narrows and pages a payment listing. Superseded originals are
// excluded unless IncludeCorrected is set.
type ListFilter struct {
	BranchID         int64
	MemberID         int64
	Method           PaymentMethod
	From             time.Time
	To               time.Time
	IncludeCorrected bool
	Page             int
	PerPage          int
}

// User-visible failure modes of the ledger.
var (
	ErrPaymentNotFound   = shared.NotFound("payment_not_found", "payment not found")
	ErrAmountNotPositive = shared.BadRequest("amount_not_positive", "amount must be greater than zero")
	ErrAmountTooLarge    = shared.BadRequest("amount_exceeds_max", "amount may not exceed 999999.99")
	ErrAmountPrecision   = shared.BadRequest("amount_precision", "amount may carry at most 2 decimal places")
	ErrAmountInvalid     = shared.BadRequest("amount_invalid", "amount is not a valid decimal number")
	ErrInvalidMethod     = shared.BadRequest("invalid_payment_method", "payment method is not recognised")
	ErrPaidOnInFuture    = shared.BadRequest("paid_on_in_future", "paidOn may not be a future date")
	ErrAlreadyCorrected  = shared.BadRequest("already_corrected", "payment has already been corrected")
	ErrNotCorrectable    = shared.BadRequest("cannot_correct_correction", "a correction cannot itself be corrected")
	ErrVersionConflict   = shared.Conflict("version_conflict", "payment was modified by another request")
	ErrMonthLocked       = shared.BadRequest("month_locked", "revenue month is locked for this branch")
)
