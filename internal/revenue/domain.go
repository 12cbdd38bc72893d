// Package revenue derives reports from the payment ledger and the sibling
// product-sales ledger. Every aggregate applies the correction-exclusion
// rule (include a row when is_correction OR NOT is_corrected) so a
// superseded original and its correction never sum together, and every
// empty bucket resolves to exact zero rather than absence.
package revenue

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubledger/clubledger/internal/shared"
)

// MonthlySummary is the revenue of one calendar month for one branch.
type MonthlySummary struct {
	Month             string          `json:"month"`
	MembershipRevenue decimal.Decimal `json:"membershipRevenue"`
	ProductRevenue    decimal.Decimal `json:"productRevenue"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	Locked            bool            `json:"locked"`
}

// DailyRevenue is one calendar day's revenue inside a month breakdown.
type DailyRevenue struct {
	Date              time.Time       `json:"date"`
	MembershipRevenue decimal.Decimal `json:"membershipRevenue"`
	ProductRevenue    decimal.Decimal `json:"productRevenue"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
}

// WeeklyRevenue is one Monday-keyed week's revenue.
type WeeklyRevenue struct {
	WeekStart         time.Time       `json:"weekStart"`
	MembershipRevenue decimal.Decimal `json:"membershipRevenue"`
	ProductRevenue    decimal.Decimal `json:"productRevenue"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
}

// MethodTotal is one payment method's revenue share.
type MethodTotal struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
}

// MethodBreakdown splits a month's revenue by payment method on both
// ledgers. Every known method appears, zero when unused.
type MethodBreakdown struct {
	Month                string        `json:"month"`
	MembershipByMethod   []MethodTotal `json:"membershipByMethod"`
	ProductSalesByMethod []MethodTotal `json:"productSalesByMethod"`
}

// TrendMaxMonths caps how far back a trend query may walk.
const TrendMaxMonths = 24

// Report failure modes.
var (
	ErrInvalidMonth = shared.BadRequest("invalid_month", "month must be formatted as YYYY-MM")
	ErrInvalidRange = shared.BadRequest("invalid_range", "from must precede to")
)
