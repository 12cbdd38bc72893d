package revenue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/clubledger/clubledger/internal/dates"
	"github.com/clubledger/clubledger/internal/payments"
	"github.com/clubledger/clubledger/internal/productsales"
)

// MethodSum is one payment method's ledger total inside a range.
type MethodSum struct {
	Method string
	Total  decimal.Decimal
}

// DaySum is one UTC calendar day's ledger total inside a range.
type DaySum struct {
	Day   time.Time
	Total decimal.Decimal
}

// LedgerStore reads payment sums. All intervals are half-open [start, end)
// and every query carries the correction-exclusion rule.
type LedgerStore interface {
	SumInRange(ctx context.Context, tenantID, branchID int64, start, end time.Time) (decimal.Decimal, error)
	SumByMethod(ctx context.Context, tenantID, branchID int64, start, end time.Time) ([]MethodSum, error)
	SumByDay(ctx context.Context, tenantID, branchID int64, start, end time.Time) ([]DaySum, error)
}

// LockChecker reports whether a revenue month is closed for a branch.
type LockChecker interface {
	IsLocked(ctx context.Context, tenantID, branchID int64, month string) (bool, error)
}

// Service computes revenue reports. All methods are pure reads: no locks are
// taken and a report concurrent with an in-flight correction may see either
// committed state for that row, but never both halves of the pair.
type Service struct {
	ledger   LedgerStore
	products productsales.Source
	locks    LockChecker
	cache    *Cache
	now      func() time.Time
}

// NewService wires the report stores with an optional cache.
func NewService(ledger LedgerStore, products productsales.Source, locks LockChecker, cache *Cache) *Service {
	return &Service{
		ledger:   ledger,
		products: products,
		locks:    locks,
		cache:    cache,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// MonthlyRevenue sums both ledgers over the month's half-open range and
// annotates the month-lock state.
func (s *Service) MonthlyRevenue(ctx context.Context, tenantID, branchID int64, month string) (MonthlySummary, error) {
	start, err := dates.ParseMonth(month)
	if err != nil {
		return MonthlySummary{}, ErrInvalidMonth
	}
	var summary MonthlySummary
	err = s.cache.FetchJSON(ctx, tenantID, branchID, "monthly:"+month, &summary, func(ctx context.Context) (any, error) {
		return s.computeMonthly(ctx, tenantID, branchID, start)
	})
	return summary, err
}

func (s *Service) computeMonthly(ctx context.Context, tenantID, branchID int64, monthStart time.Time) (MonthlySummary, error) {
	start, end := dates.MonthRange(monthStart)
	membership, err := s.ledger.SumInRange(ctx, tenantID, branchID, start, end)
	if err != nil {
		return MonthlySummary{}, err
	}
	product, err := s.products.SumInRange(ctx, tenantID, branchID, start, end)
	if err != nil {
		return MonthlySummary{}, err
	}
	month := dates.FormatMonth(start)
	locked, err := s.locks.IsLocked(ctx, tenantID, branchID, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	return MonthlySummary{
		Month:             month,
		MembershipRevenue: membership,
		ProductRevenue:    product,
		TotalRevenue:      membership.Add(product),
		Locked:            locked,
	}, nil
}

// RevenueTrend returns one summary per month, ascending, ending at the
// current month and reaching back monthsBack months in total (clamped to
// TrendMaxMonths). Months are computed concurrently; order is restored by
// index.
func (s *Service) RevenueTrend(ctx context.Context, tenantID, branchID int64, monthsBack int) ([]MonthlySummary, error) {
	if monthsBack < 1 {
		monthsBack = 1
	}
	if monthsBack > TrendMaxMonths {
		monthsBack = TrendMaxMonths
	}
	current, _ := dates.MonthRange(s.now().UTC())
	out := make([]MonthlySummary, monthsBack)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < monthsBack; i++ {
		g.Go(func() error {
			monthStart := current.AddDate(0, i-(monthsBack-1), 0)
			summary, err := s.MonthlyRevenue(gctx, tenantID, branchID, dates.FormatMonth(monthStart))
			if err != nil {
				return err
			}
			out[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DailyBreakdown returns exactly one entry per calendar day of the month,
// zero-filled for days without transactions.
func (s *Service) DailyBreakdown(ctx context.Context, tenantID, branchID int64, month string) ([]DailyRevenue, error) {
	monthStart, err := dates.ParseMonth(month)
	if err != nil {
		return nil, ErrInvalidMonth
	}
	var out []DailyRevenue
	err = s.cache.FetchJSON(ctx, tenantID, branchID, "daily:"+month, &out, func(ctx context.Context) (any, error) {
		return s.computeDaily(ctx, tenantID, branchID, monthStart)
	})
	return out, err
}

func (s *Service) computeDaily(ctx context.Context, tenantID, branchID int64, monthStart time.Time) ([]DailyRevenue, error) {
	start, end := dates.MonthRange(monthStart)
	ledgerDays, err := s.ledger.SumByDay(ctx, tenantID, branchID, start, end)
	if err != nil {
		return nil, err
	}
	productDays, err := s.products.SumByDay(ctx, tenantID, branchID, start, end)
	if err != nil {
		return nil, err
	}

	membership := make(map[time.Time]decimal.Decimal, len(ledgerDays))
	for _, d := range ledgerDays {
		membership[dates.TruncateToDay(d.Day)] = d.Total
	}
	product := make(map[time.Time]decimal.Decimal, len(productDays))
	for _, d := range productDays {
		product[dates.TruncateToDay(d.Day)] = d.Total
	}

	days := dates.DaysInMonth(start)
	out := make([]DailyRevenue, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		m := orZero(membership[day])
		p := orZero(product[day])
		out = append(out, DailyRevenue{
			Date:              day,
			MembershipRevenue: m,
			ProductRevenue:    p,
			TotalRevenue:      m.Add(p),
		})
	}
	return out, nil
}

// PaymentMethodBreakdown groups both ledgers by payment method over one
// month; every known method is present, zero when unused.
func (s *Service) PaymentMethodBreakdown(ctx context.Context, tenantID, branchID int64, month string) (MethodBreakdown, error) {
	monthStart, err := dates.ParseMonth(month)
	if err != nil {
		return MethodBreakdown{}, ErrInvalidMonth
	}
	var out MethodBreakdown
	err = s.cache.FetchJSON(ctx, tenantID, branchID, "methods:"+month, &out, func(ctx context.Context) (any, error) {
		return s.computeMethods(ctx, tenantID, branchID, monthStart)
	})
	return out, err
}

func (s *Service) computeMethods(ctx context.Context, tenantID, branchID int64, monthStart time.Time) (MethodBreakdown, error) {
	start, end := dates.MonthRange(monthStart)
	ledgerSums, err := s.ledger.SumByMethod(ctx, tenantID, branchID, start, end)
	if err != nil {
		return MethodBreakdown{}, err
	}
	productSums, err := s.products.SumByMethod(ctx, tenantID, branchID, start, end)
	if err != nil {
		return MethodBreakdown{}, err
	}

	byMethod := make(map[string]decimal.Decimal, len(ledgerSums))
	for _, m := range ledgerSums {
		byMethod[m.Method] = m.Total
	}
	productByMethod := make(map[string]decimal.Decimal, len(productSums))
	for _, m := range productSums {
		productByMethod[m.Method] = m.Total
	}

	out := MethodBreakdown{Month: dates.FormatMonth(start)}
	for _, method := range payments.AllMethods {
		out.MembershipByMethod = append(out.MembershipByMethod, MethodTotal{
			Method: string(method),
			Total:  orZero(byMethod[string(method)]),
		})
		out.ProductSalesByMethod = append(out.ProductSalesByMethod, MethodTotal{
			Method: string(method),
			Total:  orZero(productByMethod[string(method)]),
		})
	}
	return out, nil
}

// WeeklyBreakdown buckets [from, to) into Monday-keyed weeks, zero-filled
// for weeks without transactions.
func (s *Service) WeeklyBreakdown(ctx context.Context, tenantID, branchID int64, from, to time.Time) ([]WeeklyRevenue, error) {
	from = dates.TruncateToDay(from)
	to = dates.TruncateToDay(to)
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}
	ledgerDays, err := s.ledger.SumByDay(ctx, tenantID, branchID, from, to)
	if err != nil {
		return nil, err
	}
	productDays, err := s.products.SumByDay(ctx, tenantID, branchID, from, to)
	if err != nil {
		return nil, err
	}

	membership := make(map[time.Time]decimal.Decimal)
	for _, d := range ledgerDays {
		week := dates.WeekStart(d.Day)
		membership[week] = orZero(membership[week]).Add(d.Total)
	}
	product := make(map[time.Time]decimal.Decimal)
	for _, d := range productDays {
		week := dates.WeekStart(d.Day)
		product[week] = orZero(product[week]).Add(d.Total)
	}

	firstWeek := dates.WeekStart(from)
	lastWeek := dates.WeekStart(to.AddDate(0, 0, -1))
	var out []WeeklyRevenue
	for week := firstWeek; !week.After(lastWeek); week = week.AddDate(0, 0, 7) {
		m := orZero(membership[week])
		p := orZero(product[week])
		out = append(out, WeeklyRevenue{
			WeekStart:         week,
			MembershipRevenue: m,
			ProductRevenue:    p,
			TotalRevenue:      m.Add(p),
		})
	}
	return out, nil
}

// orZero normalises a map miss (zero-value decimal) to canonical zero.
func orZero(d decimal.Decimal) decimal.Decimal {
	return d.Add(decimal.Zero)
}
