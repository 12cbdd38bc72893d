package revenue

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubledger/clubledger/internal/platform/httpx"
	"github.com/clubledger/clubledger/internal/shared"
)

// Handler binds revenue reports onto /api/v1/revenue.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/monthly", h.monthly)
	r.Get("/trend", h.trend)
	r.Get("/daily", h.daily)
	r.Get("/methods", h.methods)
	r.Get("/weekly", h.weekly)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	tenantID, branchID, ok := h.scope(w, r)
	if !ok {
		return
	}
	summary, err := h.service.MonthlyRevenue(r.Context(), tenantID, branchID, r.URL.Query().Get("month"))
	if err != nil {
		h.respondErr(w, "monthly revenue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	tenantID, branchID, ok := h.scope(w, r)
	if !ok {
		return
	}
	monthsBack, _ := strconv.Atoi(r.URL.Query().Get("monthsBack"))
	entries, err := h.service.RevenueTrend(r.Context(), tenantID, branchID, monthsBack)
	if err != nil {
		h.respondErr(w, "revenue trend", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	tenantID, branchID, ok := h.scope(w, r)
	if !ok {
		return
	}
	entries, err := h.service.DailyBreakdown(r.Context(), tenantID, branchID, r.URL.Query().Get("month"))
	if err != nil {
		h.respondErr(w, "daily breakdown", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) methods(w http.ResponseWriter, r *http.Request) {
	tenantID, branchID, ok := h.scope(w, r)
	if !ok {
		return
	}
	breakdown, err := h.service.PaymentMethodBreakdown(r.Context(), tenantID, branchID, r.URL.Query().Get("month"))
	if err != nil {
		h.respondErr(w, "method breakdown", err)
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}

func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	tenantID, branchID, ok := h.scope(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := time.ParseInLocation("2006-01-02", q.Get("from"), time.UTC)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_from", "from must be a date (YYYY-MM-DD)")
		return
	}
	to, err := time.ParseInLocation("2006-01-02", q.Get("to"), time.UTC)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_to", "to must be a date (YYYY-MM-DD)")
		return
	}
	entries, err := h.service.WeeklyBreakdown(r.Context(), tenantID, branchID, from, to)
	if err != nil {
		h.respondErr(w, "weekly breakdown", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (tenantID, branchID int64, ok bool) {
	tenantID = shared.TenantFromContext(r.Context())
	branchID, err := strconv.ParseInt(r.URL.Query().Get("branchId"), 10, 64)
	if err != nil || branchID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_branch_id", "branchId is required")
		return 0, 0, false
	}
	return tenantID, branchID, true
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
