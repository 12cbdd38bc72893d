package periods

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clubledger/clubledger/internal/platform/httpx"
	"github.com/clubledger/clubledger/internal/shared"
)

// Handler binds month-lock management onto /api/v1/revenue/locks.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers month-lock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listLocks)
	r.Post("/", h.lockMonth)
	r.Delete("/{branchID}/{month}", h.unlockMonth)
}

type lockMonthRequest struct {
	BranchID int64  `json:"branchId" validate:"required,gt=0"`
	Month    string `json:"month" validate:"required"`
	Note     string `json:"note" validate:"max=500"`
}

func (h *Handler) lockMonth(w http.ResponseWriter, r *http.Request) {
	var req lockMonthRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_json", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "validation_failed", err.Error())
		return
	}
	lock, err := h.service.Lock(r.Context(), shared.TenantFromContext(r.Context()), shared.ActorFromContext(r.Context()), LockInput{
		BranchID: req.BranchID,
		Month:    req.Month,
		Note:     req.Note,
	})
	if err != nil {
		if shared.KindOf(err) == shared.KindInternal {
			h.logger.Error("lock month", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lock)
}

func (h *Handler) unlockMonth(w http.ResponseWriter, r *http.Request) {
	branchID, err := strconv.ParseInt(chi.URLParam(r, "branchID"), 10, 64)
	if err != nil || branchID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_branch_id", "branchID must be a positive integer")
		return
	}
	month := chi.URLParam(r, "month")
	err = h.service.Unlock(r.Context(), shared.TenantFromContext(r.Context()), shared.ActorFromContext(r.Context()), branchID, month)
	if err != nil {
		if shared.KindOf(err) == shared.KindInternal {
			h.logger.Error("unlock month", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listLocks(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branchId"), 10, 64)
	if branchID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_branch_id", "branchId is required")
		return
	}
	locks, err := h.service.List(r.Context(), shared.TenantFromContext(r.Context()), branchID)
	if err != nil {
		h.logger.Error("list locks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if locks == nil {
		locks = []MonthLock{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": locks})
}
