package payments

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clubledger/clubledger/internal/money"
	"github.com/clubledger/clubledger/internal/platform/httpx"
	"github.com/clubledger/clubledger/internal/shared"
)

// Handler binds ledger operations onto /api/v1/payments.
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

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createPayment)
	r.Get("/", h.listPayments)
	r.Get("/{id}", h.getPayment)
	r.Post("/{id}/correct", h.correctPayment)
}

type createPaymentRequest struct {
	MemberID      int64  `json:"memberId" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	PaidOn        string `json:"paidOn" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	Note          string `json:"note" validate:"max=500"`
}

type correctPaymentRequest struct {
	Amount          *string `json:"amount"`
	PaidOn          *string `json:"paidOn"`
	PaymentMethod   *string `json:"paymentMethod"`
	Note            *string `json:"note" validate:"omitempty,max=500"`
	ExpectedVersion *int    `json:"expectedVersion" validate:"required"`
}

type paymentResponse struct {
	ID                 string  `json:"id"`
	TenantID           int64   `json:"tenantId"`
	BranchID           int64   `json:"branchId"`
	MemberID           int64   `json:"memberId"`
	Amount             string  `json:"amount"`
	PaidOn             string  `json:"paidOn"`
	PaymentMethod      string  `json:"paymentMethod"`
	Note               string  `json:"note,omitempty"`
	IsCorrection       bool    `json:"isCorrection"`
	CorrectedPaymentID *string `json:"correctedPaymentId,omitempty"`
	IsCorrected        bool    `json:"isCorrected"`
	Version            int     `json:"version"`
	CreatedBy          int64   `json:"createdBy"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

func toResponse(p *Payment) paymentResponse {
	resp := paymentResponse{
		ID:            p.ID.String(),
		TenantID:      p.TenantID,
		BranchID:      p.BranchID,
		MemberID:      p.MemberID,
		Amount:        p.Amount.StringFixed(money.Scale),
		PaidOn:        p.PaidOn.Format("2006-01-02"),
		PaymentMethod: string(p.Method),
		Note:          p.Note,
		IsCorrection:  p.IsCorrection,
		IsCorrected:   p.IsCorrected,
		Version:       p.Version,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
	if p.CorrectedPaymentID != nil {
		id := p.CorrectedPaymentID.String()
		resp.CorrectedPaymentID = &id
	}
	return resp
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_json", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "validation_failed", err.Error())
		return
	}
	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		httpx.RespondError(w, validateAmountString(req.Amount))
		return
	}
	paidOn, err := parseDate(req.PaidOn)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_paid_on", "paidOn must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		return
	}

	created, err := h.service.Create(r.Context(), shared.TenantFromContext(r.Context()), shared.ActorFromContext(r.Context()), CreatePaymentInput{
		MemberID: req.MemberID,
		Amount:   amount,
		PaidOn:   paidOn,
		Method:   PaymentMethod(req.PaymentMethod),
		Note:     req.Note,
	})
	if err != nil {
		h.logWriteFailure("create payment", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) correctPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_payment_id", "payment id must be a UUID")
		return
	}
	var req correctPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_json", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "validation_failed", err.Error())
		return
	}

	input := CorrectPaymentInput{ExpectedVersion: *req.ExpectedVersion}
	if req.Amount != nil {
		amount, err := money.ParseAmount(*req.Amount)
		if err != nil {
			httpx.RespondError(w, validateAmountString(*req.Amount))
			return
		}
		input.Amount = Provided(amount)
	}
	if req.PaidOn != nil {
		paidOn, err := parseDate(*req.PaidOn)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_paid_on", "paidOn must be a date (YYYY-MM-DD) or RFC3339 timestamp")
			return
		}
		input.PaidOn = Provided(paidOn)
	}
	if req.PaymentMethod != nil {
		input.Method = Provided(PaymentMethod(*req.PaymentMethod))
	}
	if req.Note != nil {
		input.Note = Provided(*req.Note)
	}

	corrected, err := h.service.Correct(r.Context(), shared.TenantFromContext(r.Context()), shared.ActorFromContext(r.Context()), id, input)
	if err != nil {
		h.logWriteFailure("correct payment", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(corrected))
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_payment_id", "payment id must be a UUID")
		return
	}
	p, err := h.service.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Method:           PaymentMethod(q.Get("method")),
		IncludeCorrected: q.Get("includeCorrected") == "true",
	}
	filter.BranchID, _ = strconv.ParseInt(q.Get("branchId"), 10, 64)
	filter.MemberID, _ = strconv.ParseInt(q.Get("memberId"), 10, 64)
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("perPage"))
	if from := q.Get("from"); from != "" {
		t, err := parseDate(from)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_from", "from must be a date (YYYY-MM-DD)")
			return
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := parseDate(to)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid_to", "to must be a date (YYYY-MM-DD)")
			return
		}
		filter.To = t
	}

	rows, pagination, err := h.service.List(r.Context(), shared.TenantFromContext(r.Context()), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	data := make([]paymentResponse, 0, len(rows))
	for i := range rows {
		data = append(data, toResponse(&rows[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       data,
		"pagination": pagination,
	})
}

func (h *Handler) logWriteFailure(op string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(op, slog.Any("error", err))
	}
}

// validateAmountString re-maps money parse failures onto the ledger's error
// codes so handler and service produce identical responses.
func validateAmountString(raw string) error {
	_, err := money.ParseAmount(raw)
	switch err {
	case money.ErrAmountNotPositive:
		return ErrAmountNotPositive
	case money.ErrAmountTooLarge:
		return ErrAmountTooLarge
	case money.ErrAmountPrecision:
		return ErrAmountPrecision
	default:
		return ErrAmountInvalid
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
