package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clubledger/clubledger/internal/observability"
	"github.com/clubledger/clubledger/internal/payments"
	"github.com/clubledger/clubledger/internal/periods"
	"github.com/clubledger/clubledger/internal/revenue"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	PaymentsHandler *payments.Handler
	RevenueHandler  *revenue.Handler
	PeriodsHandler  *periods.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(TenantContext)
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
		r.Route("/revenue", func(r chi.Router) {
			r.Route("/locks", params.PeriodsHandler.MountRoutes)
			params.RevenueHandler.MountRoutes(r)
		})
	})

	return r
}
