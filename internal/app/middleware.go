package app

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/clubledger/clubledger/internal/observability"
	"github.com/clubledger/clubledger/internal/platform/httpx"
	"github.com/clubledger/clubledger/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the default middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	rpm := 600
	requestTimeout := 30 * time.Second
	if cfg.Config != nil {
		if cfg.Config.RateLimitRPM > 0 {
			rpm = cfg.Config.RateLimitRPM
		}
		if cfg.Config.AppRequestTimeout > 0 {
			requestTimeout = cfg.Config.AppRequestTimeout
		}
	}

	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
		secureMiddleware.Handler,
		httprate.LimitByIP(rpm, time.Minute),
		cfg.Metrics.Middleware,
	}
}

// TenantContext reads X-Tenant-ID and X-Actor-ID (set by the gateway that
// owns authentication, which is outside this service) into the request
// context. Requests without a tenant are rejected before reaching handlers.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := strconv.ParseInt(r.Header.Get("X-Tenant-ID"), 10, 64)
		if err != nil || tenantID <= 0 {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing_tenant", "X-Tenant-ID header is required")
			return
		}
		ctx := shared.ContextWithTenant(r.Context(), tenantID)
		if actorID, err := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64); err == nil && actorID > 0 {
			ctx = shared.ContextWithActor(ctx, actorID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
