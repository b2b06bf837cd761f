// Package httptransport assembles the registry's HTTP surface: middleware chain,
// registry routes and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bothub/internal/registry/handler"
	"bothub/pkg/platform/httputil"
	"bothub/pkg/platform/middleware/admin"
	"bothub/pkg/platform/middleware/logging"
	"bothub/pkg/platform/middleware/metadata"
	"bothub/pkg/platform/middleware/requestid"
	"bothub/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Registry   *handler.Handler
	Logger     *slog.Logger
	AdminToken string
	// Gatherer backs /metrics; Registerer receives the HTTP metrics.
	Gatherer   prometheus.Gatherer
	Registerer prometheus.Registerer
	// HealthChecks are run by /health, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// Banner is the body of GET /.
type Banner struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(otelhttp.NewMiddleware("bothub"))
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(logging.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.Registerer != nil {
		r.Use(NewHTTPMetrics(cfg.Registerer).Middleware)
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Banner{Message: "Master Bot API is running", Status: "OK"})
	})
	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.Registry != nil {
		cfg.Registry.Register(r)
		r.Group(func(ar chi.Router) {
			ar.Use(admin.RequireAdminToken(cfg.AdminToken, logger))
			cfg.Registry.RegisterAdmin(ar)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
