package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gestor-crm/gestor/internal/auth"
	"github.com/gestor-crm/gestor/internal/crm"
	"github.com/gestor-crm/gestor/internal/observability"
	"github.com/gestor-crm/gestor/internal/platform/httpx"
	"github.com/gestor-crm/gestor/internal/rbac"
	"github.com/gestor-crm/gestor/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	AuthHandler   *auth.Handler
	AuthGuard     auth.Guard
	CRMHandler    *crm.Handler
	AccessHandler *rbac.AccessHandler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
	// RequestLog enables chi's request logger.
	RequestLog bool
}

// NewRouter constructs the chi.Router with Gestor defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.RequestLog {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}
	if params.AccessHandler != nil {
		r.Route("/api", params.AccessHandler.MountRoutes)
	}
	if params.CRMHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.AuthGuard.RequireAuth)
			params.CRMHandler.MountRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
