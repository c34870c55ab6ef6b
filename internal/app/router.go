package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-gov/meridian/internal/access"
	"github.com/meridian-gov/meridian/internal/budget"
	"github.com/meridian-gov/meridian/internal/dashboard"
	"github.com/meridian-gov/meridian/internal/observability"
	"github.com/meridian-gov/meridian/internal/platform/httpx"
	"github.com/meridian-gov/meridian/internal/prefs"
	"github.com/meridian-gov/meridian/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AccessHandler    *access.Handler
	BudgetHandler    *budget.Handler
	DashboardHandler *dashboard.Handler
	UsersHandler     *users.Handler
	PrefsHandler     *prefs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		if params.AccessHandler != nil {
			params.AccessHandler.MountRoutes(api)
		}
		if params.BudgetHandler != nil {
			params.BudgetHandler.MountRoutes(api)
		}
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(api)
		}
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(api)
		}
		if params.PrefsHandler != nil {
			params.PrefsHandler.MountRoutes(api)
		}
	})

	return r
}
