package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-gov/meridian/internal/access"
	"github.com/meridian-gov/meridian/internal/platform/httpx"
	"github.com/meridian-gov/meridian/internal/shared"
)

const requestTimeout = 5 * time.Second

// Handler exposes dashboard endpoints.
type Handler struct {
	logger   *slog.Logger
	source   Source
	notifier *Notifier
	guard    access.Middleware
	group    singleflight.Group
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, source Source, notifier *Notifier, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, source: source, notifier: notifier, guard: guard}
}

// MountRoutes registers dashboard endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("access:dashboard", access.PermAdmin))
		r.Get("/dashboard/metrics", h.handleMetrics)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Post("/dashboard/refresh", h.handleRefresh)
		})
	})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// Collapse a stampede of identical snapshot reads into one computation.
	values, err, _ := h.singleflightSnapshot(ctx)
	if err != nil {
		h.logger.Error("dashboard snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"metrics": values})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	h.notifier.RefreshNow(ctx)
	httpx.JSON(w, http.StatusAccepted, map[string]any{
		"status":  "refreshing",
		"metrics": h.notifier.SubscribedMetrics(),
	})
}

func (h *Handler) singleflightSnapshot(ctx context.Context) (map[string]MetricValue, error, bool) {
	resultChan := h.group.DoChan("snapshot", func() (any, error) {
		return h.source.Snapshot(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		values, _ := res.Val.(map[string]MetricValue)
		return values, res.Err, res.Shared
	}
}

func rateLimitKey(r *http.Request) (string, error) {
	if user := shared.UserFromContext(r.Context()); user != "" {
		return "user:" + user, nil
	}
	return r.RemoteAddr, nil
}
