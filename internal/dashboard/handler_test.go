package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-gov/meridian/internal/access"
	"github.com/meridian-gov/meridian/internal/shared"
)

func newTestHandler(t *testing.T, source Source) (http.Handler, *Notifier) {
	t.Helper()
	accessSvc := access.NewService(nil, nil, nil)
	accessSvc.AssignRole("viewer", "Viewer")

	notifier := NewNotifier(nil, source, nil, nil, time.Hour)
	t.Cleanup(notifier.Close)

	h := NewHandler(nil, source, notifier, access.Middleware{Service: accessSvc})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r, notifier
}

func TestMetricsEndpointRequiresDashboardAccess(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	router, _ := newTestHandler(t, source)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/dashboard/metrics", nil)
	req = req.WithContext(shared.ContextWithUser(req.Context(), "viewer"))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Metrics map[string]MetricValue `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, 1500.0, payload.Metrics[MetricTotalBudget].Value)
}

func TestRefreshEndpointTriggersDelivery(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	router, notifier := newTestHandler(t, source)

	delivered := 0
	notifier.Subscribe(MetricTotalBudget, func(v MetricValue) { delivered++ })

	req := httptest.NewRequest(http.MethodPost, "/dashboard/refresh", nil)
	req = req.WithContext(shared.ContextWithUser(req.Context(), "viewer"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, 1, delivered)
}
