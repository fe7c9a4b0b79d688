package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/rentals/internal/events"
)

func TestObserveBus_CountsMutations(t *testing.T) {
	m := New()
	bus := events.NewBus()
	unsub := m.ObserveBus(bus)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, events.Mutation{Entity: events.EntityLease, Action: events.ActionCreated}))
	require.NoError(t, bus.Publish(ctx, events.Mutation{Entity: events.EntityLease, Action: events.ActionCreated}))
	unsub()
	require.NoError(t, bus.Publish(ctx, events.Mutation{Entity: events.EntityLease, Action: events.ActionCreated}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("lease", "created")))
}

func TestRecordDashboardRefresh(t *testing.T) {
	m := New()
	m.RecordDashboardRefresh(RefreshOK, 10*time.Millisecond)
	m.RecordDashboardRefresh(RefreshDegraded, time.Millisecond)
	m.RecordDashboardRefresh(RefreshDegraded, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dashboardRefresh.WithLabelValues(RefreshOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dashboardRefresh.WithLabelValues(RefreshDegraded)))
}

func TestHandler_ExposesHTTPMetrics(t *testing.T) {
	m := New()
	m.IncrementInFlight()
	m.RecordHTTPRequest("rentd", "GET", "/api/catalog", "200", 5*time.Millisecond)
	m.DecrementInFlight()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `rentals_http_requests_total{method="GET",path="/api/catalog",service="rentd",status="200"} 1`), body)
}
