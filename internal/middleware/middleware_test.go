package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/internal/metrics"
)

type resolverFunc func(ctx context.Context, userID string) (domain.Role, error)

func (f resolverFunc) Resolve(ctx context.Context, userID string) (domain.Role, error) {
	return f(ctx, userID)
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(logging.WithUserID(r.Context(), userID))
}

func TestRoleGate_StoresResolvedRole(t *testing.T) {
	gate := RoleGate(resolverFunc(func(_ context.Context, id string) (domain.Role, error) {
		assert.Equal(t, "user-1", id)
		return domain.RoleLandlord, nil
	}), logging.NewNop())

	var role domain.Role
	h := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = GetUserRole(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), withUser(httptest.NewRequest(http.MethodGet, "/", nil), "user-1"))

	assert.Equal(t, domain.RoleLandlord, role)
}

func TestRoleGate_FailureLeavesRoleUnresolved(t *testing.T) {
	gate := RoleGate(resolverFunc(func(context.Context, string) (domain.Role, error) {
		return domain.RoleUnknown, errors.New("boom")
	}), logging.NewNop())

	called := false
	h := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, domain.RoleUnknown, GetUserRole(r.Context()))
	}))
	h.ServeHTTP(httptest.NewRecorder(), withUser(httptest.NewRequest(http.MethodGet, "/", nil), "user-1"))

	assert.True(t, called)
}

func TestRoleGate_SkipsAnonymous(t *testing.T) {
	gate := RoleGate(resolverFunc(func(context.Context, string) (domain.Role, error) {
		t.Fatal("resolver should not be called without an identity")
		return domain.RoleUnknown, nil
	}), logging.NewNop())

	rr := httptest.NewRecorder()
	gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func newTestAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	a, err := NewAuthorizer("../../config/rbac_model.conf", "../../config/policy.csv", logging.NewNop())
	require.NoError(t, err)
	return a
}

func TestAuthorizer_Policy(t *testing.T) {
	a := newTestAuthorizer(t)

	cases := []struct {
		role   domain.Role
		path   string
		method string
		want   bool
	}{
		{domain.RoleLandlord, "/api/landlord/properties", http.MethodGet, true},
		{domain.RoleLandlord, "/api/landlord/properties/abc", http.MethodDelete, true},
		{domain.RoleLandlord, "/api/dashboard", http.MethodGet, true},
		{domain.RoleLandlord, "/api/messages", http.MethodPost, false},
		{domain.RoleLandlord, "/api/tenant/leases", http.MethodGet, false},
		{domain.RoleTenant, "/api/landlord/properties", http.MethodGet, false},
		{domain.RoleTenant, "/api/tenant/leases", http.MethodGet, true},
		{domain.RoleTenant, "/api/messages", http.MethodPost, true},
		{domain.RoleTenant, "/api/catalog", http.MethodGet, true},
		{domain.RoleUnknown, "/api/session", http.MethodGet, true},
		{domain.RoleUnknown, "/api/dashboard", http.MethodGet, true},
		{domain.RoleUnknown, "/api/landlord/stats", http.MethodGet, false},
		{domain.RoleUnknown, "/api/messages", http.MethodPost, false},
	}
	for _, tc := range cases {
		got, err := a.Allowed(tc.role, tc.path, tc.method)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %s %s", tc.role, tc.method, tc.path)
	}
}

func TestAuthorizer_HandlerDenies(t *testing.T) {
	a := newTestAuthorizer(t)
	h := a.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/landlord/properties", nil)
	req = req.WithContext(logging.WithRole(req.Context(), string(domain.RoleTenant)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "PERMISSION_DENIED")
}

func TestNewAuthorizer_MissingFiles(t *testing.T) {
	_, err := NewAuthorizer("missing.conf", "missing.csv", logging.NewNop())
	assert.Error(t, err)
}

func TestCORSMiddleware(t *testing.T) {
	cors := NewCORSMiddleware([]string{"https://app.example.com"})
	h := cors.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCORSMiddleware_AllowAll(t *testing.T) {
	cors := NewCORSMiddleware([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anything.example")
	rr := httptest.NewRecorder()
	cors.Handler(http.NotFoundHandler()).ServeHTTP(rr, req)
	assert.Equal(t, "https://anything.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter_PerUser(t *testing.T) {
	rl := NewRateLimiter(1, 2, logging.NewNop())
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(user string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), user))
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, serve("a"))
	assert.Equal(t, http.StatusOK, serve("a"))
	assert.Equal(t, http.StatusTooManyRequests, serve("a"))
	assert.Equal(t, http.StatusOK, serve("b"), "limits are per identity")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10, logging.NewNop())
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.getLimiter("old")

	now = now.Add(10 * time.Minute)
	rl.getLimiter("fresh")

	assert.Equal(t, 1, rl.Cleanup(5*time.Minute))
	assert.Len(t, rl.limiters, 1)
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := mux.NewRouter()
	r.Use(MetricsMiddleware("rentd", m))
	r.HandleFunc("/api/landlord/properties/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/landlord/properties/p1", nil))

	n, err := testutil.GatherAndCount(m.Registry(), "rentals_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoggingMiddleware_PropagatesTraceID(t *testing.T) {
	var traceID string
	h := LoggingMiddleware(logging.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = logging.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "trace-123", traceID)
	assert.Equal(t, "trace-123", rr.Header().Get("X-Trace-ID"))
}
