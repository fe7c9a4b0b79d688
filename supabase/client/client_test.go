package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, APIKey: "anon-key", Breaker: BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing URL")
	}
	if _, err := New(Config{URL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing APIKey")
	}
}

func TestQueryBuilder_SelectParams(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/properties" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("status") != "eq.available" {
			t.Fatalf("unexpected status filter: %q", q.Get("status"))
		}
		if q.Get("order") != "created_at.desc" {
			t.Fatalf("unexpected order: %q", q.Get("order"))
		}
		if q.Get("limit") != "12" || q.Get("offset") != "24" {
			t.Fatalf("unexpected paging: limit=%q offset=%q", q.Get("limit"), q.Get("offset"))
		}
		if q.Get("select") != "*" {
			t.Fatalf("unexpected select: %q", q.Get("select"))
		}
		if r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Fatalf("unexpected auth headers: %v", r.Header)
		}
		_, _ = w.Write([]byte(`[{"id":"p1"}]`))
	}))

	resp, err := c.From("properties").
		Select("*").
		Eq("status", "available").
		Order("created_at", false).
		Limit(12).
		Offset(24).
		Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var rows []map[string]any
	if err := resp.JSON(&rows); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "p1" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestWithAccessToken_ForwardsUserToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer user-jwt" {
			t.Fatalf("expected user token, got %q", got)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Fatalf("apikey header must stay the anon key")
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	if _, err := c.WithAccessToken("user-jwt").From("leases").Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.accessToken != "" {
		t.Fatal("WithAccessToken must not mutate the base client")
	}
}

func TestExecuteCount_ParsesContentRange(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Fatalf("expected HEAD, got %s", r.Method)
		}
		if r.Header.Get("Prefer") != "count=exact" {
			t.Fatalf("unexpected Prefer: %q", r.Header.Get("Prefer"))
		}
		w.Header().Set("Content-Range", "*/7")
		w.WriteHeader(http.StatusOK)
	}))

	n, err := c.From("leases").Eq("landlord_id", "l1").Eq("status", "active").ExecuteCount(context.Background())
	if err != nil {
		t.Fatalf("ExecuteCount: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
}

func TestExecuteInsert_SendsRepresentation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Prefer") != "return=representation" {
			t.Fatalf("unexpected Prefer: %q", r.Header.Get("Prefer"))
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		body["id"] = "m1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]map[string]any{body})
	}))

	resp, err := c.From("messages").ExecuteInsert(context.Background(), map[string]any{"message": "hi"})
	if err != nil {
		t.Fatalf("ExecuteInsert: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestUpdateAndDelete_RequireFilters(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	if _, err := c.From("properties").ExecuteUpdate(context.Background(), map[string]any{"name": "x"}); err == nil {
		t.Fatal("expected error for unfiltered update")
	}
	if _, err := c.From("properties").ExecuteDelete(context.Background()); err == nil {
		t.Fatal("expected error for unfiltered delete")
	}
}

func TestDo_ParsesRLSError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"42501","message":"new row violates row-level security policy for table \"messages\""}`))
	}))

	_, err := c.From("messages").ExecuteInsert(context.Background(), map[string]any{"message": "hi"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if apiErr.Code != "42501" || !apiErr.PermissionDenied() {
		t.Fatalf("expected permission denied, got %+v", apiErr)
	}
}

func TestParseError_GoTrueShapes(t *testing.T) {
	e := parseError([]byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`), 400)
	if e.Code != "invalid_credentials" || e.Message != "Invalid login credentials" {
		t.Fatalf("unexpected: %+v", e)
	}

	e = parseError([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`), 400)
	if e.Code != "invalid_grant" || e.Message != "Invalid Refresh Token" {
		t.Fatalf("unexpected: %+v", e)
	}

	e = parseError([]byte(`upstream exploded`), 502)
	if e.Message != "upstream exploded" || e.PermissionDenied() {
		t.Fatalf("unexpected: %+v", e)
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 2; i++ {
		_, err := c.From("properties").Execute(context.Background())
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("call %d: expected 503 error, got %v", i, err)
		}
	}

	_, err := c.From("properties").Execute(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "circuit_open" {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected breaker to short-circuit, server saw %d calls", calls)
	}
}

func TestAuth_SignInAndRefresh(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["email"] != "lee@example.com" || body["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
				return
			}
		case "refresh_token":
			if body["refresh_token"] != "r1" {
				t.Fatalf("unexpected refresh token %q", body["refresh_token"])
			}
		default:
			t.Fatalf("unexpected grant type %q", r.URL.Query().Get("grant_type"))
		}
		_, _ = w.Write([]byte(`{"access_token":"a1","token_type":"bearer","expires_in":3600,"refresh_token":"r1","user":{"id":"u1","email":"lee@example.com"}}`))
	}))

	session, err := c.Auth().SignIn(context.Background(), "lee@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.AccessToken != "a1" || session.User == nil || session.User.ID != "u1" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.ExpiresAt == 0 || session.Expired(time.Now(), time.Minute) {
		t.Fatalf("expected future expiry, got %d", session.ExpiresAt)
	}

	if _, err := c.Auth().RefreshSession(context.Background(), "r1"); err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}

	_, err = c.Auth().SignIn(context.Background(), "lee@example.com", "wrong")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "invalid_credentials" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuth_GetUserAndSignOut(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		switch r.URL.Path {
		case "/auth/v1/user":
			_, _ = w.Write([]byte(`{"id":"u1","email":"lee@example.com"}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))

	user, err := c.Auth().GetUser(context.Background(), "a1")
	if err != nil || user.ID != "u1" {
		t.Fatalf("GetUser: %v %+v", err, user)
	}
	if err := c.Auth().SignOut(context.Background(), "a1"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	_, err = c.Auth().GetUser(context.Background(), "bad")
	var apiErr *Error
	if !errors.As(err, &apiErr) || !apiErr.PermissionDenied() {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuth_SignUpWithoutSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string         `json:"email"`
			Data  map[string]any `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Data["role"] != "tenant" {
			t.Fatalf("expected role metadata, got %v", body.Data)
		}
		_, _ = w.Write([]byte(`{"id":"u2","email":"tia@example.com"}`))
	}))

	user, session, err := c.Auth().SignUp(context.Background(), "tia@example.com", "pw123456", SignUpOptions{
		Data: map[string]any{"full_name": "Tia", "role": "tenant"},
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if session != nil {
		t.Fatal("expected no session when confirmation is pending")
	}
	if user.ID != "u2" {
		t.Fatalf("unexpected user: %+v", user)
	}
}
