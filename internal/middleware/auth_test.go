package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/supabase/client"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func userClaims(sub string, ttl time.Duration) Claims {
	return Claims{
		Email: sub + "@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

type fakeVerifier struct {
	users map[string]*client.User
	calls int
}

func (f *fakeVerifier) GetUser(_ context.Context, token string) (*client.User, error) {
	f.calls++
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

type seen struct {
	userID string
	token  string
	email  string
}

func captureHandler(out *seen) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out.userID = GetUserID(r.Context())
		out.token = database.AccessToken(r.Context())
		if id, ok := GetIdentity(r.Context()); ok {
			out.email = id.Email
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestSupabaseAuth_MissingHeader(t *testing.T) {
	auth := NewSupabaseAuth(testSecret, nil, logging.NewNop(), "/auth")
	handler := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["sign_in_url"] != "/auth" {
		t.Fatalf("sign_in_url = %v", body["sign_in_url"])
	}
}

func TestSupabaseAuth_MalformedHeader(t *testing.T) {
	auth := NewSupabaseAuth(testSecret, nil, logging.NewNop(), "/auth")
	handler := auth.Handler(http.NotFoundHandler())

	for _, header := range []string{"Basic abc", "Bearer", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%q: status = %d, want 401", header, rr.Code)
		}
	}
}

func TestSupabaseAuth_LocalToken(t *testing.T) {
	verifier := &fakeVerifier{}
	auth := NewSupabaseAuth(testSecret, verifier, logging.NewNop(), "/auth")
	token := signToken(t, testSecret, userClaims("user-1", time.Hour))

	var got seen
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Handler(captureHandler(&got)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got.userID != "user-1" || got.email != "user-1@example.com" {
		t.Fatalf("identity = %+v", got)
	}
	if got.token != token {
		t.Fatal("access token not forwarded to the repository context")
	}
	if verifier.calls != 0 {
		t.Fatalf("remote verifier called %d times for a locally valid token", verifier.calls)
	}
}

func TestSupabaseAuth_ExpiredTokenIsNotRetriedRemotely(t *testing.T) {
	verifier := &fakeVerifier{}
	auth := NewSupabaseAuth(testSecret, verifier, logging.NewNop(), "/auth")
	token := signToken(t, testSecret, userClaims("user-1", -time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Handler(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if verifier.calls != 0 {
		t.Fatalf("verifier calls = %d, want 0", verifier.calls)
	}
}

func TestSupabaseAuth_AnonKeyRejected(t *testing.T) {
	auth := NewSupabaseAuth(testSecret, nil, logging.NewNop(), "")
	claims := userClaims("", time.Hour)
	claims.Role = "anon"
	token := signToken(t, testSecret, claims)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Handler(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestSupabaseAuth_RemoteFallback(t *testing.T) {
	verifier := &fakeVerifier{users: map[string]*client.User{
		"opaque-token": {ID: "user-2", Email: "two@example.com"},
	}}
	auth := NewSupabaseAuth(testSecret, verifier, logging.NewNop(), "/auth")

	var got seen
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer opaque-token")
	rr := httptest.NewRecorder()
	auth.Handler(captureHandler(&got)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got.userID != "user-2" || got.email != "two@example.com" {
		t.Fatalf("identity = %+v", got)
	}
	if verifier.calls != 1 {
		t.Fatalf("verifier calls = %d, want 1", verifier.calls)
	}
}

func TestSupabaseAuth_WrongSecretWithoutVerifier(t *testing.T) {
	auth := NewSupabaseAuth(testSecret, nil, logging.NewNop(), "/auth")
	token := signToken(t, "another-secret-that-is-long-enough-000000", userClaims("user-1", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Handler(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
