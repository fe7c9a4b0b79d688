// Package middleware provides the HTTP middleware chain of rentd.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/httputil"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/supabase/client"
)

// Claims is the subset of a Supabase access token we read.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// UserVerifier validates an access token remotely.
type UserVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*client.User, error)
}

type identityKey struct{}

// SupabaseAuth authenticates bearer tokens issued by Supabase Auth. Tokens are
// verified locally with the project JWT secret when one is configured; other
// tokens are checked against the auth server.
type SupabaseAuth struct {
	jwtSecret []byte
	verifier  UserVerifier
	logger    *logging.Logger
	signInURL string
}

// NewSupabaseAuth creates the middleware. jwtSecret may be empty.
func NewSupabaseAuth(jwtSecret string, verifier UserVerifier, logger *logging.Logger, signInURL string) *SupabaseAuth {
	var secret []byte
	if jwtSecret != "" {
		secret = []byte(jwtSecret)
	}
	return &SupabaseAuth{jwtSecret: secret, verifier: verifier, logger: logger, signInURL: signInURL}
}

// Handler returns the middleware handler.
func (m *SupabaseAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, apperrors.Unauthorized("Sign in to continue."))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			m.respondError(w, r, apperrors.Unauthorized("Invalid Authorization header format"))
			return
		}
		token := strings.TrimSpace(parts[1])

		id, err := m.authenticate(r.Context(), token)
		if err != nil {
			m.respondError(w, r, apperrors.InvalidToken(err))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		ctx = logging.WithUserID(ctx, id.UserID)
		ctx = database.WithAccessToken(ctx, token)

		m.logger.WithContext(ctx).Debug("Authentication successful")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SupabaseAuth) authenticate(ctx context.Context, token string) (Identity, error) {
	if m.jwtSecret != nil {
		id, err := m.verifyLocal(token)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, jwt.ErrTokenExpired) || m.verifier == nil {
			return Identity{}, err
		}
	}
	if m.verifier == nil {
		return Identity{}, errors.New("no token verifier configured")
	}

	user, err := m.verifier.GetUser(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if user.ID == "" {
		return Identity{}, errors.New("token has no subject")
	}
	return Identity{UserID: user.ID, Email: user.Email}, nil
}

func (m *SupabaseAuth) verifyLocal(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid {
		return Identity{}, errors.New("jwt invalid")
	}
	if claims.Subject == "" || claims.Role != "authenticated" {
		return Identity{}, errors.New("token is not a user session")
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

func (m *SupabaseAuth) respondError(w http.ResponseWriter, r *http.Request, se *apperrors.ServiceError) {
	m.logger.WithContext(r.Context()).WithError(se).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": se.HTTPStatus,
	}).Warn("Authentication failed")
	httputil.WriteServiceError(w, se, m.signInURL)
}

// GetIdentity returns the authenticated caller.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// GetUserID extracts the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	return logging.GetUserID(ctx)
}

// GetUserRole extracts the resolved role from context.
func GetUserRole(ctx context.Context) domain.Role {
	return domain.Role(logging.GetRole(ctx))
}
