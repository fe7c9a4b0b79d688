package middleware

import (
	"context"
	"net/http"

	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/logging"
)

// RoleResolver resolves the role of an identity.
type RoleResolver interface {
	Resolve(ctx context.Context, userID string) (domain.Role, error)
}

// RoleGate resolves the caller's role on every request and stores it in the
// context. A failed resolution leaves the role unresolved; authorization
// downstream then only admits role-independent routes.
func RoleGate(resolver RoleResolver, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := GetUserID(ctx)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			role, err := resolver.Resolve(ctx, userID)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("role resolution failed")
				role = domain.RoleUnknown
			}
			if role != domain.RoleUnknown {
				ctx = logging.WithRole(ctx, string(role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
