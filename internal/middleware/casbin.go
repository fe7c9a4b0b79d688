package middleware

import (
	"fmt"
	"net/http"

	"github.com/casbin/casbin"

	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/httputil"
	"github.com/R3E-Network/rentals/internal/logging"
)

// SubjectUnresolved is the casbin subject of an authenticated caller whose
// role is not known.
const SubjectUnresolved = "unresolved"

// Authorizer enforces the role to route policy.
type Authorizer struct {
	enforcer *casbin.Enforcer
	logger   *logging.Logger
}

// NewAuthorizer loads the casbin model and policy files.
func NewAuthorizer(modelPath, policyPath string, logger *logging.Logger) (*Authorizer, error) {
	e, err := casbin.NewEnforcerSafe(modelPath, policyPath)
	if err != nil {
		return nil, fmt.Errorf("load rbac policy: %w", err)
	}
	return &Authorizer{enforcer: e, logger: logger}, nil
}

// Allowed reports whether role may call method on path.
func (a *Authorizer) Allowed(role domain.Role, path, method string) (bool, error) {
	sub := string(role)
	if !role.Valid() {
		sub = SubjectUnresolved
	}
	return a.enforcer.EnforceSafe(sub, path, method)
}

// Handler rejects requests the policy does not allow.
func (a *Authorizer) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := GetUserRole(r.Context())
		ok, err := a.Allowed(role, r.URL.Path, r.Method)
		if err != nil {
			a.logger.WithContext(r.Context()).WithError(err).Error("Error enforcing authorization policy")
			httputil.WriteServiceError(w, apperrors.Internal("Authorization failed", err), "")
			return
		}
		if !ok {
			a.logger.LogSecurityEvent(r.Context(), "access_denied", map[string]interface{}{
				"path":   r.URL.Path,
				"method": r.Method,
			})
			httputil.WriteServiceError(w, apperrors.PermissionDenied("You don't have access to this resource.", nil), "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
