package session

import (
	"context"
	"fmt"

	"github.com/R3E-Network/rentals/internal/domain"
)

// RoleSource reads role assignments.
type RoleSource interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
}

// RoleResolver resolves the single role of an identity.
type RoleResolver struct {
	source RoleSource
}

// NewRoleResolver creates a resolver over source.
func NewRoleResolver(source RoleSource) *RoleResolver {
	return &RoleResolver{source: source}
}

// Resolve returns the role of userID. An identity without an assignment
// resolves to domain.RoleUnknown.
func (r *RoleResolver) Resolve(ctx context.Context, userID string) (domain.Role, error) {
	if userID == "" {
		return domain.RoleUnknown, ErrNoSession
	}
	role, err := r.source.GetRole(ctx, userID)
	if err != nil {
		return domain.RoleUnknown, fmt.Errorf("resolve role: %w", err)
	}
	if !role.Valid() {
		return domain.RoleUnknown, nil
	}
	return role, nil
}

// View is the dashboard an identity is routed to.
type View string

const (
	ViewNone     View = "none"
	ViewLandlord View = "landlord"
	ViewTenant   View = "tenant"
)

// Gate maps a resolved role to the dashboard it may render. An unresolved
// role renders nothing.
func Gate(role domain.Role) View {
	switch role {
	case domain.RoleLandlord:
		return ViewLandlord
	case domain.RoleTenant:
		return ViewTenant
	default:
		return ViewNone
	}
}
