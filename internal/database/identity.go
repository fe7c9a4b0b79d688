package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/R3E-Network/rentals/internal/domain"
)

// GetRole returns the role assigned to userID. An identity without a
// user_roles row has domain.RoleUnknown and no error.
func (r *Repository) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	if userID == "" {
		return domain.RoleUnknown, fmt.Errorf("get role: %w: user id required", ErrInvalidInput)
	}

	rows, err := selectRows[domain.RoleAssignment](ctx,
		r.db(ctx).From(TableUserRoles).Select("role").Eq("user_id", userID).Limit(1),
		"get role")
	if err != nil {
		return domain.RoleUnknown, err
	}
	if len(rows) == 0 {
		return domain.RoleUnknown, nil
	}
	return rows[0].Role, nil
}

// FindProfileByEmail looks a profile up by its email address. Emails are
// stored lower-cased by the auth service.
func (r *Repository) FindProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("find profile: %w: email required", ErrInvalidInput)
	}
	return selectOne[domain.Profile](ctx,
		r.db(ctx).From(TableProfiles).Select("id,full_name,email,phone").Eq("email", email),
		"find profile by email")
}

// ListProfiles returns the profiles with the given ids, in no particular order.
func (r *Repository) ListProfiles(ctx context.Context, ids []string) ([]domain.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return selectRows[domain.Profile](ctx,
		r.db(ctx).From(TableProfiles).Select("id,full_name,email,phone").In("id", ids),
		"list profiles")
}
