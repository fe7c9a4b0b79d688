// Package database provides the rental tables over Supabase PostgREST.
//
// Every request is issued with the caller's access token when one is present
// in the context, so the project's row-level security policies decide what
// the caller may read and write.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/R3E-Network/rentals/supabase/client"
)

// Table names.
const (
	TableProfiles   = "profiles"
	TableUserRoles  = "user_roles"
	TableProperties = "properties"
	TableLeases     = "leases"
	TablePayments   = "rent_payments"
	TableMessages   = "messages"
)

var (
	// ErrNotFound is returned when a lookup or owner-scoped write matched no row.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when authentication or a row-level
	// security policy rejected the request.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidInput is returned for arguments rejected before any request.
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionDenied reports whether err is an access-control rejection.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

type tokenKey struct{}

// WithAccessToken returns a context whose repository calls run as the user
// owning token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessToken returns the user token carried by ctx, if any.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Repository implements RepositoryInterface against Supabase.
type Repository struct {
	client *client.Client
}

// NewRepository creates a repository over an anon-key client.
func NewRepository(c *client.Client) *Repository {
	return &Repository{client: c}
}

var _ RepositoryInterface = (*Repository)(nil)

func (r *Repository) db(ctx context.Context) *client.Client {
	if token := AccessToken(ctx); token != "" {
		return r.client.WithAccessToken(token)
	}
	return r.client
}

// classify maps Supabase failures onto the package sentinels.
func classify(op string, err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.PermissionDenied():
			return fmt.Errorf("%s: %w: %w", op, ErrPermissionDenied, err)
		case apiErr.NoRows():
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func selectRows[T any](ctx context.Context, q *client.QueryBuilder, op string) ([]T, error) {
	resp, err := q.Execute(ctx)
	if err != nil {
		return nil, classify(op, err)
	}
	var rows []T
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	return rows, nil
}

func selectOne[T any](ctx context.Context, q *client.QueryBuilder, op string) (*T, error) {
	rows, err := selectRows[T](ctx, q.Limit(1), op)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &rows[0], nil
}

// insertRow inserts row and overwrites it with the stored representation.
func insertRow[T any](ctx context.Context, q *client.QueryBuilder, row *T, op string) error {
	resp, err := q.ExecuteInsert(ctx, row)
	if err != nil {
		return classify(op, err)
	}
	var rows []T
	if err := resp.JSON(&rows); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	// RLS may hide the inserted row from the returned representation.
	if len(rows) > 0 {
		*row = rows[0]
	}
	return nil
}

// deleteRows deletes the filtered rows and reports ErrNotFound when none were
// visible to the caller.
func deleteRows(ctx context.Context, q *client.QueryBuilder, op string) error {
	resp, err := q.ExecuteDelete(ctx)
	if err != nil {
		return classify(op, err)
	}
	var rows []map[string]any
	if err := resp.JSON(&rows); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func count(ctx context.Context, q *client.QueryBuilder, op string) (int, error) {
	n, err := q.ExecuteCount(ctx)
	if err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}
