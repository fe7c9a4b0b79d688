package database

import (
	"context"
	"fmt"

	"github.com/R3E-Network/rentals/internal/domain"
)

const leaseColumns = "*,properties(name,address,unit_number)"

// ListLeases returns the landlord's leases with their property summary,
// newest first.
func (r *Repository) ListLeases(ctx context.Context, landlordID string) ([]domain.Lease, error) {
	return selectRows[domain.Lease](ctx,
		r.db(ctx).From(TableLeases).
			Select(leaseColumns).
			Eq("landlord_id", landlordID).
			Order("created_at", false),
		"list leases")
}

// ListTenantLeases returns the leases held by a tenant, newest first.
func (r *Repository) ListTenantLeases(ctx context.Context, tenantID string) ([]domain.Lease, error) {
	return selectRows[domain.Lease](ctx,
		r.db(ctx).From(TableLeases).
			Select(leaseColumns).
			Eq("tenant_id", tenantID).
			Order("created_at", false),
		"list tenant leases")
}

// CountActiveLeases counts the landlord's leases with status active.
func (r *Repository) CountActiveLeases(ctx context.Context, landlordID string) (int, error) {
	return count(ctx,
		r.db(ctx).From(TableLeases).Eq("landlord_id", landlordID).Eq("status", domain.LeaseActive),
		"count active leases")
}

// CreateLease inserts lease and fills in the stored id.
func (r *Repository) CreateLease(ctx context.Context, lease *domain.Lease) error {
	if lease == nil || lease.LandlordID == "" || lease.TenantID == "" {
		return fmt.Errorf("create lease: %w: landlord and tenant required", ErrInvalidInput)
	}
	return insertRow(ctx, r.db(ctx).From(TableLeases), lease, "create lease")
}

// DeleteLease deletes one of the landlord's leases.
func (r *Repository) DeleteLease(ctx context.Context, landlordID, id string) error {
	return deleteRows(ctx,
		r.db(ctx).From(TableLeases).Eq("id", id).Eq("landlord_id", landlordID),
		"delete lease")
}
