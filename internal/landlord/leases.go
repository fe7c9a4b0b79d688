package landlord

import (
	"context"

	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/events"
)

// LeaseStore is the persistence used by LeaseManager.
type LeaseStore interface {
	ListLeases(ctx context.Context, landlordID string) ([]domain.Lease, error)
	ListTenantLeases(ctx context.Context, tenantID string) ([]domain.Lease, error)
	CreateLease(ctx context.Context, lease *domain.Lease) error
	DeleteLease(ctx context.Context, landlordID, id string) error
	FindProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	ListProfiles(ctx context.Context, ids []string) ([]domain.Profile, error)
}

// LeaseManager manages a landlord's leases.
type LeaseManager struct {
	base
	store LeaseStore
}

// List returns the landlord's leases with property names and tenant profiles,
// newest first. Tenant profiles are read in one request after the leases.
func (m *LeaseManager) List(ctx context.Context, landlordID string) ([]domain.LeaseView, error) {
	leases, err := m.store.ListLeases(ctx, landlordID)
	if err != nil {
		return nil, storeError("Failed to load leases.", err)
	}

	var tenantIDs []string
	seen := make(map[string]bool)
	for _, l := range leases {
		if l.TenantID == "" || seen[l.TenantID] {
			continue
		}
		seen[l.TenantID] = true
		tenantIDs = append(tenantIDs, l.TenantID)
	}

	profiles := make(map[string]*domain.Profile, len(tenantIDs))
	if len(tenantIDs) > 0 {
		rows, err := m.store.ListProfiles(ctx, tenantIDs)
		if err != nil {
			return nil, storeError("Failed to load tenant profiles.", err)
		}
		for i := range rows {
			profiles[rows[i].ID] = &rows[i]
		}
	}

	views := make([]domain.LeaseView, 0, len(leases))
	for _, l := range leases {
		views = append(views, domain.LeaseView{Lease: l, Tenant: profiles[l.TenantID]})
	}
	return views, nil
}

// ListForTenant returns the leases held by tenantID.
func (m *LeaseManager) ListForTenant(ctx context.Context, tenantID string) ([]domain.Lease, error) {
	leases, err := m.store.ListTenantLeases(ctx, tenantID)
	if err != nil {
		return nil, storeError("Failed to load leases.", err)
	}
	return leases, nil
}

// Create validates in, resolves the tenant by email and stores an active
// lease. The lookup and the insert are separate requests.
func (m *LeaseManager) Create(ctx context.Context, landlordID string, in domain.LeaseInput) (*domain.Lease, error) {
	if fields := in.Validate(); len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	tenant, err := m.store.FindProfileByEmail(ctx, in.TenantEmail)
	if database.IsNotFound(err) {
		return nil, apperrors.TenantNotFound(in.TenantEmail)
	}
	if err != nil {
		return nil, storeError("Failed to look up tenant.", err)
	}

	lease := in.Lease(landlordID, tenant.ID)
	if err := m.store.CreateLease(ctx, &lease); err != nil {
		return nil, storeError("Failed to save lease.", err)
	}
	m.publish(ctx, events.EntityLease, events.ActionCreated, landlordID, lease.ID)
	return &lease, nil
}

// Delete removes a lease once the landlord confirms.
func (m *LeaseManager) Delete(ctx context.Context, landlordID, id string, c Confirmer) error {
	if err := confirm(ctx, c, "Are you sure you want to delete this lease?"); err != nil {
		return err
	}
	if err := m.store.DeleteLease(ctx, landlordID, id); err != nil {
		return storeError("Failed to delete lease.", err)
	}
	m.publish(ctx, events.EntityLease, events.ActionDeleted, landlordID, id)
	return nil
}
