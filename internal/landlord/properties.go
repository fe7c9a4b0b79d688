package landlord

import (
	"context"

	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/events"
)

// PropertyStore is the persistence used by PropertyManager.
type PropertyStore interface {
	ListProperties(ctx context.Context, landlordID string) ([]domain.Property, error)
	CreateProperty(ctx context.Context, property *domain.Property) error
	UpdateProperty(ctx context.Context, property *domain.Property) error
	DeleteProperty(ctx context.Context, landlordID, id string) error
}

// PropertyManager manages a landlord's properties.
type PropertyManager struct {
	base
	store PropertyStore
}

// List returns the landlord's properties, newest first.
func (m *PropertyManager) List(ctx context.Context, landlordID string) ([]domain.Property, error) {
	props, err := m.store.ListProperties(ctx, landlordID)
	if err != nil {
		return nil, storeError("Failed to load properties.", err)
	}
	return props, nil
}

// Create validates in and stores a new property.
func (m *PropertyManager) Create(ctx context.Context, landlordID string, in domain.PropertyInput) (*domain.Property, error) {
	if fields := in.Validate(); len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	p := in.Property(landlordID)
	if err := m.store.CreateProperty(ctx, &p); err != nil {
		return nil, storeError("Failed to save property.", err)
	}
	m.publish(ctx, events.EntityProperty, events.ActionCreated, landlordID, p.ID)
	return &p, nil
}

// Update replaces every editable field of an existing property.
func (m *PropertyManager) Update(ctx context.Context, landlordID, id string, in domain.PropertyInput) (*domain.Property, error) {
	if fields := in.Validate(); len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	p := in.Property(landlordID)
	p.ID = id
	if err := m.store.UpdateProperty(ctx, &p); err != nil {
		return nil, storeError("Failed to save property.", err)
	}
	m.publish(ctx, events.EntityProperty, events.ActionUpdated, landlordID, id)
	return &p, nil
}

// Delete removes a property once the landlord confirms.
func (m *PropertyManager) Delete(ctx context.Context, landlordID, id string, c Confirmer) error {
	if err := confirm(ctx, c, "Are you sure you want to delete this property?"); err != nil {
		return err
	}
	if err := m.store.DeleteProperty(ctx, landlordID, id); err != nil {
		return storeError("Failed to delete property.", err)
	}
	m.publish(ctx, events.EntityProperty, events.ActionDeleted, landlordID, id)
	return nil
}
