package landlord

import (
	"context"

	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/events"
)

// PaymentStore is the persistence used by PaymentManager.
type PaymentStore interface {
	ListPayments(ctx context.Context, landlordID string) ([]domain.Payment, error)
	CreatePayment(ctx context.Context, landlordID string, payment *domain.Payment) error
	DeletePayment(ctx context.Context, landlordID, id string) error
}

// PaymentManager records rent payments on a landlord's leases.
type PaymentManager struct {
	base
	store PaymentStore
}

// List returns every payment of the landlord's leases, newest first.
func (m *PaymentManager) List(ctx context.Context, landlordID string) ([]domain.Payment, error) {
	payments, err := m.store.ListPayments(ctx, landlordID)
	if err != nil {
		return nil, storeError("Failed to load payments.", err)
	}
	return payments, nil
}

// Create validates in and records the payment.
func (m *PaymentManager) Create(ctx context.Context, landlordID string, in domain.PaymentInput) (*domain.Payment, error) {
	if fields := in.Validate(); len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	p := in.Payment()
	if err := m.store.CreatePayment(ctx, landlordID, &p); err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.NotFound("Lease not found.")
		}
		return nil, storeError("Failed to save payment.", err)
	}
	m.publish(ctx, events.EntityPayment, events.ActionCreated, landlordID, p.ID)
	return &p, nil
}

// Delete removes a payment once the landlord confirms.
func (m *PaymentManager) Delete(ctx context.Context, landlordID, id string, c Confirmer) error {
	if err := confirm(ctx, c, "Are you sure you want to delete this payment?"); err != nil {
		return err
	}
	if err := m.store.DeletePayment(ctx, landlordID, id); err != nil {
		return storeError("Failed to delete payment.", err)
	}
	m.publish(ctx, events.EntityPayment, events.ActionDeleted, landlordID, id)
	return nil
}
