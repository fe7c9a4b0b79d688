package database

import (
	"context"
	"fmt"

	"github.com/R3E-Network/rentals/internal/domain"
)

// The inner join restricts payments to leases owned by the filtered landlord.
const paymentColumns = "*,leases!inner(landlord_id,property_id,properties(name,address,unit_number))"

// ListPayments returns every payment of the landlord's leases, newest first.
func (r *Repository) ListPayments(ctx context.Context, landlordID string) ([]domain.Payment, error) {
	return selectRows[domain.Payment](ctx,
		r.db(ctx).From(TablePayments).
			Select(paymentColumns).
			Eq("leases.landlord_id", landlordID).
			Order("created_at", false),
		"list payments")
}

// CreatePayment inserts payment on a lease owned by landlordID and fills in
// the stored id. A lease the landlord does not own is ErrNotFound.
func (r *Repository) CreatePayment(ctx context.Context, landlordID string, payment *domain.Payment) error {
	if landlordID == "" || payment == nil || payment.LeaseID == "" {
		return fmt.Errorf("create payment: %w: landlord and lease required", ErrInvalidInput)
	}
	if _, err := selectOne[domain.Lease](ctx,
		r.db(ctx).From(TableLeases).Select("id").Eq("id", payment.LeaseID).Eq("landlord_id", landlordID),
		"create payment: find lease"); err != nil {
		return err
	}
	return insertRow(ctx, r.db(ctx).From(TablePayments), payment, "create payment")
}

// DeletePayment deletes a payment. Payments carry no owner column; row-level
// security restricts the delete to payments of the caller's leases.
func (r *Repository) DeletePayment(ctx context.Context, landlordID, id string) error {
	if landlordID == "" {
		return fmt.Errorf("delete payment: %w: landlord required", ErrInvalidInput)
	}
	return deleteRows(ctx, r.db(ctx).From(TablePayments).Eq("id", id), "delete payment")
}
