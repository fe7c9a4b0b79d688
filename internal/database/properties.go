package database

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/rentals/internal/domain"
)

// ListAvailableProperties returns one window of the public catalog, newest
// first.
func (r *Repository) ListAvailableProperties(ctx context.Context, offset, limit int) ([]domain.Property, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("list available properties: %w: offset=%d limit=%d", ErrInvalidInput, offset, limit)
	}
	return selectRows[domain.Property](ctx,
		r.db(ctx).From(TableProperties).
			Select("*").
			Eq("status", domain.PropertyAvailable).
			Order("created_at", false).
			Offset(offset).
			Limit(limit),
		"list available properties")
}

// ListProperties returns the landlord's properties, newest first.
func (r *Repository) ListProperties(ctx context.Context, landlordID string) ([]domain.Property, error) {
	return selectRows[domain.Property](ctx,
		r.db(ctx).From(TableProperties).
			Select("*").
			Eq("landlord_id", landlordID).
			Order("created_at", false),
		"list properties")
}

// CountProperties counts the landlord's properties.
func (r *Repository) CountProperties(ctx context.Context, landlordID string) (int, error) {
	return count(ctx, r.db(ctx).From(TableProperties).Eq("landlord_id", landlordID), "count properties")
}

// CreateProperty inserts property and fills in the stored id and timestamps.
func (r *Repository) CreateProperty(ctx context.Context, property *domain.Property) error {
	if property == nil || property.LandlordID == "" {
		return fmt.Errorf("create property: %w: landlord required", ErrInvalidInput)
	}
	return insertRow(ctx, r.db(ctx).From(TableProperties), property, "create property")
}

type propertyUpdate struct {
	Name          string                `json:"name"`
	Address       string                `json:"address"`
	UnitNumber    *string               `json:"unit_number"`
	RentAmount    float64               `json:"rent_amount"`
	DepositAmount *float64              `json:"deposit_amount"`
	Status        domain.PropertyStatus `json:"status"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// UpdateProperty replaces every editable field of the landlord's property.
func (r *Repository) UpdateProperty(ctx context.Context, property *domain.Property) error {
	if property == nil || property.ID == "" || property.LandlordID == "" {
		return fmt.Errorf("update property: %w: id and landlord required", ErrInvalidInput)
	}

	resp, err := r.db(ctx).From(TableProperties).
		Eq("id", property.ID).
		Eq("landlord_id", property.LandlordID).
		ExecuteUpdate(ctx, propertyUpdate{
			Name:          property.Name,
			Address:       property.Address,
			UnitNumber:    property.UnitNumber,
			RentAmount:    property.RentAmount,
			DepositAmount: property.DepositAmount,
			Status:        property.Status,
			UpdatedAt:     time.Now().UTC(),
		})
	if err != nil {
		return classify("update property", err)
	}

	var rows []domain.Property
	if err := resp.JSON(&rows); err != nil {
		return fmt.Errorf("update property: decode: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("update property: %w", ErrNotFound)
	}
	*property = rows[0]
	return nil
}

// DeleteProperty deletes one of the landlord's properties.
func (r *Repository) DeleteProperty(ctx context.Context, landlordID, id string) error {
	return deleteRows(ctx,
		r.db(ctx).From(TableProperties).Eq("id", id).Eq("landlord_id", landlordID),
		"delete property")
}
