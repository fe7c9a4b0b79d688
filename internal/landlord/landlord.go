// Package landlord implements the landlord's property, lease and payment
// management. Every successful write is published on the event bus so lists
// and statistics can be refreshed.
package landlord

import (
	"context"

	"github.com/R3E-Network/rentals/internal/database"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/events"
	"github.com/R3E-Network/rentals/internal/logging"
)

// Confirmer asks the acting landlord to confirm a destructive operation.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Preconfirmed answers every prompt with the given decision, for callers that
// collected the confirmation up front (e.g. an HTTP confirm flag).
type Preconfirmed bool

func (p Preconfirmed) Confirm(context.Context, string) (bool, error) {
	return bool(p), nil
}

// Managers bundles the three entity managers over one repository.
type Managers struct {
	Properties *PropertyManager
	Leases     *LeaseManager
	Payments   *PaymentManager
}

// New creates the managers. bus may be nil.
func New(repo database.RepositoryInterface, bus *events.Bus, logger *logging.Logger) *Managers {
	b := base{bus: bus, logger: logger}
	return &Managers{
		Properties: &PropertyManager{base: b, store: repo},
		Leases:     &LeaseManager{base: b, store: repo},
		Payments:   &PaymentManager{base: b, store: repo},
	}
}

type base struct {
	bus    *events.Bus
	logger *logging.Logger
}

func (b base) publish(ctx context.Context, entity events.Entity, action events.Action, landlordID, id string) {
	b.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"entity":      entity,
		"action":      action,
		"landlord_id": landlordID,
		"id":          id,
	}).Info("landlord record changed")

	if b.bus == nil {
		return
	}
	if err := b.bus.Publish(ctx, events.Mutation{Entity: entity, Action: action, LandlordID: landlordID, ID: id}); err != nil {
		b.logger.WithContext(ctx).WithError(err).Warn("mutation not published")
	}
}

// confirm returns nil only when the confirmer accepted prompt.
func confirm(ctx context.Context, c Confirmer, prompt string) error {
	if c == nil {
		return apperrors.NotConfirmed(prompt)
	}
	ok, err := c.Confirm(ctx, prompt)
	if err != nil {
		return apperrors.Internal("confirmation failed", err)
	}
	if !ok {
		return apperrors.NotConfirmed(prompt)
	}
	return nil
}

// storeError maps a persistence failure onto the service taxonomy.
func storeError(message string, err error) error {
	switch {
	case database.IsPermissionDenied(err):
		return apperrors.PermissionDenied("You don't have permission to change this record.", err)
	case database.IsNotFound(err):
		return apperrors.NotFound("Record not found.")
	default:
		return apperrors.Persistence(message, err)
	}
}
