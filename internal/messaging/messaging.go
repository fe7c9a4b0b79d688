// Package messaging lets prospective tenants contact a landlord about a
// listing and lets landlords read what they received.
package messaging

import (
	"context"

	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/events"
	"github.com/R3E-Network/rentals/internal/logging"
)

// User-facing failure messages.
const (
	MsgPermissionDenied = "You don't have permission to contact this landlord."
	MsgSendFailed       = "Failed to send message. Please try again."
)

// Store is the persistence used by the messaging channel.
type Store interface {
	CreateMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, landlordID string) ([]domain.Message, error)
}

// Composer sends contact messages.
type Composer struct {
	store  Store
	bus    *events.Bus
	logger *logging.Logger
}

// NewComposer creates a composer. bus may be nil.
func NewComposer(store Store, bus *events.Bus, logger *logging.Logger) *Composer {
	return &Composer{store: store, bus: bus, logger: logger}
}

// Send validates the draft and stores it as a new message from senderID.
// Whether the sender may contact the landlord is decided by the persistence
// layer; its refusal is reported apart from other failures.
func (c *Composer) Send(ctx context.Context, senderID string, draft domain.MessageDraft) (*domain.Message, error) {
	if senderID == "" {
		return nil, apperrors.Unauthorized("Sign in to contact a landlord.")
	}
	if fields := draft.Validate(); len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	msg := domain.Message{
		PropertyID: draft.PropertyID,
		LandlordID: draft.LandlordID,
		SenderID:   senderID,
		Message:    draft.Message,
		Status:     domain.MessageNew,
	}
	if err := c.store.CreateMessage(ctx, &msg); err != nil {
		entry := c.logger.WithContext(ctx).WithError(err).WithField("property_id", draft.PropertyID)
		if database.IsPermissionDenied(err) {
			entry.Warn("message rejected by access policy")
			return nil, apperrors.PermissionDenied(MsgPermissionDenied, err)
		}
		entry.Error("failed to send message")
		return nil, apperrors.Persistence(MsgSendFailed, err)
	}

	if c.bus != nil {
		if err := c.bus.Publish(ctx, events.Mutation{
			Entity:     events.EntityMessage,
			Action:     events.ActionCreated,
			LandlordID: msg.LandlordID,
			ID:         msg.ID,
		}); err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("mutation not published")
		}
	}
	return &msg, nil
}

// Inbox lists the messages a landlord received.
type Inbox struct {
	store Store
}

// NewInbox creates an inbox reader.
func NewInbox(store Store) *Inbox {
	return &Inbox{store: store}
}

// List returns the landlord's messages, newest first.
func (i *Inbox) List(ctx context.Context, landlordID string) ([]domain.Message, error) {
	msgs, err := i.store.ListMessages(ctx, landlordID)
	if err != nil {
		if database.IsPermissionDenied(err) {
			return nil, apperrors.PermissionDenied("You don't have permission to read these messages.", err)
		}
		return nil, apperrors.Persistence("Failed to load messages.", err)
	}
	return msgs, nil
}
