package database

import (
	"context"
	"fmt"

	"github.com/R3E-Network/rentals/internal/domain"
)

// CreateMessage inserts a contact message. The insert policy only admits rows
// whose sender is the caller and differs from the landlord.
func (r *Repository) CreateMessage(ctx context.Context, message *domain.Message) error {
	if message == nil || message.SenderID == "" {
		return fmt.Errorf("create message: %w: sender required", ErrInvalidInput)
	}
	return insertRow(ctx, r.db(ctx).From(TableMessages), message, "create message")
}

// ListMessages returns the messages addressed to a landlord, newest first.
func (r *Repository) ListMessages(ctx context.Context, landlordID string) ([]domain.Message, error) {
	return selectRows[domain.Message](ctx,
		r.db(ctx).From(TableMessages).
			Select("*").
			Eq("landlord_id", landlordID).
			Order("created_at", false),
		"list messages")
}
