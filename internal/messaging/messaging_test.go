package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/events"
	"github.com/R3E-Network/rentals/internal/logging"
)

func setup(t *testing.T) (*database.MockRepository, *domain.Property) {
	t.Helper()
	repo := database.NewMockRepository()
	p := &domain.Property{LandlordID: "lee", Name: "Loft", Status: domain.PropertyAvailable}
	require.NoError(t, repo.CreateProperty(context.Background(), p))
	return repo, p
}

func TestSend_StoresTrimmedMessage(t *testing.T) {
	repo, p := setup(t)
	bus := events.NewBus()
	var published []events.Mutation
	bus.Subscribe(func(ctx context.Context, m events.Mutation) { published = append(published, m) })

	msg, err := NewComposer(repo, bus, logging.NewNop()).Send(context.Background(), "tia", domain.MessageDraft{
		PropertyID: p.ID, LandlordID: "lee", Message: "  Is the loft still available?  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Is the loft still available?", msg.Message)
	assert.Equal(t, "tia", msg.SenderID)
	assert.Equal(t, domain.MessageNew, msg.Status)
	require.Len(t, published, 1)
	assert.Equal(t, events.EntityMessage, published[0].Entity)

	inbox, err := NewInbox(repo).List(context.Background(), "lee")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, msg.ID, inbox[0].ID)
}

func TestSend_Length(t *testing.T) {
	repo, p := setup(t)
	c := NewComposer(repo, nil, logging.NewNop())
	ctx := context.Background()

	_, err := c.Send(ctx, "tia", domain.MessageDraft{PropertyID: p.ID, LandlordID: "lee", Message: strings.Repeat("a", 500)})
	assert.NoError(t, err)

	_, err = c.Send(ctx, "tia", domain.MessageDraft{PropertyID: p.ID, LandlordID: "lee", Message: strings.Repeat("a", 501)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = c.Send(ctx, "tia", domain.MessageDraft{PropertyID: p.ID, LandlordID: "lee", Message: " \n\t "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	assert.Equal(t, 1, repo.CallCount("CreateMessage"))
}

func TestSend_PolicyRejectionIsPermissionDenied(t *testing.T) {
	repo, p := setup(t)

	_, err := NewComposer(repo, nil, logging.NewNop()).Send(context.Background(), "lee", domain.MessageDraft{
		PropertyID: p.ID, LandlordID: "lee", Message: "talking to myself",
	})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, apperrors.CodePermissionDenied, se.Code)
	assert.Equal(t, MsgPermissionDenied, se.Message)
}

func TestSend_OtherFailureIsGeneric(t *testing.T) {
	repo, p := setup(t)
	repo.ErrorOn["CreateMessage"] = errors.New("connection reset")

	_, err := NewComposer(repo, nil, logging.NewNop()).Send(context.Background(), "tia", domain.MessageDraft{
		PropertyID: p.ID, LandlordID: "lee", Message: "hello",
	})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, apperrors.CodePersistenceFailed, se.Code)
	assert.Equal(t, MsgSendFailed, se.Message)
}

func TestSend_RequiresSender(t *testing.T) {
	repo, p := setup(t)
	_, err := NewComposer(repo, nil, logging.NewNop()).Send(context.Background(), "", domain.MessageDraft{
		PropertyID: p.ID, LandlordID: "lee", Message: "hello",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthRequired))
}
