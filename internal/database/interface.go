package database

import (
	"context"

	"github.com/R3E-Network/rentals/internal/domain"
)

// RepositoryInterface is the persistence surface used by the services.
type RepositoryInterface interface {
	// Identity
	GetRole(ctx context.Context, userID string) (domain.Role, error)
	FindProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	ListProfiles(ctx context.Context, ids []string) ([]domain.Profile, error)

	// Properties
	ListAvailableProperties(ctx context.Context, offset, limit int) ([]domain.Property, error)
	ListProperties(ctx context.Context, landlordID string) ([]domain.Property, error)
	CountProperties(ctx context.Context, landlordID string) (int, error)
	CreateProperty(ctx context.Context, property *domain.Property) error
	UpdateProperty(ctx context.Context, property *domain.Property) error
	DeleteProperty(ctx context.Context, landlordID, id string) error

	// Leases
	ListLeases(ctx context.Context, landlordID string) ([]domain.Lease, error)
	ListTenantLeases(ctx context.Context, tenantID string) ([]domain.Lease, error)
	CountActiveLeases(ctx context.Context, landlordID string) (int, error)
	CreateLease(ctx context.Context, lease *domain.Lease) error
	DeleteLease(ctx context.Context, landlordID, id string) error

	// Payments
	ListPayments(ctx context.Context, landlordID string) ([]domain.Payment, error)
	CreatePayment(ctx context.Context, landlordID string, payment *domain.Payment) error
	DeletePayment(ctx context.Context, landlordID, id string) error

	// Messages
	CreateMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, landlordID string) ([]domain.Message, error)
}
