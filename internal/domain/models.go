package domain

import "time"

// Profile is the public identity record created by the signup trigger.
type Profile struct {
	ID        string     `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RoleAssignment is the user_roles row of an identity.
type RoleAssignment struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Property is a rentable unit owned by one landlord.
type Property struct {
	ID            string         `json:"id,omitempty"`
	LandlordID    string         `json:"landlord_id"`
	Name          string         `json:"name"`
	Address       string         `json:"address"`
	UnitNumber    *string        `json:"unit_number"`
	RentAmount    float64        `json:"rent_amount"`
	DepositAmount *float64       `json:"deposit_amount"`
	Status        PropertyStatus `json:"status"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

// PropertySummary is the embedded property shape returned with leases and
// payments.
type PropertySummary struct {
	Name       string  `json:"name"`
	Address    string  `json:"address,omitempty"`
	UnitNumber *string `json:"unit_number,omitempty"`
}

// Lease binds a tenant to a property.
type Lease struct {
	ID            string           `json:"id,omitempty"`
	PropertyID    string           `json:"property_id"`
	TenantID      string           `json:"tenant_id"`
	LandlordID    string           `json:"landlord_id"`
	StartDate     Date             `json:"start_date"`
	EndDate       Date             `json:"end_date"`
	RentAmount    float64          `json:"rent_amount"`
	DepositAmount *float64         `json:"deposit_amount"`
	PaymentDueDay int              `json:"payment_due_day"`
	Status        LeaseStatus      `json:"status"`
	CreatedAt     *time.Time       `json:"created_at,omitempty"`
	Property      *PropertySummary `json:"properties,omitempty"`
}

// LeaseView is a lease joined with its tenant's profile.
type LeaseView struct {
	Lease
	Tenant *Profile `json:"tenant,omitempty"`
}

// PaymentLease is the embedded lease shape returned with payments.
type PaymentLease struct {
	LandlordID string           `json:"landlord_id,omitempty"`
	PropertyID string           `json:"property_id,omitempty"`
	Property   *PropertySummary `json:"properties,omitempty"`
}

// Payment is one rent installment of a lease.
type Payment struct {
	ID        string        `json:"id,omitempty"`
	LeaseID   string        `json:"lease_id"`
	Amount    float64       `json:"amount"`
	DueDate   Date          `json:"due_date"`
	PaidDate  *Date         `json:"paid_date,omitempty"`
	LateFee   float64       `json:"late_fee"`
	Status    PaymentStatus `json:"status"`
	Notes     *string       `json:"notes,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	Lease     *PaymentLease `json:"leases,omitempty"`
}

// Total is the amount collected for a paid installment, late fee included.
func (p Payment) Total() float64 {
	return p.Amount + p.LateFee
}

// Message is a contact request from a prospective tenant to a landlord.
type Message struct {
	ID         string        `json:"id,omitempty"`
	PropertyID string        `json:"property_id"`
	LandlordID string        `json:"landlord_id"`
	SenderID   string        `json:"sender_id"`
	Message    string        `json:"message"`
	Status     MessageStatus `json:"status"`
	CreatedAt  *time.Time    `json:"created_at,omitempty"`
}
