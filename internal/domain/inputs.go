package domain

import (
	"strings"

	apperrors "github.com/R3E-Network/rentals/internal/errors"
)

// MaxMessageLength is the longest message a tenant may send, in characters.
const MaxMessageLength = 500

// PropertyInput is the landlord form for creating or replacing a property.
type PropertyInput struct {
	Name          string         `json:"name" validate:"required"`
	Address       string         `json:"address" validate:"required"`
	UnitNumber    string         `json:"unit_number"`
	RentAmount    *float64       `json:"rent_amount" validate:"required,finite,gte=0"`
	DepositAmount *float64       `json:"deposit_amount" validate:"omitempty,finite,gte=0"`
	Status        PropertyStatus `json:"status" validate:"omitempty,oneof=available occupied maintenance"`
}

// Normalize trims text fields and applies defaults.
func (in *PropertyInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.UnitNumber = strings.TrimSpace(in.UnitNumber)
	if in.Status == "" {
		in.Status = PropertyAvailable
	}
}

// Validate normalizes and checks the input.
func (in *PropertyInput) Validate() []apperrors.FieldError {
	in.Normalize()
	return Check(in)
}

// Property builds the record owned by landlordID. Call after Validate.
func (in PropertyInput) Property(landlordID string) Property {
	p := Property{
		LandlordID:    landlordID,
		Name:          in.Name,
		Address:       in.Address,
		RentAmount:    *in.RentAmount,
		DepositAmount: in.DepositAmount,
		Status:        in.Status,
	}
	if in.UnitNumber != "" {
		unit := in.UnitNumber
		p.UnitNumber = &unit
	}
	return p
}

// LeaseInput is the landlord form for creating a lease.
type LeaseInput struct {
	PropertyID    string   `json:"property_id" validate:"required"`
	TenantEmail   string   `json:"tenant_email" validate:"required,email"`
	StartDate     Date     `json:"start_date"`
	EndDate       Date     `json:"end_date"`
	RentAmount    *float64 `json:"rent_amount" validate:"required,finite,gt=0"`
	DepositAmount *float64 `json:"deposit_amount" validate:"omitempty,finite,gte=0"`
	PaymentDueDay *int     `json:"payment_due_day" validate:"required,min=1,max=31"`
}

// Validate normalizes and checks the input, including the date ordering the
// database enforces with a check constraint.
func (in *LeaseInput) Validate() []apperrors.FieldError {
	in.PropertyID = strings.TrimSpace(in.PropertyID)
	in.TenantEmail = strings.TrimSpace(in.TenantEmail)

	fields := Check(in)
	if in.StartDate.IsZero() {
		fields = append(fields, apperrors.FieldError{Field: "start_date", Message: "is required"})
	}
	if in.EndDate.IsZero() {
		fields = append(fields, apperrors.FieldError{Field: "end_date", Message: "is required"})
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && !in.EndDate.After(in.StartDate) {
		fields = append(fields, apperrors.FieldError{Field: "end_date", Message: "must be after start_date"})
	}
	return fields
}

// Lease builds an active lease for the resolved tenant. Call after Validate.
func (in LeaseInput) Lease(landlordID, tenantID string) Lease {
	return Lease{
		PropertyID:    in.PropertyID,
		TenantID:      tenantID,
		LandlordID:    landlordID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		RentAmount:    *in.RentAmount,
		DepositAmount: in.DepositAmount,
		PaymentDueDay: *in.PaymentDueDay,
		Status:        LeaseActive,
	}
}

// PaymentInput is the landlord form for recording a rent payment.
type PaymentInput struct {
	LeaseID  string        `json:"lease_id" validate:"required"`
	Amount   *float64      `json:"amount" validate:"required,finite,gt=0"`
	DueDate  Date          `json:"due_date"`
	PaidDate *Date         `json:"paid_date"`
	LateFee  *float64      `json:"late_fee" validate:"omitempty,finite,gte=0"`
	Status   PaymentStatus `json:"status" validate:"omitempty,oneof=pending paid overdue partial"`
	Notes    string        `json:"notes"`
}

// Validate normalizes and checks the input.
func (in *PaymentInput) Validate() []apperrors.FieldError {
	in.LeaseID = strings.TrimSpace(in.LeaseID)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Status == "" {
		in.Status = PaymentPending
	}
	fields := Check(in)
	if in.DueDate.IsZero() {
		fields = append(fields, apperrors.FieldError{Field: "due_date", Message: "is required"})
	}
	return fields
}

// Payment builds the record. Call after Validate.
func (in PaymentInput) Payment() Payment {
	p := Payment{
		LeaseID:  in.LeaseID,
		Amount:   *in.Amount,
		DueDate:  in.DueDate,
		PaidDate: in.PaidDate,
		Status:   in.Status,
	}
	if in.LateFee != nil {
		p.LateFee = *in.LateFee
	}
	if in.Notes != "" {
		notes := in.Notes
		p.Notes = &notes
	}
	return p
}

// MessageDraft is what a prospective tenant composes.
type MessageDraft struct {
	PropertyID string `json:"property_id" validate:"required"`
	LandlordID string `json:"landlord_id" validate:"required"`
	Message    string `json:"message" validate:"required,max=500"`
}

// Validate trims the text and checks its length in characters.
func (d *MessageDraft) Validate() []apperrors.FieldError {
	d.Message = strings.TrimSpace(d.Message)
	return Check(d)
}
