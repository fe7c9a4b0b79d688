// Package domain holds the rental records exchanged with the persistence
// service and the inputs accepted by the landlord and tenant operations.
package domain

// Role is the single role assigned to an identity.
type Role string

const (
	RoleUnknown  Role = ""
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
)

// Valid reports whether r is an assignable role.
func (r Role) Valid() bool {
	return r == RoleLandlord || r == RoleTenant
}

// PropertyStatus is the listing state of a property.
type PropertyStatus string

const (
	PropertyAvailable   PropertyStatus = "available"
	PropertyOccupied    PropertyStatus = "occupied"
	PropertyMaintenance PropertyStatus = "maintenance"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyAvailable, PropertyOccupied, PropertyMaintenance:
		return true
	}
	return false
}

// LeaseStatus is the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "active"
	LeaseExpired    LeaseStatus = "expired"
	LeaseTerminated LeaseStatus = "terminated"
)

func (s LeaseStatus) Valid() bool {
	switch s {
	case LeaseActive, LeaseExpired, LeaseTerminated:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of a rent payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
	PaymentPartial PaymentStatus = "partial"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentPartial:
		return true
	}
	return false
}

// Outstanding reports whether the payment still counts as pending for the
// landlord dashboard.
func (s PaymentStatus) Outstanding() bool {
	return s == PaymentPending || s == PaymentOverdue
}

// MessageStatus is the read state of a message.
type MessageStatus string

const (
	MessageNew  MessageStatus = "new"
	MessageRead MessageStatus = "read"
)
