package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/rentals/internal/domain"
)

// MockRepository is an in-memory implementation of RepositoryInterface for
// testing. It applies the owner scoping and message insert rules that the
// row-level security policies enforce in production.
type MockRepository struct {
	mu sync.Mutex

	profiles   map[string]*domain.Profile
	roles      map[string]domain.Role
	properties map[string]*record[domain.Property]
	leases     map[string]*record[domain.Lease]
	payments   map[string]*record[domain.Payment]
	messages   map[string]*record[domain.Message]
	seq        int64

	// ErrorOnNextCall fails the next call of any method.
	ErrorOnNextCall error
	// ErrorOn fails every call of the named method, e.g. "CountProperties".
	ErrorOn map[string]error
	// Calls counts invocations per method name.
	Calls map[string]int
}

type record[T any] struct {
	seq int64
	row T
}

// NewMockRepository creates a new mock repository for testing.
func NewMockRepository() *MockRepository {
	m := &MockRepository{}
	m.Reset()
	return m
}

// Reset clears all data in the mock repository.
func (m *MockRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = make(map[string]*domain.Profile)
	m.roles = make(map[string]domain.Role)
	m.properties = make(map[string]*record[domain.Property])
	m.leases = make(map[string]*record[domain.Lease])
	m.payments = make(map[string]*record[domain.Payment])
	m.messages = make(map[string]*record[domain.Message])
	m.ErrorOnNextCall = nil
	m.ErrorOn = make(map[string]error)
	m.Calls = make(map[string]int)
}

var _ RepositoryInterface = (*MockRepository)(nil)

// AddUser seeds a profile and, when role is valid, its role assignment.
func (m *MockRepository) AddUser(profile domain.Profile, role domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := profile
	m.profiles[p.ID] = &p
	if role.Valid() {
		m.roles[p.ID] = role
	}
}

// CallCount returns how many times method was invoked.
func (m *MockRepository) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// begin locks the repository, records the call and returns any injected error.
// The caller must unlock.
func (m *MockRepository) begin(method string) error {
	m.mu.Lock()
	m.Calls[method]++
	if m.ErrorOnNextCall != nil {
		err := m.ErrorOnNextCall
		m.ErrorOnNextCall = nil
		return err
	}
	return m.ErrorOn[method]
}

func (m *MockRepository) next() (string, int64, *time.Time) {
	m.seq++
	now := time.Now().UTC()
	return uuid.NewString(), m.seq, &now
}

// newestFirst returns the rows ordered by insertion, most recent first.
func newestFirst[T any](recs []*record[T]) []T {
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.row)
	}
	return out
}

// =============================================================================
// Identity
// =============================================================================

func (m *MockRepository) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	err := m.begin("GetRole")
	defer m.mu.Unlock()
	if err != nil {
		return domain.RoleUnknown, err
	}
	if userID == "" {
		return domain.RoleUnknown, fmt.Errorf("get role: %w: user id required", ErrInvalidInput)
	}
	return m.roles[userID], nil
}

func (m *MockRepository) FindProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	err := m.begin("FindProfileByEmail")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("find profile: %w: email required", ErrInvalidInput)
	}
	for _, p := range m.profiles {
		if strings.ToLower(p.Email) == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("find profile by email: %w", ErrNotFound)
}

func (m *MockRepository) ListProfiles(ctx context.Context, ids []string) ([]domain.Profile, error) {
	err := m.begin("ListProfiles")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// =============================================================================
// Properties
// =============================================================================

func (m *MockRepository) ListAvailableProperties(ctx context.Context, offset, limit int) ([]domain.Property, error) {
	err := m.begin("ListAvailableProperties")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("list available properties: %w", ErrInvalidInput)
	}
	var recs []*record[domain.Property]
	for _, r := range m.properties {
		if r.row.Status == domain.PropertyAvailable {
			recs = append(recs, r)
		}
	}
	rows := newestFirst(recs)
	if offset >= len(rows) {
		return []domain.Property{}, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (m *MockRepository) ListProperties(ctx context.Context, landlordID string) ([]domain.Property, error) {
	err := m.begin("ListProperties")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var recs []*record[domain.Property]
	for _, r := range m.properties {
		if r.row.LandlordID == landlordID {
			recs = append(recs, r)
		}
	}
	return newestFirst(recs), nil
}

func (m *MockRepository) CountProperties(ctx context.Context, landlordID string) (int, error) {
	err := m.begin("CountProperties")
	defer m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range m.properties {
		if r.row.LandlordID == landlordID {
			n++
		}
	}
	return n, nil
}

func (m *MockRepository) CreateProperty(ctx context.Context, property *domain.Property) error {
	err := m.begin("CreateProperty")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	if property == nil || property.LandlordID == "" {
		return fmt.Errorf("create property: %w: landlord required", ErrInvalidInput)
	}
	id, seq, now := m.next()
	property.ID = id
	property.CreatedAt = now
	property.UpdatedAt = now
	m.properties[id] = &record[domain.Property]{seq: seq, row: *property}
	return nil
}

func (m *MockRepository) UpdateProperty(ctx context.Context, property *domain.Property) error {
	err := m.begin("UpdateProperty")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	if property == nil || property.ID == "" {
		return fmt.Errorf("update property: %w", ErrInvalidInput)
	}
	r, ok := m.properties[property.ID]
	if !ok || r.row.LandlordID != property.LandlordID {
		return fmt.Errorf("update property: %w", ErrNotFound)
	}
	now := time.Now().UTC()
	property.CreatedAt = r.row.CreatedAt
	property.UpdatedAt = &now
	r.row = *property
	return nil
}

func (m *MockRepository) DeleteProperty(ctx context.Context, landlordID, id string) error {
	err := m.begin("DeleteProperty")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	r, ok := m.properties[id]
	if !ok || r.row.LandlordID != landlordID {
		return fmt.Errorf("delete property: %w", ErrNotFound)
	}
	delete(m.properties, id)
	return nil
}

// =============================================================================
// Leases
// =============================================================================

func (m *MockRepository) withProperty(l domain.Lease) domain.Lease {
	if p, ok := m.properties[l.PropertyID]; ok {
		l.Property = &domain.PropertySummary{Name: p.row.Name, Address: p.row.Address, UnitNumber: p.row.UnitNumber}
	}
	return l
}

func (m *MockRepository) ListLeases(ctx context.Context, landlordID string) ([]domain.Lease, error) {
	err := m.begin("ListLeases")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var recs []*record[domain.Lease]
	for _, r := range m.leases {
		if r.row.LandlordID == landlordID {
			recs = append(recs, &record[domain.Lease]{seq: r.seq, row: m.withProperty(r.row)})
		}
	}
	return newestFirst(recs), nil
}

func (m *MockRepository) ListTenantLeases(ctx context.Context, tenantID string) ([]domain.Lease, error) {
	err := m.begin("ListTenantLeases")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var recs []*record[domain.Lease]
	for _, r := range m.leases {
		if r.row.TenantID == tenantID {
			recs = append(recs, &record[domain.Lease]{seq: r.seq, row: m.withProperty(r.row)})
		}
	}
	return newestFirst(recs), nil
}

func (m *MockRepository) CountActiveLeases(ctx context.Context, landlordID string) (int, error) {
	err := m.begin("CountActiveLeases")
	defer m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range m.leases {
		if r.row.LandlordID == landlordID && r.row.Status == domain.LeaseActive {
			n++
		}
	}
	return n, nil
}

func (m *MockRepository) CreateLease(ctx context.Context, lease *domain.Lease) error {
	err := m.begin("CreateLease")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	if lease == nil || lease.LandlordID == "" || lease.TenantID == "" {
		return fmt.Errorf("create lease: %w", ErrInvalidInput)
	}
	if _, ok := m.profiles[lease.TenantID]; !ok {
		return fmt.Errorf("create lease: tenant %s violates foreign key", lease.TenantID)
	}
	if p, ok := m.properties[lease.PropertyID]; !ok || p.row.LandlordID != lease.LandlordID {
		return fmt.Errorf("create lease: %w", ErrPermissionDenied)
	}
	id, seq, now := m.next()
	lease.ID = id
	lease.CreatedAt = now
	m.leases[id] = &record[domain.Lease]{seq: seq, row: *lease}
	return nil
}

func (m *MockRepository) DeleteLease(ctx context.Context, landlordID, id string) error {
	err := m.begin("DeleteLease")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	r, ok := m.leases[id]
	if !ok || r.row.LandlordID != landlordID {
		return fmt.Errorf("delete lease: %w", ErrNotFound)
	}
	delete(m.leases, id)
	return nil
}

// =============================================================================
// Payments
// =============================================================================

func (m *MockRepository) ListPayments(ctx context.Context, landlordID string) ([]domain.Payment, error) {
	err := m.begin("ListPayments")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var recs []*record[domain.Payment]
	for _, r := range m.payments {
		l, ok := m.leases[r.row.LeaseID]
		if !ok || l.row.LandlordID != landlordID {
			continue
		}
		row := r.row
		row.Lease = &domain.PaymentLease{
			LandlordID: l.row.LandlordID,
			PropertyID: l.row.PropertyID,
			Property:   m.withProperty(l.row).Property,
		}
		recs = append(recs, &record[domain.Payment]{seq: r.seq, row: row})
	}
	return newestFirst(recs), nil
}

func (m *MockRepository) CreatePayment(ctx context.Context, landlordID string, payment *domain.Payment) error {
	err := m.begin("CreatePayment")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	if landlordID == "" || payment == nil || payment.LeaseID == "" {
		return fmt.Errorf("create payment: %w", ErrInvalidInput)
	}
	if l, ok := m.leases[payment.LeaseID]; !ok || l.row.LandlordID != landlordID {
		return fmt.Errorf("create payment: find lease: %w", ErrNotFound)
	}
	id, seq, now := m.next()
	payment.ID = id
	payment.CreatedAt = now
	m.payments[id] = &record[domain.Payment]{seq: seq, row: *payment}
	return nil
}

func (m *MockRepository) DeletePayment(ctx context.Context, landlordID, id string) error {
	err := m.begin("DeletePayment")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	r, ok := m.payments[id]
	if !ok {
		return fmt.Errorf("delete payment: %w", ErrNotFound)
	}
	if l, ok := m.leases[r.row.LeaseID]; !ok || l.row.LandlordID != landlordID {
		return fmt.Errorf("delete payment: %w", ErrNotFound)
	}
	delete(m.payments, id)
	return nil
}

// =============================================================================
// Messages
// =============================================================================

func (m *MockRepository) CreateMessage(ctx context.Context, message *domain.Message) error {
	err := m.begin("CreateMessage")
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	if message == nil || message.SenderID == "" {
		return fmt.Errorf("create message: %w", ErrInvalidInput)
	}
	if message.SenderID == message.LandlordID {
		return fmt.Errorf("create message: %w: sender is the landlord", ErrPermissionDenied)
	}
	if p, ok := m.properties[message.PropertyID]; !ok || p.row.LandlordID != message.LandlordID {
		return fmt.Errorf("create message: %w: property not owned by landlord", ErrPermissionDenied)
	}
	id, seq, now := m.next()
	message.ID = id
	message.CreatedAt = now
	if message.Status == "" {
		message.Status = domain.MessageNew
	}
	m.messages[id] = &record[domain.Message]{seq: seq, row: *message}
	return nil
}

func (m *MockRepository) ListMessages(ctx context.Context, landlordID string) ([]domain.Message, error) {
	err := m.begin("ListMessages")
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var recs []*record[domain.Message]
	for _, r := range m.messages {
		if r.row.LandlordID == landlordID {
			recs = append(recs, r)
		}
	}
	return newestFirst(recs), nil
}
