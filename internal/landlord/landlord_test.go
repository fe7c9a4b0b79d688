package landlord

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/events"
	"github.com/R3E-Network/rentals/internal/logging"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int         { return &v }

type harness struct {
	repo *database.MockRepository
	bus  *events.Bus
	mgrs *Managers
	seen []events.Mutation
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{repo: database.NewMockRepository(), bus: events.NewBus()}
	h.repo.AddUser(domain.Profile{ID: "lee", Email: "lee@example.com", FullName: "Lee"}, domain.RoleLandlord)
	h.repo.AddUser(domain.Profile{ID: "tia", Email: "tia@example.com", FullName: "Tia"}, domain.RoleTenant)
	h.bus.Subscribe(func(ctx context.Context, m events.Mutation) { h.seen = append(h.seen, m) })
	h.mgrs = New(h.repo, h.bus, logging.NewNop())
	return h
}

func (h *harness) property(t *testing.T) *domain.Property {
	t.Helper()
	p, err := h.mgrs.Properties.Create(context.Background(), "lee", domain.PropertyInput{
		Name: "Loft", Address: "1 Main St", RentAmount: f64(1200),
	})
	require.NoError(t, err)
	return p
}

func leaseInput(propertyID string) domain.LeaseInput {
	return domain.LeaseInput{
		PropertyID:    propertyID,
		TenantEmail:   "tia@example.com",
		StartDate:     domain.NewDate(2024, 1, 1),
		EndDate:       domain.NewDate(2024, 12, 31),
		RentAmount:    f64(1200),
		PaymentDueDay: intp(1),
	}
}

func TestPropertyManager_CreateDefaultsAndPublishes(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.PropertyAvailable, p.Status)
	assert.Equal(t, "lee", p.LandlordID)
	require.Len(t, h.seen, 1)
	assert.Equal(t, events.Mutation{Entity: events.EntityProperty, Action: events.ActionCreated, LandlordID: "lee", ID: p.ID, At: h.seen[0].At}, h.seen[0])
}

func TestPropertyManager_ValidationBeforePersistence(t *testing.T) {
	h := newHarness(t)
	_, err := h.mgrs.Properties.Create(context.Background(), "lee", domain.PropertyInput{
		Name: "  ", Address: "1 Main", RentAmount: f64(-5),
	})

	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, apperrors.CodeValidationFailed, se.Code)
	assert.Len(t, se.Fields, 2)
	assert.Zero(t, h.repo.CallCount("CreateProperty"))
	assert.Empty(t, h.seen)
}

func TestPropertyManager_UpdateReplacesRecord(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)

	updated, err := h.mgrs.Properties.Update(context.Background(), "lee", p.ID, domain.PropertyInput{
		Name: "Loft 2", Address: "2 Main St", RentAmount: f64(1300), Status: domain.PropertyMaintenance,
	})
	require.NoError(t, err)
	assert.Equal(t, "Loft 2", updated.Name)

	list, err := h.mgrs.Properties.List(context.Background(), "lee")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.PropertyMaintenance, list[0].Status)
	assert.Nil(t, list[0].UnitNumber)
	assert.Equal(t, events.ActionUpdated, h.seen[len(h.seen)-1].Action)
}

func TestPropertyManager_UpdateOtherLandlordsPropertyIsNotFound(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)

	_, err := h.mgrs.Properties.Update(context.Background(), "someone-else", p.ID, domain.PropertyInput{
		Name: "x", Address: "y", RentAmount: f64(1),
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestPropertyManager_DeleteRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)
	ctx := context.Background()

	var prompt string
	decline := ConfirmFunc(func(ctx context.Context, p string) (bool, error) {
		prompt = p
		return false, nil
	})
	err := h.mgrs.Properties.Delete(ctx, "lee", p.ID, decline)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotConfirmed))
	assert.Equal(t, "Are you sure you want to delete this property?", prompt)
	assert.Zero(t, h.repo.CallCount("DeleteProperty"))

	assert.True(t, apperrors.HasCode(h.mgrs.Properties.Delete(ctx, "lee", p.ID, nil), apperrors.CodeNotConfirmed))

	require.NoError(t, h.mgrs.Properties.Delete(ctx, "lee", p.ID, Preconfirmed(true)))
	list, err := h.mgrs.Properties.List(ctx, "lee")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, events.ActionDeleted, h.seen[len(h.seen)-1].Action)
}

func TestPropertyManager_ConfirmerErrorIsInternal(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)
	broken := ConfirmFunc(func(context.Context, string) (bool, error) { return false, errors.New("stdin closed") })

	err := h.mgrs.Properties.Delete(context.Background(), "lee", p.ID, broken)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}

func TestLeaseManager_CreateResolvesTenant(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)

	in := leaseInput(p.ID)
	in.TenantEmail = "  TIA@example.com "
	lease, err := h.mgrs.Leases.Create(context.Background(), "lee", in)
	require.NoError(t, err)
	assert.Equal(t, "tia", lease.TenantID)
	assert.Equal(t, domain.LeaseActive, lease.Status)
	assert.Equal(t, events.EntityLease, h.seen[len(h.seen)-1].Entity)
}

func TestLeaseManager_UnknownTenant(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)

	in := leaseInput(p.ID)
	in.TenantEmail = "nobody@example.com"
	_, err := h.mgrs.Leases.Create(context.Background(), "lee", in)

	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, apperrors.CodeTenantNotFound, se.Code)
	assert.Equal(t, "nobody@example.com", se.Details["email"])
	assert.Zero(t, h.repo.CallCount("CreateLease"))
}

func TestLeaseManager_ValidationSkipsLookup(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)

	for name, mutate := range map[string]func(*domain.LeaseInput){
		"zero rent":      func(in *domain.LeaseInput) { in.RentAmount = f64(0) },
		"due day 0":      func(in *domain.LeaseInput) { in.PaymentDueDay = intp(0) },
		"due day 32":     func(in *domain.LeaseInput) { in.PaymentDueDay = intp(32) },
		"end before":     func(in *domain.LeaseInput) { in.EndDate = domain.NewDate(2023, 12, 31) },
		"negative depot": func(in *domain.LeaseInput) { in.DepositAmount = f64(-1) },
	} {
		t.Run(name, func(t *testing.T) {
			in := leaseInput(p.ID)
			mutate(&in)
			_, err := h.mgrs.Leases.Create(context.Background(), "lee", in)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
		})
	}
	assert.Zero(t, h.repo.CallCount("FindProfileByEmail"))
}

func TestLeaseManager_ListJoinsTenantProfiles(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)
	ctx := context.Background()

	_, err := h.mgrs.Leases.Create(ctx, "lee", leaseInput(p.ID))
	require.NoError(t, err)
	_, err = h.mgrs.Leases.Create(ctx, "lee", leaseInput(p.ID))
	require.NoError(t, err)

	views, err := h.mgrs.Leases.List(ctx, "lee")
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		require.NotNil(t, v.Tenant)
		assert.Equal(t, "Tia", v.Tenant.FullName)
		require.NotNil(t, v.Property)
		assert.Equal(t, "Loft", v.Property.Name)
	}
	assert.Equal(t, 1, h.repo.CallCount("ListProfiles"))

	mine, err := h.mgrs.Leases.ListForTenant(ctx, "tia")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestLeaseManager_ListFailure(t *testing.T) {
	h := newHarness(t)
	h.repo.ErrorOn["ListLeases"] = errors.New("boom")

	_, err := h.mgrs.Leases.List(context.Background(), "lee")
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistenceFailed))
}

func TestPaymentManager_CreateAndDelete(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)
	ctx := context.Background()
	lease, err := h.mgrs.Leases.Create(ctx, "lee", leaseInput(p.ID))
	require.NoError(t, err)

	_, err = h.mgrs.Payments.Create(ctx, "lee", domain.PaymentInput{LeaseID: lease.ID, Amount: f64(0), DueDate: domain.NewDate(2024, 2, 1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	pay, err := h.mgrs.Payments.Create(ctx, "lee", domain.PaymentInput{LeaseID: lease.ID, Amount: f64(1200), DueDate: domain.NewDate(2024, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, pay.Status)

	list, err := h.mgrs.Payments.List(ctx, "lee")
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.True(t, apperrors.HasCode(h.mgrs.Payments.Delete(ctx, "other", pay.ID, Preconfirmed(true)), apperrors.CodeNotFound))
	require.NoError(t, h.mgrs.Payments.Delete(ctx, "lee", pay.ID, Preconfirmed(true)))
	assert.Equal(t, events.Mutation{Entity: events.EntityPayment, Action: events.ActionDeleted, LandlordID: "lee", ID: pay.ID, At: h.seen[len(h.seen)-1].At}, h.seen[len(h.seen)-1])
}

func TestPaymentManager_CreateOnOtherLandlordsLease(t *testing.T) {
	h := newHarness(t)
	p := h.property(t)
	ctx := context.Background()
	lease, err := h.mgrs.Leases.Create(ctx, "lee", leaseInput(p.ID))
	require.NoError(t, err)
	published := len(h.seen)

	_, err = h.mgrs.Payments.Create(ctx, "other", domain.PaymentInput{LeaseID: lease.ID, Amount: f64(1200), DueDate: domain.NewDate(2024, 2, 1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Len(t, h.seen, published)

	list, err := h.mgrs.Payments.List(ctx, "lee")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStoreError_PermissionDenied(t *testing.T) {
	err := storeError("x", database.ErrPermissionDenied)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}
