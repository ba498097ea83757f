package procure

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurio.org/internal/auth"
	"procurio.org/internal/identity"
	"procurio.org/internal/record"
)

type fixture struct {
	svc     *Service
	records *record.Memory
	gateway *identity.Local
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	records := record.NewMemory()
	gateway, err := identity.NewLocal("test-secret")
	require.NoError(t, err)

	var (
		seq  int
		tick = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	)
	svc, err := NewService(records, gateway,
		WithClock(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%04d", seq)
		}),
	)
	require.NoError(t, err)
	return &fixture{svc: svc, records: records, gateway: gateway}
}

func adminCtx() context.Context {
	return auth.ContextWithIdentity(context.Background(), auth.Identity{
		Subject: "admin-1",
		Email:   "admin@example.com",
		Role:    auth.RoleAdmin,
	})
}

func userCtx(subject string) context.Context {
	return auth.ContextWithIdentity(context.Background(), auth.Identity{
		Subject: subject,
		Email:   subject + "@example.com",
		Role:    auth.RoleUser,
	})
}

// seedUser writes a durable user record directly, bypassing the gateway.
func (f *fixture) seedUser(t *testing.T, subject string, perms ...string) {
	t.Helper()
	u := User{
		ID:          subject,
		Email:       subject + "@example.com",
		Role:        auth.RoleUser,
		Permissions: perms,
		CreatedAt:   "2026-09-01T00:00:00.000000Z",
		UpdatedAt:   "2026-09-01T00:00:00.000000Z",
	}
	if u.Permissions == nil {
		u.Permissions = []string{}
	}
	require.NoError(t, f.records.Put(context.Background(), record.TableUsers, u.ToItem()))
}

func (f *fixture) createOrder(t *testing.T, ctx context.Context) PurchaseOrder {
	t.Helper()
	order, err := f.svc.CreateOrder(ctx, OrderInput{
		Supplier:    "Acme Industrial",
		Items:       []LineItem{{Name: "bolt", Quantity: 100, UnitPrice: 0.25}},
		TotalAmount: 25,
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderStartsAsDraft(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, adminCtx())

	assert.Equal(t, OrderDraft, order.Status)
	assert.Equal(t, "admin-1", order.CreatedBy)
	assert.NotEmpty(t, order.CreatedAt)
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	_, err := f.svc.CreateOrder(ctx, OrderInput{
		Items:       []LineItem{{Name: "bolt", Quantity: 1, UnitPrice: 1}},
		TotalAmount: 1,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "supplier")

	_, err = f.svc.CreateOrder(ctx, OrderInput{Supplier: "Acme", TotalAmount: 1})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "non-empty list")

	_, err = f.svc.CreateOrder(ctx, OrderInput{
		Supplier:    "Acme",
		Items:       []LineItem{{Name: "bolt", Quantity: 0, UnitPrice: 1}},
		TotalAmount: 1,
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.CreateOrder(ctx, OrderInput{
		Supplier:    "Acme",
		Items:       []LineItem{{Name: "bolt", Quantity: 1, UnitPrice: 1}},
		TotalAmount: -5,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "positive number")
}

func TestCreateOrderPermissionGate(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "buyer-1")

	_, err := f.svc.CreateOrder(userCtx("buyer-1"), OrderInput{
		Supplier:    "Acme",
		Items:       []LineItem{{Name: "bolt", Quantity: 1, UnitPrice: 1}},
		TotalAmount: 1,
	})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), PermPurchaseOrderCreate)
}

func TestPermissionGrantTakesEffectWithoutReauth(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "buyer-1")
	ctx := userCtx("buyer-1")

	input := OrderInput{
		Supplier:    "Acme",
		Items:       []LineItem{{Name: "bolt", Quantity: 1, UnitPrice: 1}},
		TotalAmount: 1,
	}
	_, err := f.svc.CreateOrder(ctx, input)
	require.ErrorIs(t, err, ErrForbidden)

	// Grant lands in the durable record; the same context now passes.
	f.seedUser(t, "buyer-1", PermPurchaseOrderCreate)
	_, err = f.svc.CreateOrder(ctx, input)
	require.NoError(t, err)
}

func TestOrderOwnershipGate(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "buyer-1", PermPurchaseOrderCreate)
	f.seedUser(t, "buyer-2", PermPurchaseOrderCreate)

	order := f.createOrder(t, userCtx("buyer-1"))

	_, err := f.svc.GetOrder(userCtx("buyer-2"), order.ID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := f.svc.GetOrder(userCtx("buyer-1"), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = f.svc.GetOrder(adminCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestListOrdersFiltersByCreator(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "buyer-1", PermPurchaseOrderCreate)
	f.seedUser(t, "buyer-2", PermPurchaseOrderCreate)

	first := f.createOrder(t, userCtx("buyer-1"))
	second := f.createOrder(t, userCtx("buyer-2"))

	mine, err := f.svc.ListOrders(userCtx("buyer-1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	all, err := f.svc.ListOrders(adminCtx())
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestUpdateOrderPermissiveStatusChanges(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()
	order := f.createOrder(t, ctx)

	// Any member of the status set is accepted, regardless of the current one.
	for _, status := range []string{"approved", "draft", "cancelled", "pending"} {
		got, err := f.svc.UpdateOrder(ctx, order.ID, OrderUpdate{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, OrderStatus(status), got.Status)
	}

	bogus := "shipped"
	_, err := f.svc.UpdateOrder(ctx, order.ID, OrderUpdate{Status: &bogus})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateOrderRequiresFields(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()
	order := f.createOrder(t, ctx)

	_, err := f.svc.UpdateOrder(ctx, order.ID, OrderUpdate{})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "no valid fields")
}

func TestUpdateOrderTouchesUpdatedAtOnly(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()
	order := f.createOrder(t, ctx)

	supplier := "Globex"
	got, err := f.svc.UpdateOrder(ctx, order.ID, OrderUpdate{Supplier: &supplier})
	require.NoError(t, err)
	assert.Equal(t, order.CreatedAt, got.CreatedAt)
	assert.Greater(t, got.UpdatedAt, order.UpdatedAt)
	assert.Equal(t, "Globex", got.Supplier)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()
	order := f.createOrder(t, ctx)

	require.NoError(t, f.svc.DeleteOrder(ctx, order.ID))
	_, err := f.svc.GetOrder(ctx, order.ID)
	require.ErrorIs(t, err, ErrNotFound)

	err = f.svc.DeleteOrder(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func (f *fixture) createShipment(t *testing.T, ctx context.Context, poID string) Shipment {
	t.Helper()
	sh, err := f.svc.CreateShipment(ctx, ShipmentInput{
		POID:           poID,
		TrackingNumber: "TRK-1",
		Carrier:        "DHL",
	})
	require.NoError(t, err)
	return sh
}

func TestCreateShipmentChecksOrderExists(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	_, err := f.svc.CreateShipment(ctx, ShipmentInput{
		POID:           "missing-po",
		TrackingNumber: "TRK-1",
		Carrier:        "DHL",
	})
	// Dangling reference is a bad request, not a missing resource.
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "purchase order not found")

	order := f.createOrder(t, ctx)
	sh := f.createShipment(t, ctx, order.ID)
	assert.Equal(t, ShipmentPending, sh.Status)
	assert.Nil(t, sh.ActualDelivery)
}

func TestDeliveredStampsActualDeliveryOnce(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()
	order := f.createOrder(t, ctx)
	sh := f.createShipment(t, ctx, order.ID)

	delivered := "delivered"
	got, err := f.svc.UpdateShipment(ctx, sh.ID, ShipmentUpdate{Status: &delivered})
	require.NoError(t, err)
	require.NotNil(t, got.ActualDelivery)
	stamped := *got.ActualDelivery

	// A second transition to delivered must not move the stamp.
	pending := "pending"
	_, err = f.svc.UpdateShipment(ctx, sh.ID, ShipmentUpdate{Status: &pending})
	require.NoError(t, err)
	got, err = f.svc.UpdateShipment(ctx, sh.ID, ShipmentUpdate{Status: &delivered})
	require.NoError(t, err)
	require.NotNil(t, got.ActualDelivery)
	assert.Equal(t, stamped, *got.ActualDelivery)
}

func TestExplicitActualDeliveryWinsOverStamp(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()
	order := f.createOrder(t, ctx)
	sh := f.createShipment(t, ctx, order.ID)

	delivered := "delivered"
	explicit := "2026-08-30T09:00:00.000000Z"
	got, err := f.svc.UpdateShipment(ctx, sh.ID, ShipmentUpdate{
		Status:         &delivered,
		ActualDelivery: &explicit,
	})
	require.NoError(t, err)
	require.NotNil(t, got.ActualDelivery)
	assert.Equal(t, explicit, *got.ActualDelivery)
}

func TestListShipmentsByOrderKeepsOwnershipFilter(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "buyer-1", PermPurchaseOrderCreate, PermShipmentCreate)
	f.seedUser(t, "buyer-2", PermShipmentCreate)
	ctx1 := userCtx("buyer-1")

	order := f.createOrder(t, ctx1)
	mine := f.createShipment(t, ctx1, order.ID)
	theirs := f.createShipment(t, adminCtx(), order.ID)

	got, err := f.svc.ListShipments(ctx1, order.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)

	all, err := f.svc.ListShipments(adminCtx(), order.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// buyer-2 created nothing under this order.
	none, err := f.svc.ListShipments(userCtx("buyer-2"), order.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
	_ = theirs
}

func TestShipmentPermissionGate(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "buyer-1")
	order := f.createOrder(t, adminCtx())

	_, err := f.svc.CreateShipment(userCtx("buyer-1"), ShipmentInput{
		POID:           order.ID,
		TrackingNumber: "TRK-1",
		Carrier:        "DHL",
	})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), PermShipmentCreate)
}

func TestUnauthenticatedCallsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListOrders(ctx)
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.ListShipments(ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.ListUsers(ctx)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRegisterUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterUser(ctx, UserInput{Password: "pw"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "email")

	_, err = f.svc.RegisterUser(ctx, UserInput{Email: "a@b.co"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "password")

	_, err = f.svc.RegisterUser(ctx, UserInput{Email: "not-an-email", Password: "pw"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "invalid email format")

	_, err = f.svc.RegisterUser(ctx, UserInput{Email: "a@b.co", Password: "pw", Role: "superuser"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "invalid role")
}

func TestRegisterUserConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RegisterUser(ctx, UserInput{Email: "Buyer@Example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", first.Email)
	assert.Equal(t, auth.RoleUser, first.Role)
	assert.NotNil(t, first.Permissions)

	_, err = f.svc.RegisterUser(ctx, UserInput{Email: "buyer@example.com", Password: "pw2"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "user already exists")
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := userCtx("buyer-1")

	_, err := f.svc.ListUsers(ctx)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateUser(ctx, UserInput{Email: "a@b.co", Password: "pw"})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateUser(ctx, "someone", UserUpdate{})
	require.ErrorIs(t, err, ErrForbidden)
	err = f.svc.DeleteUser(ctx, "someone")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateUserRoleAndPermissions(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateUser(adminCtx(), UserInput{Email: "buyer@example.com", Password: "pw"})
	require.NoError(t, err)

	role := "admin"
	perms := []string{PermPurchaseOrderCreate}
	got, err := f.svc.UpdateUser(adminCtx(), created.ID, UserUpdate{
		Role:        &role,
		Permissions: &perms,
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, got.Role)
	assert.Equal(t, perms, got.Permissions)

	// The role change reaches the identity provider: the next login carries it.
	_, ident, err := f.gateway.Authenticate(context.Background(), "buyer@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, ident.Role)

	bad := "owner"
	_, err = f.svc.UpdateUser(adminCtx(), created.ID, UserUpdate{Role: &bad})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateUser(adminCtx(), created.ID, UserUpdate{})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "no valid fields")

	_, err = f.svc.UpdateUser(adminCtx(), "missing", UserUpdate{Role: &role})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserGuards(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateUser(adminCtx(), UserInput{Email: "buyer@example.com", Password: "pw"})
	require.NoError(t, err)

	// Admin cannot remove the account it is logged in as.
	selfCtx := auth.ContextWithIdentity(context.Background(), auth.Identity{
		Subject: created.ID,
		Email:   created.Email,
		Role:    auth.RoleAdmin,
	})
	err = f.svc.DeleteUser(selfCtx, created.ID)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "cannot delete your own account")

	require.NoError(t, f.svc.DeleteUser(adminCtx(), created.ID))
	err = f.svc.DeleteUser(adminCtx(), created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserToleratesMissingIdentity(t *testing.T) {
	f := newFixture(t)
	// Record exists but the provider never heard of the subject.
	f.seedUser(t, "ghost-1")

	require.NoError(t, f.svc.DeleteUser(adminCtx(), "ghost-1"))
	_, err := f.records.Get(context.Background(), record.TableUsers, "ghost-1")
	require.ErrorIs(t, err, record.ErrItemNotFound)
}

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RegisterUser(context.Background(), UserInput{Email: "buyer@example.com", Password: "pw"})
	require.NoError(t, err)

	session, err := f.svc.Login(context.Background(), "buyer@example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Tokens.AccessToken)
	assert.Equal(t, "buyer@example.com", session.User.Email)

	_, err = f.svc.Login(context.Background(), "buyer@example.com", "wrong")
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Contains(t, err.Error(), "invalid email or password")

	_, err = f.svc.Login(context.Background(), "nobody@example.com", "pw")
	require.ErrorIs(t, err, ErrUnauthenticated)

	ctx := auth.ContextWithIdentity(context.Background(), session.User)
	ctx = auth.ContextWithToken(ctx, session.Tokens.AccessToken)
	require.NoError(t, f.svc.Logout(ctx))

	_, err = f.gateway.VerifyToken(context.Background(), session.Tokens.AccessToken)
	require.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestCorruptRecordMapsToInternal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.records.Put(context.Background(), record.TablePurchaseOrders, record.Item{
		"po_id":      "po-bad",
		"status":     "garbled",
		"created_by": "admin-1",
	}))

	_, err := f.svc.GetOrder(adminCtx(), "po-bad")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCorruptRecord)
	assert.False(t, errors.Is(err, ErrInvalidInput))
}
