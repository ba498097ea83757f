package procure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"procurio.org/internal/auth"
	"procurio.org/internal/identity"
	"procurio.org/internal/record"
)

// Permission flags checked for non-admin create operations. They are read
// from the durable user record at call time, not from the token, so a grant
// or revocation takes effect without re-authentication.
const (
	PermPurchaseOrderCreate = "purchase_order_create"
	PermShipmentCreate      = "shipment_create"
)

// Service implements the entity operations over the record store and the
// identity gateway. All methods resolve the caller identity from the request
// context and apply the role, ownership and permission gates before touching
// domain state.
type Service struct {
	records record.Store
	gateway identity.Gateway
	now     func() time.Time
	newID   func() string
}

// Option configures Service construction.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithIDGenerator overrides entity id generation (useful for tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService constructs the entity service.
func NewService(records record.Store, gateway identity.Gateway, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("procure: record store is required")
	}
	if gateway == nil {
		return nil, errors.New("procure: identity gateway is required")
	}
	s := &Service{
		records: records,
		gateway: gateway,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) timestamp() string {
	return formatTime(s.now())
}

// caller resolves the authenticated identity from the context.
func (s *Service) caller(ctx context.Context) (auth.Identity, error) {
	ident, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Identity{}, ErrUnauthenticated
	}
	return ident, nil
}

// requireAdmin is the role gate for admin-only operations.
func (s *Service) requireAdmin(ctx context.Context) (auth.Identity, error) {
	ident, err := s.caller(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	if !ident.IsAdmin() {
		return auth.Identity{}, fmt.Errorf("%w: admin permission required", ErrForbidden)
	}
	return ident, nil
}

// canAccess is the ownership gate: the record's creator or an admin.
func canAccess(ident auth.Identity, createdBy string) bool {
	return ident.IsAdmin() || ident.Subject == createdBy
}

// requirePermission is the permission gate for non-admin create operations.
// Admins bypass it; for everyone else the permission set is looked up fresh
// from the users table.
func (s *Service) requirePermission(ctx context.Context, ident auth.Identity, perm string) error {
	if ident.IsAdmin() {
		return nil
	}
	item, err := s.records.Get(ctx, record.TableUsers, ident.Subject)
	if err != nil {
		if errors.Is(err, record.ErrItemNotFound) {
			return fmt.Errorf("%w: %s permission required", ErrForbidden, perm)
		}
		return err
	}
	for _, p := range itemStringList(item, "permissions") {
		if p == perm {
			return nil
		}
	}
	return fmt.Errorf("%w: %s permission required", ErrForbidden, perm)
}
