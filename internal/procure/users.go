package procure

import (
	"context"
	"errors"
	"fmt"

	"procurio.org/internal/auth"
	"procurio.org/internal/identity"
	"procurio.org/internal/record"
)

// UserInput carries the fields accepted when registering a user. An empty
// Role defaults to the regular user role.
type UserInput struct {
	Email       string
	Password    string
	Role        string
	Permissions []string
}

// UserUpdate carries the admin-mutable fields. Nil fields are left untouched.
type UserUpdate struct {
	Role        *string
	Permissions *[]string
}

func (u UserUpdate) empty() bool {
	return u.Role == nil && u.Permissions == nil
}

// ListUsers returns all users, newest first. Admin only.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	items, err := s.records.Scan(ctx, record.TableUsers, nil)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(items))
	for _, item := range items {
		u, err := UserFromItem(item)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	sortByCreatedAtDesc(users, func(u User) string { return u.CreatedAt })
	return users, nil
}

// CreateUser registers a user on behalf of an administrator.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (User, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return User{}, err
	}
	return s.register(ctx, in)
}

// RegisterUser is the unauthenticated registration path.
func (s *Service) RegisterUser(ctx context.Context, in UserInput) (User, error) {
	return s.register(ctx, in)
}

func (s *Service) register(ctx context.Context, in UserInput) (User, error) {
	if in.Email == "" {
		return User{}, fmt.Errorf("%w: missing required field: email", ErrInvalidInput)
	}
	if in.Password == "" {
		return User{}, fmt.Errorf("%w: missing required field: password", ErrInvalidInput)
	}
	email := normalizeEmail(in.Email)
	if !ValidEmail(email) {
		return User{}, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	role := auth.RoleUser
	if in.Role != "" {
		parsed, err := auth.ParseRole(in.Role)
		if err != nil {
			return User{}, fmt.Errorf("%w: invalid role", ErrInvalidInput)
		}
		role = parsed
	}

	subject, err := s.gateway.CreateIdentity(ctx, email, in.Password, identity.Attributes{Role: role})
	if err != nil {
		if errors.Is(err, identity.ErrIdentityExists) {
			return User{}, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		return User{}, err
	}

	now := s.timestamp()
	u := User{
		ID:          subject,
		Email:       email,
		Role:        role,
		Permissions: in.Permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if u.Permissions == nil {
		u.Permissions = []string{}
	}
	if err := s.records.Put(ctx, record.TableUsers, u.ToItem()); err != nil {
		return User{}, err
	}
	return u, nil
}

// UpdateUser applies role and permission changes. A role change is pushed to
// the identity provider before the durable record is rewritten. Admin only.
func (s *Service) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return User{}, err
	}
	u, err := s.loadUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if upd.empty() {
		return User{}, fmt.Errorf("%w: no valid fields to update", ErrInvalidInput)
	}

	if upd.Role != nil {
		role, err := auth.ParseRole(*upd.Role)
		if err != nil {
			return User{}, fmt.Errorf("%w: invalid role", ErrInvalidInput)
		}
		if err := s.gateway.UpdateAttributes(ctx, u.ID, identity.Attributes{Role: role}); err != nil {
			return User{}, err
		}
		u.Role = role
	}
	if upd.Permissions != nil {
		perms := *upd.Permissions
		if perms == nil {
			perms = []string{}
		}
		u.Permissions = perms
	}

	u.UpdatedAt = s.timestamp()
	if err := s.records.Put(ctx, record.TableUsers, u.ToItem()); err != nil {
		return User{}, err
	}
	return u, nil
}

// DeleteUser removes a user from the provider and the durable record. Admins
// cannot delete their own account. A provider-side missing identity is
// tolerated so a half-deleted user can still be cleaned up.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	ident, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}
	u, err := s.loadUser(ctx, id)
	if err != nil {
		return err
	}
	if ident.Subject == u.ID {
		return fmt.Errorf("%w: cannot delete your own account", ErrInvalidInput)
	}
	if err := s.gateway.DeleteIdentity(ctx, u.ID); err != nil && !errors.Is(err, identity.ErrIdentityNotFound) {
		return err
	}
	return s.records.Delete(ctx, record.TableUsers, u.ID)
}

func (s *Service) loadUser(ctx context.Context, id string) (User, error) {
	item, err := s.records.Get(ctx, record.TableUsers, id)
	if err != nil {
		if errors.Is(err, record.ErrItemNotFound) {
			return User{}, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return User{}, err
	}
	return UserFromItem(item)
}
