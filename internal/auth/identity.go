// Package auth carries the caller identity resolved from a bearer token.
package auth

import (
	"fmt"
	"strings"
)

// Role is the coarse access level stored on an identity.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole validates a raw role value against the closed enum.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(raw)) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Identity is the caller context for a single request. It is resolved fresh
// from the bearer token and never persisted.
type Identity struct {
	Subject string
	Email   string
	Role    Role
}

// IsAdmin reports whether the identity carries the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}
