// Package identity abstracts the external provider that owns credentials,
// issues bearer tokens and stores the canonical role attribute.
package identity

import (
	"context"
	"errors"

	"procurio.org/internal/auth"
)

var (
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrIdentityExists     = errors.New("identity: already exists")
	ErrIdentityNotFound   = errors.New("identity: not found")
	ErrInvalidToken       = errors.New("identity: invalid token")
)

// Tokens is the credential set returned on successful authentication.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// Attributes are provider-side identity attributes managed by administrators.
type Attributes struct {
	Role auth.Role
}

// Gateway is the capability surface of the identity provider. Implementations
// are safe for concurrent use.
type Gateway interface {
	// Authenticate verifies credentials and issues fresh tokens.
	Authenticate(ctx context.Context, email, password string) (Tokens, auth.Identity, error)

	// CreateIdentity registers a new identity and returns its stable subject id.
	// The password is set permanent in a second provider call; if that call
	// fails the created identity is left in place.
	CreateIdentity(ctx context.Context, email, password string, attrs Attributes) (string, error)

	// DeleteIdentity removes the identity. ErrIdentityNotFound signals the
	// identity was already absent.
	DeleteIdentity(ctx context.Context, subject string) error

	// UpdateAttributes overwrites provider-side attributes for the subject.
	UpdateAttributes(ctx context.Context, subject string, attrs Attributes) error

	// SignOut revokes the presented access token.
	SignOut(ctx context.Context, token string) error

	// VerifyToken resolves a bearer token into a caller identity.
	VerifyToken(ctx context.Context, token string) (auth.Identity, error)
}
