package procure

import (
	"context"
	"errors"
	"fmt"

	"procurio.org/internal/auth"
	"procurio.org/internal/identity"
)

// Session is the result of a successful login.
type Session struct {
	Tokens identity.Tokens
	User   auth.Identity
}

// Login exchanges credentials for a token set. Unknown emails and wrong
// passwords report the same error.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if email == "" {
		return Session{}, fmt.Errorf("%w: missing required field: email", ErrInvalidInput)
	}
	if password == "" {
		return Session{}, fmt.Errorf("%w: missing required field: password", ErrInvalidInput)
	}
	tokens, ident, err := s.gateway.Authenticate(ctx, normalizeEmail(email), password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return Session{}, fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
		}
		return Session{}, err
	}
	return Session{Tokens: tokens, User: ident}, nil
}

// Logout revokes the caller's access token at the identity provider.
func (s *Service) Logout(ctx context.Context) error {
	if _, err := s.caller(ctx); err != nil {
		return err
	}
	token, ok := auth.TokenFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if err := s.gateway.SignOut(ctx, token); err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return fmt.Errorf("%w: invalid token", ErrUnauthenticated)
		}
		return err
	}
	return nil
}
