package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"procurio.org/internal/auth"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeID      = "id"
	tokenTypeRefresh = "refresh"
)

// Claims is the token payload minted by the local gateway.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Role      string `json:"custom:role,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

type account struct {
	subject      string
	email        string
	passwordHash string
	role         auth.Role
	permanent    bool
}

// Local is an in-process Gateway used when no managed provider is configured.
// Accounts, revocations and attributes all live in process memory; tokens are
// HS256 JWTs signed with the configured secret.
type Local struct {
	mu       sync.RWMutex
	accounts map[string]*account // subject -> account
	byEmail  map[string]string   // email -> subject
	revoked  map[string]struct{} // jti of signed-out access tokens

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// LocalOption configures the local gateway.
type LocalOption func(*Local)

// WithAccessTTL overrides access and id token lifetime.
func WithAccessTTL(ttl time.Duration) LocalOption {
	return func(g *Local) {
		if ttl > 0 {
			g.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) LocalOption {
	return func(g *Local) {
		if ttl > 0 {
			g.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) LocalOption {
	return func(g *Local) {
		if fn != nil {
			g.now = fn
		}
	}
}

// NewLocal constructs a local gateway signing tokens with secret.
func NewLocal(secret string, opts ...LocalOption) (*Local, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("identity: signing secret is required")
	}
	g := &Local{
		accounts:   make(map[string]*account),
		byEmail:    make(map[string]string),
		revoked:    make(map[string]struct{}),
		secret:     []byte(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Local) Authenticate(ctx context.Context, email, password string) (Tokens, auth.Identity, error) {
	email = normalizeEmail(email)
	g.mu.RLock()
	subject, ok := g.byEmail[email]
	var acct *account
	if ok {
		acct = g.accounts[subject]
	}
	g.mu.RUnlock()
	if acct == nil {
		return Tokens{}, auth.Identity{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(password)) != nil {
		return Tokens{}, auth.Identity{}, ErrInvalidCredentials
	}

	now := g.now().UTC()
	access, err := g.sign(acct, tokenTypeAccess, now, g.accessTTL)
	if err != nil {
		return Tokens{}, auth.Identity{}, err
	}
	idToken, err := g.sign(acct, tokenTypeID, now, g.accessTTL)
	if err != nil {
		return Tokens{}, auth.Identity{}, err
	}
	refresh, err := g.sign(acct, tokenTypeRefresh, now, g.refreshTTL)
	if err != nil {
		return Tokens{}, auth.Identity{}, err
	}

	ident := auth.Identity{Subject: acct.subject, Email: acct.email, Role: acct.role}
	return Tokens{AccessToken: access, IDToken: idToken, RefreshToken: refresh}, ident, nil
}

func (g *Local) CreateIdentity(ctx context.Context, email, password string, attrs Attributes) (string, error) {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.byEmail[email]; exists {
		return "", ErrIdentityExists
	}
	role := attrs.Role
	if role == "" {
		role = auth.RoleUser
	}
	subject := uuid.NewString()
	g.accounts[subject] = &account{
		subject:      subject,
		email:        email,
		passwordHash: string(hash),
		role:         role,
	}
	g.byEmail[email] = subject

	// Second provider step: promote the temporary password to permanent.
	g.accounts[subject].permanent = true
	return subject, nil
}

func (g *Local) DeleteIdentity(ctx context.Context, subject string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	acct, ok := g.accounts[subject]
	if !ok {
		return ErrIdentityNotFound
	}
	delete(g.byEmail, acct.email)
	delete(g.accounts, subject)
	return nil
}

func (g *Local) UpdateAttributes(ctx context.Context, subject string, attrs Attributes) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	acct, ok := g.accounts[subject]
	if !ok {
		return ErrIdentityNotFound
	}
	if attrs.Role != "" {
		acct.role = attrs.Role
	}
	return nil
}

func (g *Local) SignOut(ctx context.Context, token string) error {
	claims, err := g.parse(token)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.TokenType != tokenTypeAccess || claims.ID == "" {
		return ErrInvalidToken
	}
	g.mu.Lock()
	g.revoked[claims.ID] = struct{}{}
	g.mu.Unlock()
	return nil
}

func (g *Local) VerifyToken(ctx context.Context, token string) (auth.Identity, error) {
	claims, err := g.parse(token)
	if err != nil {
		return auth.Identity{}, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeAccess {
		return auth.Identity{}, ErrInvalidToken
	}
	g.mu.RLock()
	_, revoked := g.revoked[claims.ID]
	g.mu.RUnlock()
	if revoked {
		return auth.Identity{}, ErrInvalidToken
	}
	role, err := auth.ParseRole(claims.Role)
	if err != nil {
		role = auth.RoleUser
	}
	return auth.Identity{Subject: claims.Subject, Email: claims.Email, Role: role}, nil
}

func (g *Local) sign(acct *account, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     acct.email,
		Role:      string(acct.role),
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

func (g *Local) parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return g.now() }))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
