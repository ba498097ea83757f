package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"procurio.org/internal/auth"
	"procurio.org/internal/identity"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// publicRoutes never require a bearer token. Login and registration are
// method-scoped so a stray GET still gets the 401.
var publicRoutes = map[string]string{
	"/auth/login":    http.MethodPost,
	"/auth/register": http.MethodPost,
	"/healthz":       "",
	"/readyz":        "",
	"/metrics":       "",
}

// withAuth verifies the bearer token before any handler or store access runs
// and attaches the resolved identity to the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicRoute(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "authorization header missing or invalid")
			return
		}

		ident, err := a.gateway.VerifyToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), ident)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicRoute(method, path string) bool {
	m, ok := publicRoutes[path]
	if !ok {
		return false
	}
	return m == "" || m == method
}
