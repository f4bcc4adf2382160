// Package auth guards mutating routes with a single shared admin token.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

var ErrInvalidToken = errors.New("invalid API token")

// Claims identifies the caller of a guarded route.
type Claims struct {
	Subject string
}

const claimsContextKey = "auth_claims"

type Authenticator struct {
	adminToken string
}

// NewAuthenticator returns a guard for adminToken. An empty token leaves
// every route open.
func NewAuthenticator(adminToken string) *Authenticator {
	return &Authenticator{adminToken: strings.TrimSpace(adminToken)}
}

// Enabled reports whether a token is required.
func (a *Authenticator) Enabled() bool {
	return a != nil && a.adminToken != ""
}

func (a *Authenticator) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !a.Enabled() {
			return next(c)
		}
		token := ExtractToken(c.Request())
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing API token")
		}
		claims, err := a.Authenticate(c.Request().Context(), token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

func (a *Authenticator) Authenticate(_ context.Context, token string) (Claims, error) {
	if !a.Enabled() || subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) != 1 {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Subject: "admin"}, nil
}

func GetClaims(c echo.Context) (Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(Claims)
	return claims, ok
}

// ExtractToken reads a bearer token, falling back to X-API-Token.
func ExtractToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}
