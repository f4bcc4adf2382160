package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestExtractToken_BearerHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		authz string
		want  string
	}{
		{"standard bearer", "Bearer my-token-123", "my-token-123"},
		{"lowercase bearer", "bearer my-token", "my-token"},
		{"bearer with extra spaces", "Bearer   spaced  ", "spaced"},
		{"empty bearer", "Bearer ", ""},
		{"non-bearer auth", "Basic dXNlcjpwYXNz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, _ := http.NewRequest("GET", "/", nil)
			r.Header.Set("Authorization", tt.authz)
			if got := ExtractToken(r); got != tt.want {
				t.Fatalf("ExtractToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractToken_XAPITokenHeader(t *testing.T) {
	t.Parallel()
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("X-API-Token", "  tok-456  ")
	if got := ExtractToken(r); got != "tok-456" {
		t.Fatalf("ExtractToken() = %q, want %q", got, "tok-456")
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	a := NewAuthenticator("secret")
	claims, err := a.Authenticate(context.Background(), "secret")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("claims = %+v", claims)
	}
	if _, err := a.Authenticate(context.Background(), "secreT"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Authenticate(wrong) error = %v", err)
	}
	if _, err := NewAuthenticator("").Authenticate(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Authenticate() without token configured error = %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		adminToken string
		header     string
		wantStatus int
	}{
		{"open when no token configured", "", "", http.StatusOK},
		{"missing token", "secret", "", http.StatusUnauthorized},
		{"wrong token", "secret", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "secret", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			a := NewAuthenticator(tt.adminToken)
			e.POST("/x", func(c echo.Context) error {
				if a.Enabled() {
					if _, ok := GetClaims(c); !ok {
						return c.NoContent(http.StatusTeapot)
					}
				}
				return c.NoContent(http.StatusOK)
			}, a.Middleware)

			req := httptest.NewRequest(http.MethodPost, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
