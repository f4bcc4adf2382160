package middlewares

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"imgfs/internal/auth"
	"imgfs/internal/ratelimit"

	"github.com/labstack/echo/v4"
)

type tokenVerifier interface {
	Authenticate(context.Context, string) (auth.Claims, error)
}

func NewRateLimitMiddleware(verifier tokenVerifier, cfg ratelimit.Config) echo.MiddlewareFunc {
	limiter := ratelimit.New(cfg)
	now := func() time.Time { return time.Now().UTC() }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope := requestScope(c.Request())
			kind, bucket := resolveBucket(c, verifier)

			result := limiter.Take(now(), scope, kind, bucket)
			if result.Limit > 0 {
				setRateLimitHeaders(c.Response().Header(), result)
			}
			if !result.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.ResetIn, 10))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// requestScope classifies by method, except that /imgfs/delete is a GET
// that mutates the store.
func requestScope(r *http.Request) ratelimit.Scope {
	if strings.HasSuffix(r.URL.Path, "/delete") {
		return ratelimit.ScopeWrite
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ratelimit.ScopeRead
	default:
		return ratelimit.ScopeWrite
	}
}

func resolveBucket(c echo.Context, verifier tokenVerifier) (ratelimit.BucketKind, string) {
	if token := auth.ExtractToken(c.Request()); token != "" && verifier != nil {
		claims, err := verifier.Authenticate(c.Request().Context(), token)
		if err == nil && claims.Subject != "" {
			return ratelimit.BucketToken, claims.Subject
		}
	}

	ip := strings.TrimSpace(c.RealIP())
	if ip == "" {
		ip = clientIPFromRemoteAddr(c.Request().RemoteAddr)
	}
	if ip == "" {
		ip = "unknown"
	}
	return ratelimit.BucketIP, ip
}

func setRateLimitHeaders(header http.Header, result ratelimit.Result) {
	limit := strconv.Itoa(result.Limit)
	remaining := strconv.Itoa(result.Remaining)

	header.Set("X-RateLimit-Limit", limit)
	header.Set("X-RateLimit-Remaining", remaining)
	header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

	header.Set("RateLimit-Limit", limit)
	header.Set("RateLimit-Remaining", remaining)
	header.Set("RateLimit-Reset", strconv.FormatInt(result.ResetIn, 10))
}

func clientIPFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(remoteAddr))
	if err != nil {
		return strings.TrimSpace(remoteAddr)
	}
	return host
}
