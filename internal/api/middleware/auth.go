package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/driver"
)

// TokenCookieName is the cookie carrying the driver token for browser clients.
const TokenCookieName = "token"

// TokenValidator resolves a token to a driver ID.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(token string) (string, error)

// ValidateToken calls f(token).
func (f TokenValidatorFunc) ValidateToken(token string) (string, error) {
	return f(token)
}

// driverIDKey is the context key for the authenticated driver ID.
type driverIDKey struct{}

// Auth creates authentication middleware. The token is read from the
// Authorization bearer header, falling back to the token cookie.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, detail := extractToken(r)
			if detail != "" {
				writeUnauthorized(w, r, detail)
				return
			}

			driverID, err := validator.ValidateToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, driver.ErrTokenExpired):
					writeUnauthorized(w, r, "access token has expired")
				case errors.Is(err, driver.ErrInvalidToken):
					writeUnauthorized(w, r, "invalid access token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			ctx := WithDriverID(r.Context(), driverID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken returns the token or a detail message explaining its absence.
func extractToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if c, err := r.Cookie(TokenCookieName); err == nil && c.Value != "" {
			return c.Value, ""
		}
		return "", "missing authorization header"
	}

	// Check for Bearer prefix (case-insensitive)
	const bearerPrefix = "Bearer "
	if len(authHeader) < len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if tokenString == "" {
		return "", "missing bearer token"
	}
	return tokenString, ""
}

// writeUnauthorized writes a 401 problem. The response package imports
// this one, so it cannot be used here.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := GetRequestID(r.Context())
	problem := models.ProblemForStatus(http.StatusUnauthorized, traceID, detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// WithDriverID stores the authenticated driver ID in the context.
func WithDriverID(ctx context.Context, driverID string) context.Context {
	if info := infoFrom(ctx); info != nil {
		info.driverID = driverID
	}
	return context.WithValue(ctx, driverIDKey{}, driverID)
}

// GetDriverID returns the authenticated driver ID, or "" when the request
// is anonymous.
func GetDriverID(ctx context.Context) string {
	if id, ok := ctx.Value(driverIDKey{}).(string); ok {
		return id
	}
	if info := infoFrom(ctx); info != nil {
		return info.driverID
	}
	return ""
}
