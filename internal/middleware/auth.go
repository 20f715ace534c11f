package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"rating-engine/internal/auth"
)

type contextKey string

const (
	ServiceContextKey contextKey = "service"
)

// RejectFunc is told about every refused request, e.g. to audit it.
type RejectFunc func(r *http.Request, reason string)

type AuthMiddleware struct {
	jwtService *auth.JWTService
	onReject   RejectFunc
}

func NewAuthMiddleware(jwtService *auth.JWTService, onReject RejectFunc) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		onReject:   onReject,
	}
}

// RequireService validates a service token carrying scope and stores its
// claims in the request context.
// Returns 401 if token is missing or invalid, 403 if the scope is missing
func (m *AuthMiddleware) RequireService(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				m.reject(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				m.reject(w, r, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			claims, err := m.jwtService.ValidateServiceToken(parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					m.reject(w, r, http.StatusUnauthorized, "Token has expired")
					return
				}
				m.reject(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}

			if !claims.HasScope(scope) {
				m.reject(w, r, http.StatusForbidden, "Token lacks scope "+scope)
				return
			}

			ctx := context.WithValue(r.Context(), ServiceContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, status int, reason string) {
	if m.onReject != nil {
		m.onReject(r, reason)
	}
	http.Error(w, reason, status)
}

// GetServiceFromContext retrieves the authenticated service from the request context
func GetServiceFromContext(ctx context.Context) (*auth.ServiceTokenClaims, bool) {
	claims, ok := ctx.Value(ServiceContextKey).(*auth.ServiceTokenClaims)
	return claims, ok
}
