package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rating-engine/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireService(t *testing.T) {
	jwtService, err := auth.NewJWTService("secret", time.Hour)
	require.NoError(t, err)
	writer, err := jwtService.GenerateServiceToken("game-server", auth.ScopeSubmitOutcomes)
	require.NoError(t, err)
	reader, err := jwtService.GenerateServiceToken("dashboard")
	require.NoError(t, err)

	var rejected []string
	m := NewAuthMiddleware(jwtService, func(r *http.Request, reason string) {
		rejected = append(rejected, reason)
	})

	var seen string
	handler := m.RequireService(auth.ScopeSubmitOutcomes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetServiceFromContext(r.Context())
		require.True(t, ok)
		seen = claims.Service
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"invalid", "Bearer abc", http.StatusUnauthorized},
		{"missing scope", "Bearer " + reader, http.StatusForbidden},
		{"ok", "Bearer " + writer, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/matches/outcome", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, "game-server", seen)
	assert.Len(t, rejected, 4)
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	cfg := RateLimitConfig{MaxRequests: 2, Window: time.Minute}

	ok, remaining, _ := rl.Allow("ip", cfg)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, remaining, _ = rl.Allow("ip", cfg)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	ok, _, _ = rl.Allow("ip", cfg)
	assert.False(t, ok)

	ok, _, _ = rl.Allow("other", cfg)
	assert.True(t, ok)
}

func TestIPRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	handler := rl.IPRateLimitMiddleware(RateLimitConfig{MaxRequests: 1, Window: time.Minute})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/matchmaking/browse", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:5123"
	assert.Equal(t, "198.51.100.4", GetClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.1")
	assert.Equal(t, "192.0.2.1", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7,10.0.0.1")
	assert.Equal(t, "203.0.113.7", GetClientIP(req))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}
