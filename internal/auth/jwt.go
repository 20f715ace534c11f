package auth

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrEmptySecret  = errors.New("service secret is empty")
)

// ScopeSubmitOutcomes allows posting finished matches to the rating feed.
const ScopeSubmitOutcomes = "matches:write"

// JWTService signs and checks tokens for trusted backend services such as
// the game server that reports match results.
type JWTService struct {
	serviceSecret []byte
	serviceTTL    time.Duration
}

type ServiceTokenClaims struct {
	Service string   `json:"service"`
	Scopes  []string `json:"scopes"`
	jwt.RegisteredClaims
}

// NewJWTService refuses an empty secret, since HS256 with an empty key lets
// anyone mint a valid token.
func NewJWTService(serviceSecret string, ttl time.Duration) (*JWTService, error) {
	if strings.TrimSpace(serviceSecret) == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour // 30 days
	}
	return &JWTService{
		serviceSecret: []byte(serviceSecret),
		serviceTTL:    ttl,
	}, nil
}

// GenerateServiceToken creates a token for the named service
func (s *JWTService) GenerateServiceToken(service string, scopes ...string) (string, error) {
	now := time.Now()
	claims := ServiceTokenClaims{
		Service: service,
		Scopes:  scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.serviceTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.serviceSecret)
}

// ValidateServiceToken validates and parses a service token
func (s *JWTService) ValidateServiceToken(tokenString string) (*ServiceTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.serviceSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ServiceTokenClaims)
	if !ok || !token.Valid || claims.Service == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// HasScope reports whether the token grants scope
func (c *ServiceTokenClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// GetServiceTTL returns the service token time-to-live duration
func (s *JWTService) GetServiceTTL() time.Duration {
	return s.serviceTTL
}
