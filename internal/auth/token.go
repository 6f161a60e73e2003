package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/guildkit/ticketd/internal/clock"
	"github.com/guildkit/ticketd/internal/config"
	"github.com/guildkit/ticketd/internal/domain"
)

// Claims carries the staff identity inside an access token.
type Claims struct {
	PrincipalID string           `json:"pid"`
	GuildID     int64            `json:"gid"`
	StaffID     int64            `json:"sid"`
	Role        domain.StaffRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	clk    clock.Clock
}

// NewTokenManager constructs the manager from auth config.
func NewTokenManager(cfg config.AuthConfig, clk clock.Clock) *TokenManager {
	if clk == nil {
		clk = clock.New()
	}
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		clk:    clk,
	}
}

// Issue signs a token for the principal.
func (m *TokenManager) Issue(principal *domain.StaffPrincipal) (string, error) {
	now := m.clk.NowUTC()
	claims := Claims{
		PrincipalID: principal.ID,
		GuildID:     principal.GuildID,
		StaffID:     principal.StaffID,
		Role:        principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a token, returning its claims.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.clk.NowUTC))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}
