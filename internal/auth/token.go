package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Session is a verified token: its id (the JWT jti), the identity claims
// and the validity window.
type Session struct {
	ID        uuid.UUID
	Claims    access.Claims
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	UserID   uuid.UUID   `json:"userId"`
	TenantID *uuid.UUID  `json:"tenantId"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// WithClock returns a copy of m that reads time from now.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	c := *m
	c.now = now
	return &c
}

// Issue signs a new session for c.
func (m *TokenManager) Issue(c access.Claims) (string, Session, error) {
	now := m.now().UTC().Truncate(time.Second)
	s := Session{
		ID:        uuid.New(),
		Claims:    c,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID:   c.UserID,
		TenantID: c.TenantID,
		Role:     c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID.String(),
			Issuer:    m.issuer,
			Subject:   c.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, s, nil
}

// Parse verifies signature, algorithm, issuer and expiry. Every failure
// wraps ErrInvalidToken.
func (m *TokenManager) Parse(tokenString string) (Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil || claims.UserID == uuid.Nil || !claims.Role.Valid() {
		return Session{}, fmt.Errorf("%w: malformed claims", ErrInvalidToken)
	}

	s := Session{
		ID:        id,
		Claims:    access.Claims{UserID: claims.UserID, TenantID: claims.TenantID, Role: claims.Role},
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}
