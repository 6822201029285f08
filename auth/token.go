// Package auth issues and validates HS256 session tokens for the dashboard.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/upb/fraudshield/config"
	"github.com/upb/fraudshield/services"
)

// Validator validates session tokens signed with the shared secret
type Validator struct {
	secret []byte
	issuer string
	clock  clockwork.Clock
}

// NewValidator creates a new Validator. A nil clock uses the real clock.
func NewValidator(cfg config.AuthConfig, clock clockwork.Clock) *Validator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Validator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		clock:  clock,
	}
}

// ValidateToken validates a token and returns the authenticated principal
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.ErrTokenExpired.Wrap(err)
		}
		return nil, services.ErrInvalidToken.Wrap(err)
	}
	if !token.Valid {
		return nil, services.ErrInvalidToken
	}

	principal, err := parseClaims(claims)
	if err != nil {
		return nil, services.ErrInvalidToken.Wrap(err)
	}
	return principal, nil
}

// Issuer signs session tokens
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewIssuer creates a new Issuer. A nil clock uses the real clock.
func NewIssuer(cfg config.AuthConfig, clock clockwork.Clock) *Issuer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Issuer{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		clock:  clock,
	}
}

// Issue signs a token for the given subject and returns it with its expiry
func (i *Issuer) Issue(subject, email string, orgID uuid.UUID) (string, time.Time, error) {
	now := i.clock.Now()
	expiresAt := now.Add(i.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Email: email,
		OrgID: orgID.String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
