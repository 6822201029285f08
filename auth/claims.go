package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims represents the claims carried by dashboard session tokens
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	OrgID string `json:"org_id"`
}

// Principal is the authenticated caller extracted from a validated token
type Principal struct {
	Subject   string
	Email     string
	OrgID     uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// parseClaims converts Claims to a Principal with proper type conversions
func parseClaims(claims *Claims) (*Principal, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	if claims.OrgID == "" {
		return nil, fmt.Errorf("%w: org_id", ErrMissingClaim)
	}
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return nil, fmt.Errorf("invalid org_id UUID: %w", err)
	}

	p := &Principal{
		Subject: claims.Subject,
		Email:   claims.Email,
		OrgID:   orgID,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}
