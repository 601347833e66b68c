package auth

import (
	"context"
	"time"
)

// JWTService defines operations for managing admin API authentication tokens.
//
// The admin API has no user accounts. Operators log in with a shared secret
// and receive a short-lived access token; when the token expires they log in
// again. There is consequently no refresh token flow.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the given operator
	// subject. Returns the token string or an error if signing fails.
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken validates the provided token string and extracts the claims.
	// Returns the claims if the token is valid, or an error if validation fails
	// (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for admin API tokens.
type Claims struct {
	// Subject identifies the operator the token was issued for.
	Subject string `json:"sub,omitempty"`

	// Standard registered JWT claims
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
