package mocks

import (
	"context"
	"time"

	"github.com/phrazzld/lingo-api/internal/service/auth"
)

// MockJWTService is a mock implementation of auth.JWTService. By default it
// issues a fixed token and validates any token as the configured subject.
type MockJWTService struct {
	GenerateTokenFn func(ctx context.Context, subject string) (string, error)
	ValidateTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)

	// Token is the default token GenerateToken returns.
	Token string

	// Subject is the default subject ValidateToken reports.
	Subject string
}

var _ auth.JWTService = (*MockJWTService)(nil)

// GenerateToken implements auth.JWTService.
func (m *MockJWTService) GenerateToken(ctx context.Context, subject string) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, subject)
	}
	if m.Token != "" {
		return m.Token, nil
	}
	return "mock-token", nil
}

// ValidateToken implements auth.JWTService.
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}

	subject := m.Subject
	if subject == "" {
		subject = "operator"
	}
	now := time.Now().UTC()
	return &auth.Claims{
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
		ID:        "mock-token-id",
	}, nil
}

// MockSecretVerifier is a mock implementation of auth.SecretVerifier. The
// zero value accepts every secret; set Err to reject.
type MockSecretVerifier struct {
	CompareFn func(hashedSecret, secret string) error

	// Err is returned by Compare when CompareFn is unset.
	Err error
}

var _ auth.SecretVerifier = (*MockSecretVerifier)(nil)

// Compare implements auth.SecretVerifier.
func (m *MockSecretVerifier) Compare(hashedSecret, secret string) error {
	if m.CompareFn != nil {
		return m.CompareFn(hashedSecret, secret)
	}
	return m.Err
}
