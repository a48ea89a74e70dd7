package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/service/auth"
)

// MockTokenValidator implements auth.TokenValidator for testing
type MockTokenValidator struct {
	ValidateTokenFn func(ctx context.Context, token string) (*auth.Claims, error)

	// UserID is returned in the claims when ValidateTokenFn is nil
	UserID uuid.UUID
	Err    error
}

var _ auth.TokenValidator = (*MockTokenValidator)(nil)

// ValidateToken implements the TokenValidator interface
func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &auth.Claims{UserID: m.UserID, Subject: m.UserID.String()}, nil
}
