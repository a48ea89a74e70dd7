package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/config"
	"github.com/stretchr/testify/require"
)

// TestJWTSecret is the signing secret used by DefaultJWTConfig.
const TestJWTSecret = "test-jwt-secret-that-is-32-chars-long"

// DefaultJWTConfig returns a standard configuration for JWT authentication suitable for testing.
func DefaultJWTConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: TestJWTSecret}
}

// RequireTestValidator creates a validator for DefaultJWTConfig.
func RequireTestValidator(t *testing.T) TokenValidator {
	t.Helper()
	v, err := NewJWTValidator(DefaultJWTConfig())
	require.NoError(t, err, "Failed to create test JWT validator")
	return v
}

// RequireTestToken returns a one-hour access token for userID signed with
// TestJWTSecret.
func RequireTestToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := SignAccessToken(TestJWTSecret, userID, time.Now(), time.Hour)
	require.NoError(t, err, "Failed to sign test token")
	return token
}
