package testutil

import (
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Session token settings shared by tests
const (
	TestJWTSecret   = "test-secret"
	TestJWTIssuer   = "nafs-essence-api"
	TestJWTAudience = "nafs-essence-admin"
)

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string, custom validator.CustomClaims) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: custom,
	}
}

// SetMockAuthContext sets up a mock authenticated context for testing
func SetMockAuthContext(c *gin.Context, adminID string, issuer string, custom validator.CustomClaims) {
	claims := MockValidatedClaims(adminID, issuer, custom)
	c.Set("admin_id", adminID)
	c.Set("validated_claims", claims)
}

// SignTestSessionToken signs an admin session token accepted by a server
// configured with the Test* settings
func SignTestSessionToken(t *testing.T, subject, email string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iss":   TestJWTIssuer,
		"aud":   []string{TestJWTAudience},
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(TestJWTSecret))
	require.NoError(t, err)
	return signed
}
