package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/nafs-essence-api/config"
	"github.com/kendall-kelly/nafs-essence-api/remotestore"
)

// SessionClaims contains the custom data of an admin session token.
type SessionClaims struct {
	Email string `json:"email"`
}

// Validate requires the email claim the identity provider always sets.
func (c SessionClaims) Validate(ctx context.Context) error {
	if c.Email == "" {
		return &AuthError{Code: "MISSING_EMAIL", Message: "Token has no email claim"}
	}
	return nil
}

// EnsureValidToken is a middleware that will check the validity of an admin session token.
// The admin becomes the principal of the request context for the remote store rules.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &SessionClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Encountered error while validating JWT: %v", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Printf("Failed to write error response: %v", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		authorized := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			authorized = true

			// Store the validated claims in Gin context
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			principal := remotestore.Principal{Subject: token.RegisteredClaims.Subject}
			if claims, ok := token.CustomClaims.(*SessionClaims); ok {
				principal.Email = claims.Email
			}

			c.Set("admin_id", principal.Subject)
			c.Set("validated_claims", token)
			c.Request = r.WithContext(remotestore.WithPrincipal(r.Context(), principal))

			c.Next()
		}

		// Use the JWT middleware to check the token
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		// The error handler has already answered
		if !authorized {
			c.Abort()
		}
	}
}

// GetAdminID extracts the admin ID from the Gin context
func GetAdminID(c *gin.Context) (string, error) {
	adminID, exists := c.Get("admin_id")
	if !exists {
		return "", &AuthError{Code: "MISSING_ADMIN_ID", Message: "Admin ID not found in context"}
	}

	adminIDStr, ok := adminID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_ADMIN_ID", Message: "Admin ID is not a string"}
	}

	return adminIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get("validated_claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
