package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kendall-kelly/nafs-essence-api/feeds"
	"github.com/kendall-kelly/nafs-essence-api/logging"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Identity provider error codes
const (
	AuthCodeUserNotFound  = "auth/user-not-found"
	AuthCodeWrongPassword = "auth/wrong-password"
	AuthCodeNetwork       = "auth/network-request-failed"
	AuthCodeInvalidToken  = "auth/invalid-token"
)

// Messages shown on the login view
const (
	MessageInvalidCredentials = "Invalid admin credentials."
	MessageAccessDenied       = "Access denied. Please check your connection."
)

// AuthError is a failure reported by the identity provider
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsInvalidCredentials reports whether err means the email or password was wrong
func IsInvalidCredentials(err error) bool {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return false
	}
	return authErr.Code == AuthCodeUserNotFound || authErr.Code == AuthCodeWrongPassword
}

// LoginErrorMessage maps a sign-in failure to the message shown to the user
func LoginErrorMessage(err error) string {
	if IsInvalidCredentials(err) {
		return MessageInvalidCredentials
	}
	return MessageAccessDenied
}

// SessionClaims are the claims of an admin session token
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Session is the result of a successful sign-in
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthSettings configures the identity provider
type AuthSettings struct {
	Secret     string
	Issuer     string
	Audience   string
	SessionTTL time.Duration
}

// AuthService is the identity provider of the back office. It signs admins in,
// issues session tokens and publishes the sign-in state as a feed.
type AuthService struct {
	db       *gorm.DB
	settings AuthSettings
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	state   models.AuthState
	expiry  *time.Timer
	session uint64 // incremented on every sign-in so stale expiry timers are ignored

	states feeds.Broadcaster[models.AuthState]
}

// NewAuthService creates the identity provider. Its state starts unknown until
// Resolve, SignIn or SignOut is called.
func NewAuthService(db *gorm.DB, settings AuthSettings, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &AuthService{
		db:       db,
		settings: settings,
		logger:   logger,
		now:      time.Now,
		state:    models.UnknownAuthState(),
	}
	s.states.Publish(s.state)
	return s
}

// Subscribe implements feeds.Subscribable. The current state is delivered first.
func (s *AuthService) Subscribe(onSnapshot func(models.AuthState), opts ...feeds.SubscribeOption) feeds.Unsubscribe {
	return s.states.Subscribe(onSnapshot, opts...)
}

// State returns the current sign-in state
func (s *AuthService) State() models.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resolve reports the restored sign-in state. No session survives a restart,
// so an unknown state becomes unauthenticated.
func (s *AuthService) Resolve() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Known() {
		return
	}
	s.setState(models.SignedOut())
}

// SignIn checks the credentials and starts a session
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &AuthError{Code: AuthCodeUserNotFound}
		}
		return nil, &AuthError{Code: AuthCodeNetwork, Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, &AuthError{Code: AuthCodeWrongPassword}
	}

	now := s.now()
	expiresAt := now.Add(s.settings.SessionTTL)
	token, err := s.issueToken(admin, now, expiresAt)
	if err != nil {
		return nil, &AuthError{Code: AuthCodeNetwork, Err: err}
	}

	s.mu.Lock()
	s.stopExpiry()
	s.session++
	session := s.session
	s.expiry = time.AfterFunc(s.settings.SessionTTL, func() { s.expire(session) })
	s.setState(models.SignedIn(admin.Email))
	s.mu.Unlock()

	s.logger.Info("admin signed in", "email", admin.Email)
	return &Session{Token: token, Email: admin.Email, ExpiresAt: expiresAt}, nil
}

// SignOut ends the current session
func (s *AuthService) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopExpiry()
	s.setState(models.SignedOut())
}

// VerifyToken parses and validates a session token
func (s *AuthService) VerifyToken(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(s.settings.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.settings.Issuer),
		jwt.WithAudience(s.settings.Audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, &AuthError{Code: AuthCodeInvalidToken, Err: err}
	}
	return claims, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (created bool, err error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return false, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Admin{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("look up admin: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := s.db.WithContext(ctx).Create(&models.Admin{Email: email, PasswordHash: hash}).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("bootstrap admin created", "email", email)
	return true, nil
}

// Close stops the session expiry timer
func (s *AuthService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopExpiry()
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) issueToken(admin models.Admin, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(admin.ID), 10),
			Issuer:    s.settings.Issuer,
			Audience:  jwt.ClaimStrings{s.settings.Audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: admin.Email,
	})
	return token.SignedString([]byte(s.settings.Secret))
}

func (s *AuthService) expire(session uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session != s.session || !s.state.IsAuthenticated() {
		return
	}
	s.logger.Info("admin session expired")
	s.expiry = nil
	s.setState(models.SignedOut())
}

// stopExpiry must be called with s.mu held
func (s *AuthService) stopExpiry() {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}

// setState must be called with s.mu held so that publishes follow state order
func (s *AuthService) setState(state models.AuthState) {
	s.state = state
	s.states.Publish(state)
}
