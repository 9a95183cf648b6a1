package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/metrics"
	"github.com/redmonkez12/go-phone-auth/internal/otp"
	"github.com/redmonkez12/go-phone-auth/internal/phone"
	"github.com/redmonkez12/go-phone-auth/internal/session"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrConflictingIdentity = errors.New("phone number conflicts with an existing account")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnsupportedMethod   = errors.New("unsupported sign-in method")
	ErrEmailRequired       = errors.New("email is required")
	ErrPasswordRequired    = errors.New("password is required")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat  = errors.New("invalid email format")
	ErrReservedEmailDomain = errors.New("email domain is reserved for phone accounts")
)

// Service handles authentication business logic
type Service struct {
	users      IdentityStore
	verifier   *Verifier
	codes      *otp.Service
	sessions   *session.Manager
	normalizer *phone.Normalizer
	// placeholderDomain belongs to synthesized phone identities only
	placeholderDomain string
	logger            *logging.Logger
	metrics           *metrics.Metrics
}

func NewService(
	users IdentityStore,
	verifier *Verifier,
	codes *otp.Service,
	sessions *session.Manager,
	normalizer *phone.Normalizer,
	placeholderDomain string,
	logger *logging.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		users:      users,
		verifier:   verifier,
		codes:      codes,
		sessions:   sessions,
		normalizer:        normalizer,
		placeholderDomain: strings.ToLower(placeholderDomain),
		logger:            logger,
		metrics:           m,
	}
}

// SignInEmail verifies an email and password and opens a session
func (s *Service) SignInEmail(ctx context.Context, email, password string) (*user.User, *session.Session, error) {
	return s.signIn(ctx, MethodEmail, Credentials{Email: email, Password: password})
}

// VerifyPhone consumes a one-time code, resolves the phone identity and opens a session
func (s *Service) VerifyPhone(ctx context.Context, phoneNumber, code string) (*user.User, *session.Session, error) {
	return s.signIn(ctx, MethodPhone, Credentials{PhoneNumber: phoneNumber, Code: code})
}

func (s *Service) signIn(ctx context.Context, method string, creds Credentials) (*user.User, *session.Session, error) {
	u, err := s.verifier.Verify(ctx, method, creds)
	if err != nil {
		s.metrics.SignIn(method, outcome(err))
		return nil, nil, err
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		s.metrics.SignIn(method, "error")
		return nil, nil, err
	}

	s.metrics.SignIn(method, "ok")
	return u, sess, nil
}

// SignUpEmail creates a password account and opens a session
func (s *Service) SignUpEmail(ctx context.Context, name, email, password string) (*user.User, *session.Session, error) {
	email = user.NormalizeEmail(email)
	if email == "" {
		return nil, nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, ErrInvalidEmailFormat
	}
	if s.isPlaceholderEmail(email) {
		return nil, nil, ErrReservedEmailDomain
	}
	if password == "" {
		return nil, nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, nil, ErrPasswordTooShort
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, user.NewUser{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: &passwordHash,
		Role:         user.RoleStandard,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, nil, user.ErrDuplicateEmail
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	sess, err := s.sessions.Create(ctx, newUser.ID)
	if err != nil {
		return nil, nil, err
	}

	return newUser, sess, nil
}

// isPlaceholderEmail reports whether a normalized address is in the domain
// of synthesized phone identities
func (s *Service) isPlaceholderEmail(email string) bool {
	if s.placeholderDomain == "" {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at >= 0 && email[at+1:] == s.placeholderDomain
}

// SendPhoneCode normalizes phoneNumber and sends it a one-time code.
// It returns the normalized number.
func (s *Service) SendPhoneCode(ctx context.Context, phoneNumber string) (string, error) {
	normalized, err := s.normalizer.Normalize(phoneNumber)
	if err != nil {
		return "", err
	}

	if err := s.codes.SendCode(ctx, normalized); err != nil {
		return normalized, err
	}

	return normalized, nil
}

// SignOut invalidates a session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.sessions.Invalidate(ctx, token)
}

// outcome labels a sign-in failure for metrics
func outcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, phone.ErrInvalid):
		return "invalid_phone"
	case errors.Is(err, otp.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, otp.ErrExpired):
		return "expired"
	case errors.Is(err, otp.ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, otp.ErrNoChallenge):
		return "no_challenge"
	case errors.Is(err, ErrConflictingIdentity):
		return "conflicting_identity"
	default:
		return "error"
	}
}
