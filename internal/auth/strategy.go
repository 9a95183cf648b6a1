package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redmonkez12/go-phone-auth/internal/otp"
	"github.com/redmonkez12/go-phone-auth/internal/phone"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

const (
	MethodEmail = "email"
	MethodPhone = "phone"
)

// Credentials carries whatever a sign-in method needs. Each strategy reads
// only its own fields.
type Credentials struct {
	Email       string
	Password    string
	PhoneNumber string
	Code        string
}

// Strategy verifies one kind of credential and returns the identity it proves
type Strategy interface {
	Name() string
	Verify(ctx context.Context, creds Credentials) (*user.User, error)
}

// Verifier dispatches to a fixed set of strategies chosen at startup
type Verifier struct {
	strategies map[string]Strategy
}

func NewVerifier(strategies ...Strategy) *Verifier {
	m := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		m[s.Name()] = s
	}
	return &Verifier{strategies: m}
}

// Verify runs the named strategy
func (v *Verifier) Verify(ctx context.Context, method string, creds Credentials) (*user.User, error) {
	s, ok := v.strategies[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	return s.Verify(ctx, creds)
}

// PasswordStrategy checks an email and password. Every failure, including an
// unknown email, is ErrInvalidCredentials.
type PasswordStrategy struct {
	users IdentityStore
}

func NewPasswordStrategy(users IdentityStore) *PasswordStrategy {
	return &PasswordStrategy{users: users}
}

func (s *PasswordStrategy) Name() string { return MethodEmail }

func (s *PasswordStrategy) Verify(ctx context.Context, creds Credentials) (*user.User, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			verifyPassword(dummyHash, creds.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Phone-only accounts have no password
	if existingUser.PasswordHash == nil {
		verifyPassword(dummyHash, creds.Password)
		return nil, ErrInvalidCredentials
	}

	if !verifyPassword(*existingUser.PasswordHash, creds.Password) {
		return nil, ErrInvalidCredentials
	}

	return existingUser, nil
}

// PhoneStrategy checks a one-time code and resolves the phone number to an
// identity, creating one on first sign-in.
type PhoneStrategy struct {
	normalizer *phone.Normalizer
	codes      *otp.Service
	linker     *Linker
}

func NewPhoneStrategy(normalizer *phone.Normalizer, codes *otp.Service, linker *Linker) *PhoneStrategy {
	return &PhoneStrategy{normalizer: normalizer, codes: codes, linker: linker}
}

func (s *PhoneStrategy) Name() string { return MethodPhone }

func (s *PhoneStrategy) Verify(ctx context.Context, creds Credentials) (*user.User, error) {
	phoneNumber, err := s.normalizer.Normalize(creds.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if err := s.codes.VerifyCode(ctx, phoneNumber, creds.Code); err != nil {
		return nil, err
	}

	return s.linker.LinkOrCreate(ctx, phoneNumber)
}

// compile-time checks
var (
	_ Strategy = (*PasswordStrategy)(nil)
	_ Strategy = (*PhoneStrategy)(nil)
)
