package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/otp"
	"github.com/redmonkez12/go-phone-auth/internal/phone"
	"github.com/redmonkez12/go-phone-auth/internal/session"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

const (
	testPasetoKey     = "0123456789abcdef0123456789abcdef"
	placeholderDomain = "phone.placeholder.local"
)

// memoryUsers enforces the same unique constraints as the users table
type memoryUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*user.User
	err  error // returned by every call when set
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[uuid.UUID]*user.User)}
}

func clone(u *user.User) *user.User {
	c := *u
	return &c
}

func (m *memoryUsers) Create(_ context.Context, nu user.NewUser) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	email := user.NormalizeEmail(nu.Email)
	for _, u := range m.byID {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
		if nu.PhoneNumber != nil && u.PhoneNumber != nil && *u.PhoneNumber == *nu.PhoneNumber {
			return nil, user.ErrDuplicatePhone
		}
	}

	role := nu.Role
	if role == "" {
		role = user.RoleStandard
	}
	now := time.Now()
	u := &user.User{
		ID:            uuid.New(),
		Email:         email,
		Name:          nu.Name,
		PhoneNumber:   nu.PhoneNumber,
		PhoneVerified: nu.PhoneVerified,
		PasswordHash:  nu.PasswordHash,
		Role:          role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !u.HasUsableCredential() {
		return nil, user.ErrNoUsableCredential
	}
	m.byID[u.ID] = u
	return clone(u), nil
}

func (m *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.byID[id]; ok {
		return clone(u), nil
	}
	return nil, user.ErrNotFound
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	email = user.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memoryUsers) GetByPhone(_ context.Context, phoneNumber string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.PhoneNumber != nil && *u.PhoneNumber == phoneNumber {
			return clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memoryUsers) MarkPhoneVerified(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PhoneVerified = true
	return nil
}

func (m *memoryUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// insert adds a row directly, bypassing the linker
func (m *memoryUsers) insert(t *testing.T, nu user.NewUser) *user.User {
	t.Helper()
	u, err := m.Create(context.Background(), nu)
	require.NoError(t, err)
	return u
}

type codeSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *codeSender) SendOTP(_ context.Context, phoneNumber, code string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[phoneNumber] = code
	return nil
}

func (s *codeSender) last(phoneNumber string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[phoneNumber]
}

type harness struct {
	users      *memoryUsers
	sender     *codeSender
	sessions   *session.Manager
	linker     *Linker
	service    *Service
	gate       *Gate
	sealer     *PasetoService
	handler    *Handler
	middleware *Middleware
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := logging.NewDiscardLogger()
	users := newMemoryUsers()
	sender := &codeSender{}
	normalizer := phone.NewNormalizer("US")

	codes := otp.NewService(otp.NewMemoryLedger(), sender, otp.Config{
		CodeLength:     6,
		TTL:            5 * time.Minute,
		MaxAttempts:    5,
		ResendInterval: time.Minute,
		HashCost:       bcrypt.MinCost,
	}, logger, nil)

	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, logger)
	linker := NewLinker(users, placeholderDomain, logger, nil)
	verifier := NewVerifier(
		NewPasswordStrategy(users),
		NewPhoneStrategy(normalizer, codes, linker),
	)
	service := NewService(users, verifier, codes, sessions, normalizer, placeholderDomain, logger, nil)
	gate := NewGate(sessions, users)

	sealer, err := NewPasetoService([]byte(testPasetoKey))
	require.NoError(t, err)

	return &harness{
		users:      users,
		sender:     sender,
		sessions:   sessions,
		linker:     linker,
		service:    service,
		gate:       gate,
		sealer:     sealer,
		handler:    NewHandler(service, sealer, nil, false),
		middleware: NewMiddleware(gate, sealer),
	}
}
