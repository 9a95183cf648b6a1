// Package session issues opaque session tokens and resolves them to identities.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
)

// ErrNotFound is returned by a Store for unknown tokens
var ErrNotFound = errors.New("session not found")

const tokenBytes = 32

// Session binds a random token to one identity until ExpiresAt
type Session struct {
	Token      string
	IdentityID uuid.UUID
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Store persists sessions. Implementations key by a hash of the token.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForIdentity(ctx context.Context, identityID uuid.UUID) error
}

// Manager creates, resolves and invalidates sessions
type Manager struct {
	store    Store
	lifetime time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

func NewManager(store Store, lifetime time.Duration, logger *logging.Logger) *Manager {
	return &Manager{
		store:    store,
		lifetime: lifetime,
		logger:   logger,
		now:      time.Now,
	}
}

// Lifetime is how long new sessions stay valid
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Create issues a session for identityID. The token carries no identity data.
func (m *Manager) Create(ctx context.Context, identityID uuid.UUID) (*Session, error) {
	token, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := m.now()
	s := &Session{
		Token:      token,
		IdentityID: identityID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(m.lifetime),
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return s, nil
}

// Resolve returns the live session for token. ok is false when the token is
// unknown or expired; err is set only when the store could not answer.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, bool, error) {
	if token == "" {
		return nil, false, nil
	}

	s, err := m.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if !m.now().Before(s.ExpiresAt) {
		if err := m.store.Delete(ctx, token); err != nil {
			m.logger.Warn("failed to purge expired session", "error", err)
		}
		return nil, false, nil
	}

	return s, true, nil
}

// Invalidate removes a session. Unknown tokens are not an error.
func (m *Manager) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, token)
}

// InvalidateAll removes every session of an identity
func (m *Manager) InvalidateAll(ctx context.Context, identityID uuid.UUID) error {
	return m.store.DeleteAllForIdentity(ctx, identityID)
}

// generateRandomToken creates a cryptographically secure random token
func generateRandomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashToken is what stores use as the key, so a dump does not reveal live tokens
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
