package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redmonkez12/go-phone-auth/internal/session"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

// Gate turns a session token into an identity or ErrUnauthorized
type Gate struct {
	sessions *session.Manager
	users    IdentityStore
}

func NewGate(sessions *session.Manager, users IdentityStore) *Gate {
	return &Gate{sessions: sessions, users: users}
}

// RequireIdentity returns the identity behind token
func (g *Gate) RequireIdentity(ctx context.Context, token string) (*user.User, error) {
	u, _, err := g.Authenticate(ctx, token)
	return u, err
}

// Authenticate returns the identity and the session behind token. Store
// failures are returned as they are, never as ErrUnauthorized.
func (g *Gate) Authenticate(ctx context.Context, token string) (*user.User, *session.Session, error) {
	if token == "" {
		return nil, nil, ErrUnauthorized
	}

	sess, ok, err := g.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return nil, nil, ErrUnauthorized
	}

	u, err := g.users.GetByID(ctx, sess.IdentityID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("failed to get session user: %w", err)
	}

	return u, sess, nil
}
