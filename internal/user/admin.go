package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
)

var ErrInvalidRole = errors.New("invalid role")

// Store is the part of Repository used by administration
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetRole(ctx context.Context, id uuid.UUID, role Role) error
	List(ctx context.Context, limit, offset int) ([]User, error)
}

// SessionRevoker ends every session of an identity
type SessionRevoker interface {
	InvalidateAll(ctx context.Context, identityID uuid.UUID) error
}

// Admin performs privileged account changes for the HTTP admin routes and the CLI
type Admin struct {
	users    Store
	sessions SessionRevoker
	logger   *logging.Logger
}

func NewAdmin(users Store, sessions SessionRevoker, logger *logging.Logger) *Admin {
	return &Admin{users: users, sessions: sessions, logger: logger}
}

// SetRole changes the role of id and signs the account out everywhere.
// A failed sign-out is logged; the role change itself has already been applied
// and is seen by the next request anyway, since sessions resolve the user per request.
func (a *Admin) SetRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if err := a.users.SetRole(ctx, id, role); err != nil {
		return nil, err
	}

	if err := a.sessions.InvalidateAll(ctx, id); err != nil {
		a.logger.Error("failed to invalidate sessions after role change",
			"user_id", id,
			"error", err.Error(),
		)
	}

	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	a.logger.Info("user role changed", "user_id", id, "role", role)
	return u, nil
}

// SetRoleByEmail is SetRole for callers that only know the address
func (a *Admin) SetRoleByEmail(ctx context.Context, email string, role Role) (*User, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return a.SetRole(ctx, u.ID, role)
}

// List returns a page of users
func (a *Admin) List(ctx context.Context, limit, offset int) ([]User, error) {
	return a.users.List(ctx, limit, offset)
}
