package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-phone-auth/internal/user"
)

// IdentityStore is the part of the user repository authentication needs.
// Create must report unique violations as user.ErrDuplicateEmail or
// user.ErrDuplicatePhone.
type IdentityStore interface {
	Create(ctx context.Context, nu user.NewUser) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByPhone(ctx context.Context, phoneNumber string) (*user.User, error)
	MarkPhoneVerified(ctx context.Context, id uuid.UUID) error
}

// TokenSealer wraps a raw session token for transport and unwraps it again.
// Implementations include PasetoService (PASETO v4.local).
type TokenSealer interface {
	Seal(sessionToken string, expiresAt time.Time) (string, error)
	Open(sealed string) (string, error)
}
