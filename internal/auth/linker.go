package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/metrics"
	"github.com/redmonkez12/go-phone-auth/internal/phone"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

// Linker maps a verified phone number to exactly one identity. Phone-only
// identities get a placeholder email derived from the number.
type Linker struct {
	users             IdentityStore
	placeholderDomain string
	logger            *logging.Logger
	metrics           *metrics.Metrics
}

func NewLinker(users IdentityStore, placeholderDomain string, logger *logging.Logger, m *metrics.Metrics) *Linker {
	return &Linker{
		users:             users,
		placeholderDomain: placeholderDomain,
		logger:            logger,
		metrics:           m,
	}
}

// LinkOrCreate returns the identity owning phoneNumber, marking it verified,
// or creates one. Concurrent calls for the same number converge on one identity.
func (l *Linker) LinkOrCreate(ctx context.Context, phoneNumber string) (*user.User, error) {
	existing, err := l.users.GetByPhone(ctx, phoneNumber)
	if err == nil {
		l.metrics.IdentityLinked("existing")
		return l.markVerified(ctx, existing)
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	email := phone.PlaceholderEmail(phoneNumber, l.placeholderDomain)
	created, err := l.users.Create(ctx, user.NewUser{
		Email:         email,
		Name:          phoneNumber,
		PhoneNumber:   &phoneNumber,
		PhoneVerified: true,
		Role:          user.RoleStandard,
	})

	switch {
	case err == nil:
		l.metrics.IdentityLinked("created")
		l.logger.Info("created phone identity", "user_id", created.ID)
		return created, nil

	case errors.Is(err, user.ErrDuplicatePhone):
		// Lost a creation race for this number; the winner's row is ours too
		winner, err := l.users.GetByPhone(ctx, phoneNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read user by phone: %w", err)
		}
		l.metrics.IdentityLinked("race")
		return l.markVerified(ctx, winner)

	case errors.Is(err, user.ErrDuplicateEmail):
		holder, err := l.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to read placeholder email holder: %w", err)
		}
		if holder.PhoneNumber != nil && *holder.PhoneNumber == phoneNumber {
			l.metrics.IdentityLinked("race")
			return l.markVerified(ctx, holder)
		}

		l.metrics.IdentityLinked("conflict")
		l.logger.Error("placeholder email belongs to a different identity",
			"phone_number", phoneNumber,
			"email", email,
			"holder_id", holder.ID,
		)
		return nil, ErrConflictingIdentity

	default:
		return nil, fmt.Errorf("failed to create phone identity: %w", err)
	}
}

func (l *Linker) markVerified(ctx context.Context, u *user.User) (*user.User, error) {
	if u.PhoneVerified {
		return u, nil
	}
	if err := l.users.MarkPhoneVerified(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("failed to mark phone verified: %w", err)
	}
	u.PhoneVerified = true
	return u, nil
}
