package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-phone-auth/internal/store"
	"github.com/redmonkez12/go-phone-auth/internal/user"
)

func strPtr(s string) *string { return &s }

func TestPasswordStrategy(t *testing.T) {
	users := newMemoryUsers()
	hash, err := hashPassword("s3cret-pass")
	require.NoError(t, err)

	alice := users.insert(t, user.NewUser{Email: "alice@example.com", PasswordHash: &hash})
	users.insert(t, user.NewUser{
		Email:         "15551234567@phone.placeholder.local",
		PhoneNumber:   strPtr("+15551234567"),
		PhoneVerified: true,
	})

	s := NewPasswordStrategy(users)
	ctx := context.Background()

	u, err := s.Verify(ctx, Credentials{Email: "Alice@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	failures := []struct {
		name  string
		creds Credentials
	}{
		{name: "wrong password", creds: Credentials{Email: "alice@example.com", Password: "nope-nope"}},
		{name: "unknown email", creds: Credentials{Email: "bob@example.com", Password: "s3cret-pass"}},
		{name: "phone-only account", creds: Credentials{Email: "15551234567@phone.placeholder.local", Password: "s3cret-pass"}},
		{name: "empty password", creds: Credentials{Email: "alice@example.com"}},
		{name: "empty email", creds: Credentials{Password: "s3cret-pass"}},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(ctx, tt.creds)
			// identical error for every failure, so existence never leaks
			assert.Equal(t, ErrInvalidCredentials, err)
		})
	}
}

func TestPasswordStrategy_StoreFailureIsNotInvalidCredentials(t *testing.T) {
	users := newMemoryUsers()
	users.err = store.Unavailable("get user by email", errors.New("timeout"))

	_, err := NewPasswordStrategy(users).Verify(context.Background(), Credentials{Email: "a@example.com", Password: "x"})
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifier_UnknownMethod(t *testing.T) {
	v := NewVerifier(NewPasswordStrategy(newMemoryUsers()))

	_, err := v.Verify(context.Background(), "carrier-pigeon", Credentials{})
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}
