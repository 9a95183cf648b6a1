package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasetoService_SealOpen(t *testing.T) {
	s, err := NewPasetoService([]byte(testPasetoKey))
	require.NoError(t, err)

	sealed, err := s.Seal("raw-session-token", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "raw-session-token")

	token, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "raw-session-token", token)
}

func TestPasetoService_Rejects(t *testing.T) {
	s, err := NewPasetoService([]byte(testPasetoKey))
	require.NoError(t, err)

	other, err := NewPasetoService([]byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)

	sealed, err := s.Seal("raw", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Open(sealed[:len(sealed)-4] + "AAAA")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Open("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := s.Seal("raw", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = s.Open(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = s.Seal("", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewPasetoService_KeyLength(t *testing.T) {
	_, err := NewPasetoService([]byte("short"))
	assert.Error(t, err)
}
