package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/store"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	policy := store.Policy{Timeout: time.Second, MaxRetries: 1, InitialInterval: time.Millisecond}
	return NewRedisStore(client, policy), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	st, mr := newRedisStore(t)
	m := NewManager(st, time.Hour, logging.NewDiscardLogger())
	ctx := context.Background()
	id := uuid.New()

	s, err := m.Create(ctx, id)
	require.NoError(t, err)

	key := getSessionKey(hashToken(s.Token))
	assert.True(t, mr.Exists(key))
	assert.False(t, mr.Exists(getSessionKey(s.Token)), "raw token must not be a key")
	assert.Greater(t, mr.TTL(key), 59*time.Minute)

	got, ok, err := m.Resolve(ctx, s.Token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, got.IdentityID)
	assert.WithinDuration(t, s.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	st, mr := newRedisStore(t)
	m := NewManager(st, time.Hour, logging.NewDiscardLogger())
	ctx := context.Background()

	s, err := m.Create(ctx, uuid.New())
	require.NoError(t, err)

	mr.FastForward(time.Hour + time.Second)

	_, ok, err := m.Resolve(ctx, s.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_DeleteAndDeleteAll(t *testing.T) {
	st, mr := newRedisStore(t)
	m := NewManager(st, time.Hour, logging.NewDiscardLogger())
	ctx := context.Background()
	id := uuid.New()

	s1, err := m.Create(ctx, id)
	require.NoError(t, err)
	s2, err := m.Create(ctx, id)
	require.NoError(t, err)

	require.NoError(t, m.Invalidate(ctx, s1.Token))
	require.NoError(t, m.Invalidate(ctx, s1.Token))

	members, err := mr.Members(getUserSessionsKey(id))
	require.NoError(t, err)
	assert.Equal(t, []string{hashToken(s2.Token)}, members)

	require.NoError(t, m.InvalidateAll(ctx, id))
	assert.False(t, mr.Exists(getSessionKey(hashToken(s2.Token))))
	assert.False(t, mr.Exists(getUserSessionsKey(id)))
}

func TestRedisStore_Unavailable(t *testing.T) {
	st, mr := newRedisStore(t)
	mr.Close()

	_, err := st.Get(context.Background(), "token")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
