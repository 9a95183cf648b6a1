package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, max, time.Minute), mr
}

func TestLimiter_WindowFillsAndResets(t *testing.T) {
	l, mr := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := range 3 {
		exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "otp")
		require.NoError(t, err)
		require.False(t, exceeded, "request %d", i)
		require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "otp"))
	}

	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "otp")
	require.NoError(t, err)
	assert.True(t, exceeded)

	// purposes and addresses are counted separately
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "sign_in")
	require.NoError(t, err)
	assert.False(t, exceeded)
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.2", "otp")
	require.NoError(t, err)
	assert.False(t, exceeded)

	assert.Equal(t, time.Minute, mr.TTL(getIPKey("otp", "10.0.0.1")))

	mr.FastForward(time.Minute)
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "otp")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestLimiter_DisabledOrNil(t *testing.T) {
	l, _ := newTestLimiter(t, 0)
	require.NoError(t, l.RecordIPRequestWithPurpose(context.Background(), "ip", "p"))
	exceeded, err := l.CheckIPRateLimitWithPurpose(context.Background(), "ip", "p")
	require.NoError(t, err)
	assert.False(t, exceeded)

	var nilLimiter *Limiter
	exceeded, err = nilLimiter.CheckIPRateLimitWithPurpose(context.Background(), "ip", "p")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestLimiter_CounterWithoutWindowGetsOne(t *testing.T) {
	l, mr := newTestLimiter(t, 3)
	ctx := context.Background()
	key := getIPKey("otp", "10.0.0.1")

	// a counter left behind without a TTL
	require.NoError(t, mr.Set(key, "3"))

	require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "otp"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// later requests in the window do not extend it
	mr.FastForward(30 * time.Second)
	require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "otp"))
	assert.Equal(t, 30*time.Second, mr.TTL(key))

	mr.FastForward(30 * time.Second)
	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "otp")
	require.NoError(t, err)
	assert.False(t, exceeded)
}
