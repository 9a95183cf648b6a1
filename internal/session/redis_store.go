package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/go-phone-auth/internal/store"
)

// RedisStore handles session persistence in Redis
type RedisStore struct {
	client *redis.Client
	policy store.Policy
}

func NewRedisStore(client *redis.Client, policy store.Policy) *RedisStore {
	return &RedisStore{client: client, policy: policy}
}

// getSessionKey generates the Redis key for a session
func getSessionKey(tokenHash string) string {
	return fmt.Sprintf("session:%s", tokenHash)
}

// getUserSessionsKey generates the Redis key for an identity's session set
func getUserSessionsKey(identityID uuid.UUID) string {
	return fmt.Sprintf("user_sessions:%s", identityID.String())
}

// Save stores a session with a TTL matching its expiry
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	tokenHash := hashToken(s.Token)
	sessionKey := getSessionKey(tokenHash)
	userSessionsKey := getUserSessionsKey(s.IdentityID)

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session expiration time is in the past")
	}

	return r.policy.Retry(ctx, func(ctx context.Context) error {
		pipe := r.client.TxPipeline()

		pipe.HSet(ctx, sessionKey, map[string]any{
			"identity_id": s.IdentityID.String(),
			"issued_at":   s.IssuedAt.UnixMilli(),
			"expires_at":  s.ExpiresAt.UnixMilli(),
		})
		pipe.PExpire(ctx, sessionKey, ttl)

		// The set lives as long as the newest session in it
		pipe.SAdd(ctx, userSessionsKey, tokenHash)
		pipe.PExpire(ctx, userSessionsKey, ttl)

		if _, err := pipe.Exec(ctx); err != nil {
			return store.Unavailable("save session", err)
		}
		return nil
	})
}

// Get retrieves a session by token
func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	var fields map[string]string
	err := r.policy.Retry(ctx, func(ctx context.Context) error {
		var err error
		fields, err = r.client.HGetAll(ctx, getSessionKey(hashToken(token))).Result()
		if err != nil {
			return store.Unavailable("get session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	identityID, err := uuid.Parse(fields["identity_id"])
	if err != nil {
		return nil, fmt.Errorf("invalid identity_id in session: %w", err)
	}
	issuedAt, err := strconv.ParseInt(fields["issued_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid issued_at in session: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expires_at in session: %w", err)
	}

	return &Session{
		Token:      token,
		IdentityID: identityID,
		IssuedAt:   time.UnixMilli(issuedAt),
		ExpiresAt:  time.UnixMilli(expiresAt),
	}, nil
}

// Delete removes a session and its entry in the identity's set
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	tokenHash := hashToken(token)
	sessionKey := getSessionKey(tokenHash)

	return r.policy.Retry(ctx, func(ctx context.Context) error {
		identityID, err := r.client.HGet(ctx, sessionKey, "identity_id").Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return store.Unavailable("delete session", err)
		}

		pipe := r.client.TxPipeline()
		pipe.Del(ctx, sessionKey)
		if id, err := uuid.Parse(identityID); err == nil {
			pipe.SRem(ctx, getUserSessionsKey(id), tokenHash)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return store.Unavailable("delete session", err)
		}
		return nil
	})
}

// DeleteAllForIdentity removes every session belonging to identityID
func (r *RedisStore) DeleteAllForIdentity(ctx context.Context, identityID uuid.UUID) error {
	userSessionsKey := getUserSessionsKey(identityID)

	return r.policy.Retry(ctx, func(ctx context.Context) error {
		hashes, err := r.client.SMembers(ctx, userSessionsKey).Result()
		if err != nil {
			return store.Unavailable("list identity sessions", err)
		}

		keys := make([]string, 0, len(hashes)+1)
		for _, h := range hashes {
			keys = append(keys, getSessionKey(h))
		}
		keys = append(keys, userSessionsKey)

		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return store.Unavailable("delete identity sessions", err)
		}
		return nil
	})
}
