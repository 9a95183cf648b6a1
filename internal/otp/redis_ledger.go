package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/go-phone-auth/internal/store"
)

const (
	// Expired challenges stay readable this long so callers see ErrExpired
	// instead of ErrNoChallenge.
	expiredRetention = 10 * time.Minute
	// An exhaustion lock outlives any sensible resend interval
	lockRetention = 24 * time.Hour
	// Optimistic transactions are retried this many times under contention
	maxTxRetries = 16
)

const (
	fieldCodeHash          = "code_hash"
	fieldIssuedAt          = "issued_at"
	fieldExpiresAt         = "expires_at"
	fieldAttemptsRemaining = "attempts_remaining"
	fieldConsumed          = "consumed"
)

var errContention = errors.New("optimistic transaction kept failing")

// RedisLedger stores challenges in Redis. Each operation runs as a
// WATCH/MULTI/EXEC transaction on the number's keys.
type RedisLedger struct {
	client *redis.Client
	policy store.Policy
}

func NewRedisLedger(client *redis.Client, policy store.Policy) *RedisLedger {
	return &RedisLedger{client: client, policy: policy}
}

// getChallengeKey generates the Redis key for a phone number's challenge
func getChallengeKey(phoneNumber string) string {
	return fmt.Sprintf("otp:challenge:%s", phoneNumber)
}

// getCooldownKey generates the Redis key holding the last issue time
func getCooldownKey(phoneNumber string) string {
	return fmt.Sprintf("otp:cooldown:%s", phoneNumber)
}

// getLockKey generates the Redis key marking an exhausted number
func getLockKey(phoneNumber string) string {
	return fmt.Sprintf("otp:locked:%s", phoneNumber)
}

func (l *RedisLedger) Issue(ctx context.Context, c *Challenge, resendInterval time.Duration) error {
	challengeKey := getChallengeKey(c.PhoneNumber)
	cooldownKey := getCooldownKey(c.PhoneNumber)
	lockKey := getLockKey(c.PhoneNumber)

	txf := func(ctx context.Context) func(tx *redis.Tx) error {
		return func(tx *redis.Tx) error {
			last, err := tx.Get(ctx, cooldownKey).Int64()
			switch {
			case err == nil:
				if c.IssuedAt.Sub(time.UnixMilli(last)) < resendInterval {
					return ErrRateLimited
				}
			case !errors.Is(err, redis.Nil):
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, challengeKey, lockKey)
				pipe.HSet(ctx, challengeKey, encodeChallenge(c))
				pipe.PExpire(ctx, challengeKey, c.ExpiresAt.Sub(c.IssuedAt)+expiredRetention)
				if resendInterval > 0 {
					pipe.Set(ctx, cooldownKey, c.IssuedAt.UnixMilli(), resendInterval)
				}
				return nil
			})
			return err
		}
	}

	return l.watch(ctx, "issue otp challenge", txf, challengeKey, cooldownKey)
}

func (l *RedisLedger) Attempt(ctx context.Context, phoneNumber string, decide func(c *Challenge) Verdict) (Verdict, error) {
	challengeKey := getChallengeKey(phoneNumber)
	lockKey := getLockKey(phoneNumber)

	var verdict Verdict
	txf := func(ctx context.Context) func(tx *redis.Tx) error {
		return func(tx *redis.Tx) error {
			fields, err := tx.HGetAll(ctx, challengeKey).Result()
			if err != nil {
				return err
			}

			if len(fields) == 0 {
				locked, err := tx.Exists(ctx, lockKey).Result()
				if err != nil {
					return err
				}
				if locked > 0 {
					return ErrTooManyAttempts
				}
				return ErrNoChallenge
			}

			c, err := decodeChallenge(phoneNumber, fields)
			if err != nil {
				return err
			}
			if c.Consumed {
				return ErrNoChallenge
			}

			verdict = decide(c)

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				switch verdict {
				case VerdictMismatch:
					pipe.HIncrBy(ctx, challengeKey, fieldAttemptsRemaining, -1)
				case VerdictExhausted:
					pipe.Del(ctx, challengeKey)
					pipe.Set(ctx, lockKey, 1, lockRetention)
				default:
					pipe.Del(ctx, challengeKey)
				}
				return nil
			})
			return err
		}
	}

	if err := l.watch(ctx, "verify otp challenge", txf, challengeKey, lockKey); err != nil {
		return 0, err
	}
	return verdict, nil
}

func (l *RedisLedger) Discard(ctx context.Context, phoneNumber string) error {
	err := l.policy.Once(ctx, func(ctx context.Context) error {
		return l.client.Del(ctx, getChallengeKey(phoneNumber), getCooldownKey(phoneNumber)).Err()
	})
	if err != nil {
		return store.Unavailable("discard otp challenge", err)
	}
	return nil
}

// watch runs an optimistic transaction, retrying only when a watched key
// changed underneath it. Domain errors pass through untouched.
func (l *RedisLedger) watch(ctx context.Context, op string, txf func(ctx context.Context) func(*redis.Tx) error, keys ...string) error {
	return l.policy.Once(ctx, func(ctx context.Context) error {
		for range maxTxRetries {
			err := l.client.Watch(ctx, txf(ctx), keys...)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, redis.TxFailedErr):
				continue
			case errors.Is(err, ErrRateLimited),
				errors.Is(err, ErrNoChallenge),
				errors.Is(err, ErrTooManyAttempts):
				return err
			default:
				return store.Unavailable(op, err)
			}
		}
		return store.Unavailable(op, errContention)
	})
}

func encodeChallenge(c *Challenge) map[string]any {
	return map[string]any{
		fieldCodeHash:          c.CodeHash,
		fieldIssuedAt:          c.IssuedAt.UnixMilli(),
		fieldExpiresAt:         c.ExpiresAt.UnixMilli(),
		fieldAttemptsRemaining: c.AttemptsRemaining,
		fieldConsumed:          strconv.FormatBool(c.Consumed),
	}
}

func decodeChallenge(phoneNumber string, fields map[string]string) (*Challenge, error) {
	issuedAt, err := strconv.ParseInt(fields[fieldIssuedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldIssuedAt, err)
	}
	expiresAt, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldExpiresAt, err)
	}
	attempts, err := strconv.Atoi(fields[fieldAttemptsRemaining])
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", fieldAttemptsRemaining, err)
	}
	consumed, _ := strconv.ParseBool(fields[fieldConsumed])

	return &Challenge{
		PhoneNumber:       phoneNumber,
		CodeHash:          fields[fieldCodeHash],
		IssuedAt:          time.UnixMilli(issuedAt),
		ExpiresAt:         time.UnixMilli(expiresAt),
		AttemptsRemaining: attempts,
		Consumed:          consumed,
	}, nil
}
