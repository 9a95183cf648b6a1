package otp

import (
	"context"
	"time"
)

// Verdict is the outcome of checking a code against a challenge.
// The ledger persists the matching transition.
type Verdict int

const (
	// VerdictMismatch decrements attempts and keeps the challenge
	VerdictMismatch Verdict = iota
	// VerdictMatch consumes the challenge
	VerdictMatch
	// VerdictExhausted discards the challenge and locks the number until the next issue
	VerdictExhausted
	// VerdictExpired discards the challenge
	VerdictExpired
)

func (v Verdict) String() string {
	switch v {
	case VerdictMismatch:
		return "mismatch"
	case VerdictMatch:
		return "match"
	case VerdictExhausted:
		return "exhausted"
	case VerdictExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Ledger stores at most one challenge per phone number. Implementations must
// make Issue and Attempt atomic per number.
type Ledger interface {
	// Issue replaces any existing challenge for c.PhoneNumber and clears an
	// exhaustion lock. It fails with ErrRateLimited when the previous challenge
	// was issued less than resendInterval before c.IssuedAt.
	Issue(ctx context.Context, c *Challenge, resendInterval time.Duration) error

	// Attempt loads the challenge, asks decide for a verdict and applies it.
	// A missing challenge yields ErrNoChallenge, or ErrTooManyAttempts while the
	// number is locked. decide may run more than once under contention.
	Attempt(ctx context.Context, phoneNumber string, decide func(c *Challenge) Verdict) (Verdict, error)

	// Discard drops the challenge and resend cooldown for a number
	Discard(ctx context.Context, phoneNumber string) error
}
