package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps challenges in process memory. It suits a single instance
// and tests.
type MemoryLedger struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	lastIssued map[string]time.Time
	locked     map[string]bool
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		challenges: make(map[string]Challenge),
		lastIssued: make(map[string]time.Time),
		locked:     make(map[string]bool),
	}
}

func (l *MemoryLedger) Issue(_ context.Context, c *Challenge, resendInterval time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.lastIssued[c.PhoneNumber]; ok && c.IssuedAt.Sub(last) < resendInterval {
		return ErrRateLimited
	}

	l.challenges[c.PhoneNumber] = *c
	l.lastIssued[c.PhoneNumber] = c.IssuedAt
	delete(l.locked, c.PhoneNumber)
	return nil
}

func (l *MemoryLedger) Attempt(_ context.Context, phoneNumber string, decide func(c *Challenge) Verdict) (Verdict, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored, ok := l.challenges[phoneNumber]
	if !ok || stored.Consumed {
		if l.locked[phoneNumber] {
			return 0, ErrTooManyAttempts
		}
		return 0, ErrNoChallenge
	}

	c := stored
	verdict := decide(&c)

	switch verdict {
	case VerdictMismatch:
		stored.AttemptsRemaining--
		l.challenges[phoneNumber] = stored
	case VerdictExhausted:
		delete(l.challenges, phoneNumber)
		l.locked[phoneNumber] = true
	default:
		delete(l.challenges, phoneNumber)
	}

	return verdict, nil
}

func (l *MemoryLedger) Discard(_ context.Context, phoneNumber string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.challenges, phoneNumber)
	delete(l.lastIssued, phoneNumber)
	return nil
}
