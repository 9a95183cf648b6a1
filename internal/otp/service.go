package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
	"github.com/redmonkez12/go-phone-auth/internal/metrics"
	"github.com/redmonkez12/go-phone-auth/internal/notify"
)

// Config controls code shape and abuse limits
type Config struct {
	CodeLength     int
	TTL            time.Duration
	MaxAttempts    int
	ResendInterval time.Duration
	HashCost       int
}

// Service handles the one-time code lifecycle. Phone numbers must already be
// normalized.
type Service struct {
	ledger  Ledger
	sender  notify.Sender
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.Metrics

	now      func() time.Time
	generate func(length int) (string, error)
}

func NewService(ledger Ledger, sender notify.Sender, cfg Config, logger *logging.Logger, m *metrics.Metrics) *Service {
	return &Service{
		ledger:   ledger,
		sender:   sender,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		generate: GenerateCode,
	}
}

// SendCode issues a fresh code for phoneNumber, replacing any live one, and
// hands it to the sender.
func (s *Service) SendCode(ctx context.Context, phoneNumber string) error {
	code, err := s.generate(s.cfg.CodeLength)
	if err != nil {
		s.metrics.OTPSent("error")
		return err
	}

	codeHash, err := hashCode(code, s.cfg.HashCost)
	if err != nil {
		s.metrics.OTPSent("error")
		return err
	}

	now := s.now()
	challenge := &Challenge{
		PhoneNumber:       phoneNumber,
		CodeHash:          codeHash,
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.cfg.TTL),
		AttemptsRemaining: s.cfg.MaxAttempts,
	}

	if err := s.ledger.Issue(ctx, challenge, s.cfg.ResendInterval); err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.metrics.OTPSent("rate_limited")
			return ErrRateLimited
		}
		s.metrics.OTPSent("error")
		return fmt.Errorf("failed to issue challenge: %w", err)
	}

	if err := s.sender.SendOTP(ctx, phoneNumber, code, s.cfg.TTL); err != nil {
		s.metrics.OTPSent("delivery_failed")
		s.logger.Error("failed to deliver otp", "phone_number", phoneNumber, "error", err)

		// The caller never saw the code; let them ask again right away
		if discardErr := s.ledger.Discard(context.WithoutCancel(ctx), phoneNumber); discardErr != nil {
			s.logger.Warn("failed to discard undelivered challenge", "phone_number", phoneNumber, "error", discardErr)
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	s.metrics.OTPSent("ok")
	return nil
}

// VerifyCode checks code against the live challenge. It succeeds at most once
// per issued code.
func (s *Service) VerifyCode(ctx context.Context, phoneNumber, code string) error {
	now := s.now()

	verdict, err := s.ledger.Attempt(ctx, phoneNumber, func(c *Challenge) Verdict {
		if c.Expired(now) {
			return VerdictExpired
		}
		if codeMatches(c.CodeHash, code) {
			return VerdictMatch
		}
		if c.AttemptsRemaining <= 1 {
			return VerdictExhausted
		}
		return VerdictMismatch
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoChallenge):
			s.metrics.OTPVerified("no_challenge")
		case errors.Is(err, ErrTooManyAttempts):
			s.metrics.OTPVerified("too_many_attempts")
		default:
			s.metrics.OTPVerified("error")
		}
		return err
	}

	s.metrics.OTPVerified(verdict.String())

	switch verdict {
	case VerdictMatch:
		return nil
	case VerdictExpired:
		return ErrExpired
	case VerdictExhausted:
		s.logger.Warn("otp attempts exhausted", "phone_number", phoneNumber)
		return ErrTooManyAttempts
	default:
		return ErrInvalidCode
	}
}
