// Package notify delivers one-time codes to phone numbers out of band.
package notify

import (
	"context"
	"time"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
)

// Sender delivers a code to a phone number
type Sender interface {
	SendOTP(ctx context.Context, phoneNumber, code string, expiresIn time.Duration) error
}

// LogSender writes codes to the log. Development only.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOTP(_ context.Context, phoneNumber, code string, expiresIn time.Duration) error {
	s.logger.Info("otp code issued",
		"phone_number", phoneNumber,
		"code", code,
		"expires_in", expiresIn.String(),
	)
	return nil
}
