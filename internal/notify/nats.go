package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/redmonkez12/go-phone-auth/internal/logging"
)

const flushTimeout = 5 * time.Second

// publisher is the part of *nats.Conn the sender needs
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// OTPMessage is published for the SMS gateway to deliver
type OTPMessage struct {
	PhoneNumber      string `json:"phone_number"`
	Code             string `json:"code"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// NATSSender publishes codes on a NATS subject
type NATSSender struct {
	conn    publisher
	subject string
	logger  *logging.Logger
	closer  func()
}

// NewNATSSender connects to url and publishes on subject
func NewNATSSender(url, subject string, logger *logging.Logger) (*NATSSender, error) {
	conn, err := nats.Connect(url, nats.Name("go-phone-auth"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	s := newNATSSender(conn, subject, logger)
	s.closer = conn.Close
	return s, nil
}

func newNATSSender(conn publisher, subject string, logger *logging.Logger) *NATSSender {
	return &NATSSender{conn: conn, subject: subject, logger: logger}
}

// SendOTP publishes the code and waits for the server to acknowledge the flush,
// so a caller learns about delivery failures before answering the client.
func (s *NATSSender) SendOTP(ctx context.Context, phoneNumber, code string, expiresIn time.Duration) error {
	payload, err := json.Marshal(OTPMessage{
		PhoneNumber:      phoneNumber,
		Code:             code,
		ExpiresInSeconds: int(expiresIn / time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal otp message: %w", err)
	}

	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("failed to publish otp message: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		// nats rejects flushes without a deadline
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush otp message: %w", err)
	}

	s.logger.Debug("otp message published", "subject", s.subject, "phone_number", phoneNumber)
	return nil
}

// Close closes the NATS connection
func (s *NATSSender) Close() {
	if s.closer != nil {
		s.closer()
	}
}
