// Package otp issues and verifies one-time codes sent to phone numbers.
package otp

import (
	"errors"
	"time"
)

var (
	ErrNoChallenge     = errors.New("no active code for this phone number")
	ErrExpired         = errors.New("code has expired")
	ErrInvalidCode     = errors.New("invalid code")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrRateLimited     = errors.New("a code was sent recently, try again later")
	ErrDeliveryFailed  = errors.New("failed to deliver code")
)

// Challenge is the single outstanding code for a phone number.
// Only the hash of the code is kept.
type Challenge struct {
	PhoneNumber       string
	CodeHash          string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	AttemptsRemaining int
	Consumed          bool
}

// Expired reports whether now is past the challenge deadline
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
