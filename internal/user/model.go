package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the privilege level of an account
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleAdmin
}

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PhoneNumber   *string   `json:"phone_number,omitempty"`
	PhoneVerified bool      `json:"phone_verified"`
	PasswordHash  *string   `json:"-"` // Never expose password hash in JSON
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasUsableCredential reports whether the account can sign in by some method
func (u *User) HasUsableCredential() bool {
	return (u.PasswordHash != nil && *u.PasswordHash != "") || u.PhoneVerified
}

// NewUser carries the fields of an account about to be created
type NewUser struct {
	Email         string
	Name          string
	PhoneNumber   *string
	PhoneVerified bool
	PasswordHash  *string
	Role          Role
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
