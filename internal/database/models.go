package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun row of the users table
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	Email         string    `bun:"email,notnull"`
	Name          string    `bun:"name,notnull"`
	PhoneNumber   *string   `bun:"phone_number"`
	PhoneVerified bool      `bun:"phone_verified,notnull"`
	PasswordHash  *string   `bun:"password_hash"`
	Role          string    `bun:"role,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// Post is the bun row of the posts table
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Title     string    `bun:"title,notnull"`
	Content   string    `bun:"content,notnull"`
	AuthorID  uuid.UUID `bun:"author_id,type:uuid,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`

	Author *User `bun:"rel:belongs-to,join:author_id=id"`
}

// Constraint names referenced when translating unique violations
const (
	UsersEmailKey       = "users_email_key"
	UsersPhoneNumberKey = "users_phone_number_key"
)
