package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-phone-auth/internal/database"
	"github.com/redmonkez12/go-phone-auth/internal/store"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicatePhone     = errors.New("phone number already exists")
	ErrNoUsableCredential = errors.New("user needs a password or a verified phone number")
)

const uniqueViolation = "23505"

// Repository handles user data persistence
type Repository struct {
	db     bun.IDB
	policy store.Policy
}

func NewRepository(db bun.IDB, policy store.Policy) *Repository {
	return &Repository{db: db, policy: policy}
}

// Create inserts a new user. Unique violations come back as ErrDuplicateEmail
// or ErrDuplicatePhone so callers can resolve creation races.
func (r *Repository) Create(ctx context.Context, nu NewUser) (*User, error) {
	role := nu.Role
	if role == "" {
		role = RoleStandard
	}

	now := time.Now().UTC()
	dbUser := &database.User{
		ID:            uuid.New(),
		Email:         NormalizeEmail(nu.Email),
		Name:          nu.Name,
		PhoneNumber:   nu.PhoneNumber,
		PhoneVerified: nu.PhoneVerified,
		PasswordHash:  nu.PasswordHash,
		Role:          string(role),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if !mapDBUserToModel(dbUser).HasUsableCredential() {
		return nil, ErrNoUsableCredential
	}

	err := r.policy.Once(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(dbUser).
			Returning("NULL").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, classify("create user", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "get user by email", "u.email = ?", NormalizeEmail(email))
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, "get user by id", "u.id = ?", id)
}

// GetByPhone retrieves a user by normalized phone number
func (r *Repository) GetByPhone(ctx context.Context, phoneNumber string) (*User, error) {
	return r.getOne(ctx, "get user by phone", "u.phone_number = ?", phoneNumber)
}

func (r *Repository) getOne(ctx context.Context, op, where string, arg any) (*User, error) {
	dbUser := new(database.User)
	err := r.policy.Retry(ctx, func(ctx context.Context) error {
		err := r.db.NewSelect().
			Model(dbUser).
			Where(where, arg).
			Limit(1).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return store.Unavailable(op, err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkPhoneVerified sets phone_verified. Calling it again is a no-op.
func (r *Repository) MarkPhoneVerified(ctx context.Context, id uuid.UUID) error {
	return r.updateOne(ctx, "mark phone verified", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("phone_verified = ?", true)
	})
}

// SetRole changes a user's privilege level
func (r *Repository) SetRole(ctx context.Context, id uuid.UUID, role Role) error {
	return r.updateOne(ctx, "set role", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("role = ?", string(role))
	})
}

func (r *Repository) updateOne(ctx context.Context, op string, id uuid.UUID, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	var rowsAffected int64
	err := r.policy.Retry(ctx, func(ctx context.Context) error {
		q := r.db.NewUpdate().
			Model((*database.User)(nil)).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id)

		result, err := set(q).Exec(ctx)
		if err != nil {
			return store.Unavailable(op, err)
		}

		rowsAffected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: failed to get rows affected: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns users ordered by creation time, newest first
func (r *Repository) List(ctx context.Context, limit, offset int) ([]User, error) {
	var rows []database.User
	err := r.policy.Retry(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		err := r.db.NewSelect().
			Model(&rows).
			Order("u.created_at DESC").
			Limit(limit).
			Offset(offset).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return store.Unavailable("list users", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(rows))
	for i := range rows {
		users = append(users, *mapDBUserToModel(&rows[i]))
	}
	return users, nil
}

// classify turns driver errors into package errors
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case database.UsersEmailKey:
			return ErrDuplicateEmail
		case database.UsersPhoneNumberKey:
			return ErrDuplicatePhone
		}
	}
	return store.Unavailable(op, err)
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:            dbu.ID,
		Email:         dbu.Email,
		Name:          dbu.Name,
		PhoneNumber:   dbu.PhoneNumber,
		PhoneVerified: dbu.PhoneVerified,
		PasswordHash:  dbu.PasswordHash,
		Role:          Role(dbu.Role),
		CreatedAt:     dbu.CreatedAt,
		UpdatedAt:     dbu.UpdatedAt,
	}
}
