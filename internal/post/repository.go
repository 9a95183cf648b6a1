package post

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-phone-auth/internal/database"
	"github.com/redmonkez12/go-phone-auth/internal/store"
)

// Repository handles post persistence
type Repository struct {
	db     bun.IDB
	policy store.Policy
}

func NewRepository(db bun.IDB, policy store.Policy) *Repository {
	return &Repository{db: db, policy: policy}
}

// Create inserts a post. Inserts are not idempotent, so it is attempted once.
func (r *Repository) Create(ctx context.Context, np NewPost) (*Post, error) {
	row := &database.Post{
		Title:     np.Title,
		Content:   np.Content,
		AuthorID:  np.AuthorID,
		CreatedAt: time.Now().UTC(),
	}

	err := r.policy.Once(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(row).
			Returning("id").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, store.Unavailable("create post", err)
	}

	return mapDBPostToModel(row), nil
}

// List returns posts newest first, each with its author
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	var rows []database.Post
	err := r.policy.Retry(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		err := r.db.NewSelect().
			Model(&rows).
			Relation("Author").
			Order("p.created_at DESC", "p.id DESC").
			Limit(limit).
			Offset(offset).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return store.Unavailable("list posts", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		entry := Entry{Post: *mapDBPostToModel(&rows[i])}
		if a := rows[i].Author; a != nil && a.ID == rows[i].AuthorID {
			entry.Author = &Author{ID: a.ID, Name: a.Name, Email: a.Email}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func mapDBPostToModel(row *database.Post) *Post {
	return &Post{
		ID:        row.ID,
		Title:     row.Title,
		Content:   row.Content,
		AuthorID:  row.AuthorID,
		CreatedAt: row.CreatedAt,
	}
}
