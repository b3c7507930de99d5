package repository

import (
	"context"

	"blog-server/internal/domain"
)

// PostRepository exposes persistence operations for posts. Listings are
// ordered newest first.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Post, error)
	ListRecent(ctx context.Context, offset, limit int) ([]domain.PostWithAuthor, int, error)
	ListByAuthor(ctx context.Context, authorID int64, offset, limit int) ([]domain.PostWithAuthor, int, error)
}

// Repositories groups the repositories bound to one database handle.
type Repositories struct {
	Users UserRepository
	Posts PostRepository
}

// Transactor runs fn with repositories that share a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
