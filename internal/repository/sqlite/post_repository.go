package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

type PostRepository struct {
	db DBTX
}

func NewPostRepository(db DBTX) repository.PostRepository {
	return &PostRepository{db: db}
}

// Create stores the post. A zero CreatedAt is stamped with the current time.
func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.CreatedAt

	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (title, content, user_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		post.Title,
		post.Content,
		post.AuthorID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

// Update rewrites title and content. The author column is never touched.
func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE posts
SET title = ?, content = ?, updated_at = ?
WHERE id = ?`,
		post.Title,
		post.Content,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return expectAffected(res, "update post")
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectAffected(res, "delete post")
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	var post domain.Post
	err := r.db.QueryRowContext(ctx, `
SELECT id, title, content, user_id, created_at, updated_at
FROM posts
WHERE id = ?`, id).Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) ListRecent(ctx context.Context, offset, limit int) ([]domain.PostWithAuthor, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	posts, err := r.list(ctx, `
SELECT p.id, p.title, p.content, p.user_id, p.created_at, p.updated_at,
	u.username, u.email, u.image_file
FROM posts p
JOIN users u ON u.id = p.user_id
ORDER BY p.created_at DESC, p.id DESC
LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID int64, offset, limit int) ([]domain.PostWithAuthor, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = ?`, authorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count author posts: %w", err)
	}

	posts, err := r.list(ctx, `
SELECT p.id, p.title, p.content, p.user_id, p.created_at, p.updated_at,
	u.username, u.email, u.image_file
FROM posts p
JOIN users u ON u.id = p.user_id
WHERE p.user_id = ?
ORDER BY p.created_at DESC, p.id DESC
LIMIT ? OFFSET ?`, authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *PostRepository) list(ctx context.Context, query string, args ...any) ([]domain.PostWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.PostWithAuthor
	for rows.Next() {
		var p domain.PostWithAuthor
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Content,
			&p.AuthorID,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.Author.Username,
			&p.Author.Email,
			&p.Author.ImageFile,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Author.ID = p.AuthorID
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
