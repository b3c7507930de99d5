package service

import (
	"context"
	"strings"

	"blog-server/internal/auth"
	"blog-server/internal/domain"
	"blog-server/internal/form"
	"blog-server/internal/repository"
)

// PostService coordinates post listing and ownership-checked mutations.
type PostService interface {
	ListRecent(ctx context.Context, page, perPage int) (domain.Page[domain.PostWithAuthor], error)
	ListByAuthor(ctx context.Context, username string, page, perPage int) (*domain.User, domain.Page[domain.PostWithAuthor], error)
	Get(ctx context.Context, id int64) (*domain.PostWithAuthor, error)
	GetForEdit(ctx context.Context, actor *domain.User, id int64) (*domain.Post, error)
	Create(ctx context.Context, actor *domain.User, title, content string) (*domain.Post, error)
	Update(ctx context.Context, actor *domain.User, id int64, title, content string) (*domain.Post, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

var postRules = form.Rules{
	"title":   {form.Required()},
	"content": {form.Required()},
}

type postService struct {
	store repository.Transactor
	posts repository.PostRepository
	users repository.UserRepository
}

func NewPostService(store repository.Transactor, posts repository.PostRepository, users repository.UserRepository) PostService {
	return &postService{
		store: store,
		posts: posts,
		users: users,
	}
}

func (s *postService) ListRecent(ctx context.Context, page, perPage int) (domain.Page[domain.PostWithAuthor], error) {
	return paginate(page, perPage, func(offset, limit int) ([]domain.PostWithAuthor, int, error) {
		return s.posts.ListRecent(ctx, offset, limit)
	})
}

func (s *postService) ListByAuthor(ctx context.Context, username string, page, perPage int) (*domain.User, domain.Page[domain.PostWithAuthor], error) {
	if page < 1 {
		return nil, domain.Page[domain.PostWithAuthor]{}, ErrInvalidPage
	}
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, domain.Page[domain.PostWithAuthor]{}, err
	}
	result, err := paginate(page, perPage, func(offset, limit int) ([]domain.PostWithAuthor, int, error) {
		return s.posts.ListByAuthor(ctx, author.ID, offset, limit)
	})
	if err != nil {
		return nil, result, err
	}
	return sanitizeUser(author), result, nil
}

func (s *postService) Get(ctx context.Context, id int64) (*domain.PostWithAuthor, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}
	return &domain.PostWithAuthor{
		Post: *post,
		Author: domain.Author{
			ID:        author.ID,
			Username:  author.Username,
			Email:     author.Email,
			ImageFile: author.ImageFile,
		},
	}, nil
}

// GetForEdit loads a post the actor is about to edit, refusing non-owners.
func (s *postService) GetForEdit(ctx context.Context, actor *domain.User, id int64) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanModify(post, actor) {
		return nil, ErrForbidden
	}
	return post, nil
}

func (s *postService) Create(ctx context.Context, actor *domain.User, title, content string) (*domain.Post, error) {
	if actor == nil || actor.ID == 0 {
		return nil, ErrForbidden
	}
	if errs := postRules.Validate(form.Values{"title": title, "content": content}); errs != nil {
		return nil, errs
	}

	post := &domain.Post{
		Title:    strings.TrimSpace(title),
		Content:  content,
		AuthorID: actor.ID,
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, actor *domain.User, id int64, title, content string) (*domain.Post, error) {
	var updated *domain.Post
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		post, err := repos.Posts.Get(ctx, id)
		if err != nil {
			return err
		}
		if !auth.CanModify(post, actor) {
			return ErrForbidden
		}
		if errs := postRules.Validate(form.Values{"title": title, "content": content}); errs != nil {
			return errs
		}

		post.Title = strings.TrimSpace(title)
		post.Content = content
		if err := repos.Posts.Update(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *postService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		post, err := repos.Posts.Get(ctx, id)
		if err != nil {
			return err
		}
		if !auth.CanModify(post, actor) {
			return ErrForbidden
		}
		return repos.Posts.Delete(ctx, id)
	})
}

func paginate(page, perPage int, fetch func(offset, limit int) ([]domain.PostWithAuthor, int, error)) (domain.Page[domain.PostWithAuthor], error) {
	if page < 1 {
		return domain.Page[domain.PostWithAuthor]{}, ErrInvalidPage
	}
	if perPage <= 0 {
		perPage = domain.DefaultPageSize
	}

	items, total, err := fetch((page-1)*perPage, perPage)
	if err != nil {
		return domain.Page[domain.PostWithAuthor]{}, err
	}
	return domain.Page[domain.PostWithAuthor]{
		Items:   items,
		Number:  page,
		PerPage: perPage,
		Total:   total,
	}, nil
}
