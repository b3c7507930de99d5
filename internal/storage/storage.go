package storage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned for object keys that would escape the store.
var ErrInvalidKey = errors.New("invalid object key")

// Service persists profile photos and resolves the URL they are served from.
type Service interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}
