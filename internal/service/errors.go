package service

import (
	"errors"

	"blog-server/internal/form"
	"blog-server/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername is returned when the requested username is taken.
	ErrDuplicateUsername = repository.ErrDuplicateUsername
	// ErrDuplicateEmail is returned when the requested email is taken.
	ErrDuplicateEmail = repository.ErrDuplicateEmail
	// ErrUnknownEmail is returned when a reset is requested for an unregistered address.
	ErrUnknownEmail = errors.New("unknown email")
	// ErrTokenInvalidOrExpired hides which check a reset token failed.
	ErrTokenInvalidOrExpired = errors.New("reset token is invalid or expired")
	// ErrForbidden is returned when the actor does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for missing posts and users.
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("invalid page")
)

var (
	usernameRules = []form.Rule{form.Required(), form.Length(3, 12)}
	emailRules    = []form.Rule{form.Required(), form.Email()}
	passwordRules = []form.Rule{form.Required()}
)
