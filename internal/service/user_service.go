package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"blog-server/internal/auth"
	"blog-server/internal/domain"
	"blog-server/internal/form"
	"blog-server/internal/mail"
	"blog-server/internal/repository"
)

// UserService describes account lifecycle operations, including the two
// phase password reset flow.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*domain.User, error)
	SetPassword(ctx context.Context, userID int64, password string) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string, linkFor func(token string) string) error
	VerifyResetToken(ctx context.Context, token string) (*domain.User, error)
	ResetPassword(ctx context.Context, token, password string) (*domain.User, error)
}

// ProfileUpdate carries the editable account fields. An empty ImageFile
// keeps the current photo.
type ProfileUpdate struct {
	Username  string
	Email     string
	ImageFile string
	// StorePhoto, when set, stores a new photo and returns its file name.
	// It runs only once the username and email are known to be free.
	StorePhoto func(ctx context.Context) (string, error)
}

// UserServiceConfig holds the collaborators of the user service.
type UserServiceConfig struct {
	Store      repository.Transactor
	Users      repository.UserRepository
	Resets     *auth.ResetTokens
	Notifier   mail.Notifier
	BcryptCost int
	Logger     logrus.FieldLogger
}

type userService struct {
	store    repository.Transactor
	users    repository.UserRepository
	resets   *auth.ResetTokens
	notifier mail.Notifier
	cost     int
	logger   logrus.FieldLogger
}

func NewUserService(cfg UserServiceConfig) UserService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &userService{
		store:    cfg.Store,
		users:    cfg.Users,
		resets:   cfg.Resets,
		notifier: cfg.Notifier,
		cost:     cfg.BcryptCost,
		logger:   cfg.Logger,
	}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if errs := ValidateRegistration(username, email, password); errs != nil {
		return nil, errs
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		ImageFile:    domain.DefaultImageFile,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := checkAvailable(ctx, repos.Users, nil, username, email); err != nil {
			return err
		}
		_, err := repos.Users.Create(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*domain.User, error) {
	update.Username = strings.TrimSpace(update.Username)
	update.Email = strings.TrimSpace(update.Email)

	if errs := ValidateProfile(update); errs != nil {
		return nil, errs
	}

	var updated *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := checkAvailable(ctx, repos.Users, current, update.Username, update.Email); err != nil {
			return err
		}

		if update.StorePhoto != nil {
			name, err := update.StorePhoto(ctx)
			if err != nil {
				return err
			}
			update.ImageFile = name
		}

		current.Username = update.Username
		current.Email = update.Email
		if update.ImageFile != "" {
			current.ImageFile = update.ImageFile
		}
		if err := repos.Users.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sanitizeUser(updated), nil
}

// ValidateRegistration checks the fields of a new account without
// consulting the store.
func ValidateRegistration(username, email, password string) form.Errors {
	return form.Rules{
		"username": usernameRules,
		"email":    emailRules,
		"password": passwordRules,
	}.Validate(form.Values{
		"username": strings.TrimSpace(username),
		"email":    strings.TrimSpace(email),
		"password": password,
	})
}

// ValidateProfile checks the editable account fields without consulting
// the store, so callers can reject a form before doing any other work.
func ValidateProfile(update ProfileUpdate) form.Errors {
	return form.Rules{
		"username": usernameRules,
		"email":    emailRules,
	}.Validate(form.Values{
		"username": strings.TrimSpace(update.Username),
		"email":    strings.TrimSpace(update.Email),
	})
}

func (s *userService) SetPassword(ctx context.Context, userID int64, password string) error {
	if errs := (form.Rules{"password": passwordRules}).Validate(form.Values{"password": password}); errs != nil {
		return errs
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, userID, hash)
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// RequestPasswordReset issues a reset token for the account registered
// under email and mails the link built by linkFor. Delivery is best effort:
// a failed send is logged and does not fail the request.
func (s *userService) RequestPasswordReset(ctx context.Context, email string, linkFor func(token string) string) error {
	email = strings.TrimSpace(email)
	if errs := (form.Rules{"email": emailRules}).Validate(form.Values{"email": email}); errs != nil {
		return errs
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownEmail
		}
		return err
	}

	token, err := s.resets.Issue(user)
	if err != nil {
		return err
	}

	if err := s.notifier.SendResetLink(ctx, user, linkFor(token)); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("send reset mail failed")
	}
	return nil
}

// VerifyResetToken resolves the account a reset token was issued for.
func (s *userService) VerifyResetToken(ctx context.Context, token string) (*domain.User, error) {
	id, err := s.resets.Decode(token)
	if err != nil {
		return nil, ErrTokenInvalidOrExpired
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) ResetPassword(ctx context.Context, token, password string) (*domain.User, error) {
	user, err := s.VerifyResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.SetPassword(ctx, user.ID, password); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// checkAvailable reports taken usernames and emails. Fields equal to the
// current user's own values are not checked. Both conflicts are joined so
// callers can flag each field.
func checkAvailable(ctx context.Context, users repository.UserRepository, current *domain.User, username, email string) error {
	var errs []error
	if current == nil || current.Username != username {
		taken, err := exists(func() (*domain.User, error) { return users.GetByUsername(ctx, username) })
		if err != nil {
			return err
		}
		if taken {
			errs = append(errs, ErrDuplicateUsername)
		}
	}
	if current == nil || current.Email != email {
		taken, err := exists(func() (*domain.User, error) { return users.GetByEmail(ctx, email) })
		if err != nil {
			return err
		}
		if taken {
			errs = append(errs, ErrDuplicateEmail)
		}
	}
	return errors.Join(errs...)
}

func exists(lookup func() (*domain.User, error)) (bool, error) {
	_, err := lookup()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		ImageFile: user.ImageFile,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
