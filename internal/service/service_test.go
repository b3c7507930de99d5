package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"blog-server/internal/auth"
	"blog-server/internal/domain"
	"blog-server/internal/form"
	"blog-server/internal/repository"
	"blog-server/internal/repository/sqlite"
)

type sentMail struct {
	to   string
	link string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) SendResetLink(_ context.Context, user *domain.User, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{to: user.Email, link: link})
	return n.err
}

type fixture struct {
	users    UserService
	posts    PostService
	resets   *auth.ResetTokens
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(context.Background(), db, nil))

	store := sqlite.NewStore(db)
	repos := store.Repositories()
	resets := auth.NewResetTokens([]byte("test-secret"), 30*time.Minute)
	notifier := &recordingNotifier{}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &fixture{
		users: NewUserService(UserServiceConfig{
			Store:      store,
			Users:      repos.Users,
			Resets:     resets,
			Notifier:   notifier,
			BcryptCost: bcrypt.MinCost,
			Logger:     logger,
		}),
		posts:    NewPostService(store, repos.Posts, repos.Users),
		resets:   resets,
		notifier: notifier,
	}
}

func (f *fixture) register(t *testing.T, username, email, password string) *domain.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), username, email, password)
	require.NoError(t, err)
	return u
}

func linkFor(token string) string {
	return "http://localhost:8080/reset_password/" + token
}

func TestRegister_Duplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.register(t, "alice", "a@x.com", "secret")
	assert.Equal(t, domain.DefaultImageFile, u.ImageFile)
	assert.Empty(t, u.PasswordHash)

	_, err := f.users.Register(ctx, "alice", "other@x.com", "secret")
	require.ErrorIs(t, err, ErrDuplicateUsername)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)

	_, err = f.users.Register(ctx, "bob", "a@x.com", "secret")
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = f.users.Register(ctx, "alice", "a@x.com", "secret")
	require.ErrorIs(t, err, ErrDuplicateUsername)
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Register(context.Background(), "al", "not-an-email", "")
	var errs form.Errors
	require.True(t, errors.As(err, &errs))
	assert.True(t, errs.Has("username"))
	assert.True(t, errs.Has("email"))
	assert.True(t, errs.Has("password"))
}

func TestRegister_Concurrent(t *testing.T) {
	f := newFixture(t)

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.users.Register(context.Background(), "racer", "racer@x.com", "secret")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.True(t, errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrDuplicateEmail), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", "secret")

	u, err := f.users.Authenticate(ctx, "a@x.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = f.users.Authenticate(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Authenticate(ctx, "nobody@x.com", "secret")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Authenticate(ctx, "A@x.com", "secret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "a@x.com", "secret")
	f.register(t, "bob", "b@x.com", "secret")

	// unchanged fields are not checked against the user's own row
	u, err := f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultImageFile, u.ImageFile)

	_, err = f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: "bob", Email: "a@x.com"})
	require.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: "alice", Email: "b@x.com"})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	u, err = f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: "alicia", Email: "alicia@x.com", ImageFile: "0123456789abcdef.png"})
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Username)
	assert.Equal(t, "0123456789abcdef.png", u.ImageFile)

	u, err = f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: "alicia", Email: "alicia@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef.png", u.ImageFile)
}

func TestUpdateProfile_StoresPhotoOnlyWhenAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "a@x.com", "secret")
	f.register(t, "bob", "b@x.com", "secret")

	calls := 0
	store := func(context.Context) (string, error) {
		calls++
		return "fedcba9876543210.png", nil
	}

	_, err := f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: "bob", Email: "a@x.com", StorePhoto: store})
	require.ErrorIs(t, err, ErrDuplicateUsername)
	_, err = f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: "", Email: "a@x.com", StorePhoto: store})
	require.Error(t, err)
	assert.Equal(t, 0, calls)

	u, err := f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{Username: "alice", Email: "a@x.com", StorePhoto: store})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "fedcba9876543210.png", u.ImageFile)

	boom := errors.New("disk full")
	_, err = f.users.UpdateProfile(ctx, alice.ID, ProfileUpdate{
		Username:   "alicia",
		Email:      "a@x.com",
		StorePhoto: func(context.Context) (string, error) { return "", boom },
	})
	require.ErrorIs(t, err, boom)

	unchanged, err := f.users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", unchanged.Username)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", "old-password")

	err := f.users.RequestPasswordReset(ctx, "nobody@x.com", linkFor)
	require.ErrorIs(t, err, ErrUnknownEmail)
	assert.Empty(t, f.notifier.sent)

	require.NoError(t, f.users.RequestPasswordReset(ctx, "a@x.com", linkFor))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "a@x.com", f.notifier.sent[0].to)

	token := strings.TrimPrefix(f.notifier.sent[0].link, "http://localhost:8080/reset_password/")
	require.NotEmpty(t, token)

	u, err := f.users.VerifyResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = f.users.ResetPassword(ctx, token, "new-password")
	require.NoError(t, err)

	_, err = f.users.Authenticate(ctx, "a@x.com", "new-password")
	require.NoError(t, err)
	_, err = f.users.Authenticate(ctx, "a@x.com", "old-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordReset_InvalidTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "a@x.com", "secret")

	issuedAt := time.Now().Add(-time.Hour)
	expired, err := auth.NewResetTokens([]byte("test-secret"), 30*time.Minute).
		WithClock(func() time.Time { return issuedAt }).
		Issue(alice)
	require.NoError(t, err)
	_, err = f.users.ResetPassword(ctx, expired, "whatever")
	require.ErrorIs(t, err, ErrTokenInvalidOrExpired)

	forged, err := auth.NewResetTokens([]byte("other-secret"), 30*time.Minute).Issue(alice)
	require.NoError(t, err)
	_, err = f.users.VerifyResetToken(ctx, forged)
	require.ErrorIs(t, err, ErrTokenInvalidOrExpired)

	ghost, err := f.resets.Issue(&domain.User{ID: 999})
	require.NoError(t, err)
	_, err = f.users.VerifyResetToken(ctx, ghost)
	require.ErrorIs(t, err, ErrTokenInvalidOrExpired)

	_, err = f.users.Authenticate(ctx, "a@x.com", "secret")
	require.NoError(t, err)
}

func TestRequestPasswordReset_MailFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	f.register(t, "alice", "a@x.com", "secret")

	require.NoError(t, f.users.RequestPasswordReset(context.Background(), "a@x.com", linkFor))
	assert.Len(t, f.notifier.sent, 1)
}

func TestPosts_OwnershipScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "a@x.com", "secret")
	bob := f.register(t, "bob", "b@x.com", "secret")

	p1, err := f.posts.Create(ctx, alice, "Hello", "World")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p1.AuthorID)

	updated, err := f.posts.Update(ctx, alice, p1.ID, "Hello!", "World!")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", updated.Title)

	_, err = f.posts.Update(ctx, bob, p1.ID, "Hijack", "x")
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.posts.GetForEdit(ctx, bob, p1.ID)
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, f.posts.Delete(ctx, bob, p1.ID), ErrForbidden)

	got, err := f.posts.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", got.Title)
	assert.Equal(t, "alice", got.Author.Username)

	require.NoError(t, f.posts.Delete(ctx, alice, p1.ID))

	page, err := f.posts.ListRecent(ctx, 1, domain.DefaultPageSize)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = f.posts.Get(ctx, p1.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPosts_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "a@x.com", "secret")

	_, err := f.posts.Create(ctx, alice, " ", "")
	var errs form.Errors
	require.True(t, errors.As(err, &errs))
	assert.True(t, errs.Has("title"))
	assert.True(t, errs.Has("content"))

	_, err = f.posts.Create(ctx, nil, "t", "c")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestPosts_ListRecentPartitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "a@x.com", "secret")
	for i := 0; i < 7; i++ {
		_, err := f.posts.Create(ctx, alice, "title", "content")
		require.NoError(t, err)
	}

	first, err := f.posts.ListRecent(ctx, 1, 5)
	require.NoError(t, err)
	second, err := f.posts.ListRecent(ctx, 2, 5)
	require.NoError(t, err)
	third, err := f.posts.ListRecent(ctx, 3, 5)
	require.NoError(t, err)

	assert.Len(t, first.Items, 5)
	assert.Len(t, second.Items, 2)
	assert.Empty(t, third.Items)
	assert.Equal(t, 2, first.Pages())
	assert.True(t, first.HasNext())

	ids := map[int64]bool{}
	for _, p := range append(first.Items, second.Items...) {
		ids[p.ID] = true
	}
	assert.Len(t, ids, 7)

	_, err = f.posts.ListRecent(ctx, 0, 5)
	require.ErrorIs(t, err, ErrInvalidPage)
}

func TestPosts_ListByAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "a@x.com", "secret")
	bob := f.register(t, "bob", "b@x.com", "secret")
	_, err := f.posts.Create(ctx, alice, "a1", "c")
	require.NoError(t, err)
	_, err = f.posts.Create(ctx, bob, "b1", "c")
	require.NoError(t, err)

	author, page, err := f.posts.ListByAuthor(ctx, "bob", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, author.ID)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b1", page.Items[0].Title)

	_, _, err = f.posts.ListByAuthor(ctx, "nobody", 1, 5)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
