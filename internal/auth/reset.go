package auth

import (
	"time"

	"blog-server/internal/domain"
)

// DefaultResetTTL is how long a password reset link stays usable.
const DefaultResetTTL = 30 * time.Minute

// ResetTokens issues and verifies self-contained password reset tokens.
// Nothing is persisted; a token proves the holder asked to reset the
// password of the embedded user until it expires.
type ResetTokens struct {
	codec codec
}

func NewResetTokens(secret []byte, ttl time.Duration) *ResetTokens {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	return &ResetTokens{codec: codec{
		secret:  secret,
		purpose: purposeReset,
		ttl:     ttl,
		now:     time.Now,
	}}
}

// WithClock overrides the time source, for tests.
func (r *ResetTokens) WithClock(now func() time.Time) *ResetTokens {
	r.codec.now = now
	return r
}

func (r *ResetTokens) Issue(user *domain.User) (string, error) {
	return r.codec.issue(user.ID, r.codec.ttl)
}

// Decode returns the user id carried by token or ErrInvalidToken.
func (r *ResetTokens) Decode(token string) (int64, error) {
	return r.codec.decode(token)
}
