package auth

import (
	"time"

	"blog-server/internal/domain"
)

// Sessions issues the signed cookie value identifying a logged in user.
type Sessions struct {
	codec codec
}

func NewSessions(secret []byte, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{codec: codec{
		secret:  secret,
		purpose: purposeSession,
		ttl:     ttl,
		now:     time.Now,
	}}
}

// TTL is the default lifetime of a session.
func (s *Sessions) TTL() time.Duration {
	return s.codec.ttl
}

// Issue signs a session for user valid for ttl; zero uses the default.
func (s *Sessions) Issue(user *domain.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.codec.ttl
	}
	return s.codec.issue(user.ID, ttl)
}

func (s *Sessions) Decode(token string) (int64, error) {
	return s.codec.decode(token)
}
