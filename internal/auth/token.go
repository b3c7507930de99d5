package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every reason a token is rejected: bad signature,
// malformed payload, wrong purpose or expiry.
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	purposeSession = "session"
	purposeReset   = "reset"
)

type claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"pur"`
}

// codec signs and verifies HS256 tokens carrying a user id as subject.
type codec struct {
	secret  []byte
	purpose string
	ttl     time.Duration
	now     func() time.Time
}

func (c *codec) issue(userID int64, ttl time.Duration) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: c.purpose,
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", c.purpose, err)
	}
	return signed, nil
}

func (c *codec) decode(tokenString string) (int64, error) {
	var parsed claims
	token, err := jwt.ParseWithClaims(tokenString, &parsed, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	if parsed.Purpose != c.purpose {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(parsed.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
