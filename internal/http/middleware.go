package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

const (
	sessionCookie  = "session"
	currentUserKey = "currentUser"
	requestIDKey   = "requestID"
)

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithError(c.Errors.Last())
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		default:
			entry.Info("request")
		}
	}
}

// loadSession resolves the session cookie into the current user and stores
// it on the request context. Stale or forged cookies are dropped.
func (h *Handler) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(sessionCookie)
		if err != nil || raw == "" {
			c.Next()
			return
		}

		id, err := h.sessions.Decode(raw)
		if err == nil {
			var user *domain.User
			user, err = h.users.GetByID(c.Request.Context(), id)
			if err == nil {
				c.Set(currentUserKey, user)
				c.Next()
				return
			}
			if !errors.Is(err, repository.ErrNotFound) {
				h.renderServerError(c, err)
				c.Abort()
				return
			}
		}
		h.clearSession(c)
		c.Next()
	}
}

// currentUser returns the logged in user, or nil for anonymous requests.
func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

// requireLogin sends anonymous visitors to the login page, remembering
// where they were headed.
func (h *Handler) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) != nil {
			c.Next()
			return
		}
		h.addFlash(c, "info", "Please log in to access this page.")
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func redirectAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) != nil {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) startSession(c *gin.Context, user *domain.User, remember bool) error {
	ttl := h.sessions.TTL()
	maxAge := 0
	if remember {
		ttl = h.cfg.RememberMeTTL
		maxAge = int(ttl / time.Second)
	}
	token, err := h.sessions.Issue(user, ttl)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", h.cfg.SecureCookies, true)
	return nil
}

func (h *Handler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.cfg.SecureCookies, true)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
