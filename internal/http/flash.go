package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	flashCookie     = "flash"
	pendingFlashKey = "pendingFlashes"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// addFlash queues a notice for the next page this client renders.
func (h *Handler) addFlash(c *gin.Context, category, message string) {
	var pending []Flash
	if v, ok := c.Get(pendingFlashKey); ok {
		pending, _ = v.([]Flash)
	}
	pending = append(pending, Flash{Category: category, Message: message})
	c.Set(pendingFlashKey, pending)

	data, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(data), 0, "/", "", h.cfg.SecureCookies, true)
}

// popFlashes returns queued notices and clears them. Notices added while
// handling this request are shown immediately.
func (h *Handler) popFlashes(c *gin.Context) []Flash {
	var flashes []Flash
	if raw, err := c.Cookie(flashCookie); err == nil && raw != "" {
		if data, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
			_ = json.Unmarshal(data, &flashes)
		}
		h.clearFlashCookie(c)
	}
	if v, ok := c.Get(pendingFlashKey); ok {
		pending, _ := v.([]Flash)
		flashes = append(flashes, pending...)
		c.Set(pendingFlashKey, nil)
		h.clearFlashCookie(c)
	}
	return flashes
}

func (h *Handler) clearFlashCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", h.cfg.SecureCookies, true)
}
