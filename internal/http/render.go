package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"blog-server/internal/domain"
	"blog-server/internal/form"
	"blog-server/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Format("2006-01-02") },
		"fieldErrors": func(errs form.Errors, field string) []string {
			return errs.Get(field)
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// postView is a post prepared for a template, with its author's avatar
// already resolved.
type postView struct {
	domain.PostWithAuthor
	AvatarURL string
}

// render writes an HTML page. Every page receives the current user and the
// pending notices in addition to data.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CurrentUser"] = currentUser(c)
	data["Flashes"] = h.popFlashes(c)
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = form.Errors(nil)
	}
	c.HTML(status, name, data)
}

func (h *Handler) renderError(c *gin.Context, status int) {
	h.render(c, status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": errorMessage(status),
	})
}

func (h *Handler) renderServerError(c *gin.Context, err error) {
	_ = c.Error(err)
	h.renderError(c, http.StatusInternalServerError)
}

// handleError turns service failures that have a fixed page into that page.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		h.renderError(c, http.StatusForbidden)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrInvalidPage):
		h.renderError(c, http.StatusNotFound)
	default:
		h.renderServerError(c, err)
	}
}

func errorMessage(status int) string {
	switch status {
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "That page does not exist."
	default:
		return "We're experiencing some trouble on our end. Please try again in the near future."
	}
}

func (h *Handler) avatarURL(ctx context.Context, imageFile string) string {
	if imageFile == "" {
		imageFile = domain.DefaultImageFile
	}
	u, err := h.storage.URL(ctx, imageFile)
	if err != nil {
		h.logger.WithError(err).WithField("image_file", imageFile).Warn("resolve avatar url")
		return ""
	}
	return u
}

func (h *Handler) postViews(ctx context.Context, posts []domain.PostWithAuthor) []postView {
	views := make([]postView, len(posts))
	avatars := make(map[string]string)
	for i, p := range posts {
		u, ok := avatars[p.Author.ImageFile]
		if !ok {
			u = h.avatarURL(ctx, p.Author.ImageFile)
			avatars[p.Author.ImageFile] = u
		}
		views[i] = postView{PostWithAuthor: p, AvatarURL: u}
	}
	return views
}

// pageParam reads ?page, falling back to the first page when it is absent
// or not a number.
func pageParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return n
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formErrors extracts field errors from err, if it carries any.
func formErrors(err error) (form.Errors, bool) {
	var errs form.Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}
