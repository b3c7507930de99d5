package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/auth"
	"blog-server/internal/photo"
	"blog-server/internal/service"
	"blog-server/internal/storage"
)

// Config carries the settings the handlers need besides their collaborators.
type Config struct {
	// BaseURL is the external address used in links sent by mail.
	BaseURL       string
	RememberMeTTL time.Duration
	SecureCookies bool
	// StaticDir, when set, is served under /static/profile.
	StaticDir string
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	posts    service.PostService
	sessions *auth.Sessions
	photos   *photo.Ingestor
	storage  storage.Service
	logger   logrus.FieldLogger
	cfg      Config
}

func NewHandler(
	users service.UserService,
	posts service.PostService,
	sessions *auth.Sessions,
	photos *photo.Ingestor,
	store storage.Service,
	logger logrus.FieldLogger,
	cfg Config,
) *Handler {
	if cfg.RememberMeTTL <= 0 {
		cfg.RememberMeTTL = 30 * 24 * time.Hour
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Handler{
		users:    users,
		posts:    posts,
		sessions: sessions,
		photos:   photos,
		storage:  store,
		logger:   logger,
		cfg:      cfg,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = photo.MaxUploadBytes

	router.Use(requestLogger(h.logger), h.loadSession())
	router.NoRoute(func(c *gin.Context) { h.renderError(c, http.StatusNotFound) })

	if h.cfg.StaticDir != "" {
		router.Static("/static/profile", h.cfg.StaticDir)
	}
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	router.GET("/", h.home)
	router.GET("/home", h.home)
	router.GET("/about", h.about)
	router.GET("/user/:username", h.userPosts)

	guest := router.Group("/", redirectAuthenticated())
	{
		guest.GET("/register", h.registerForm)
		guest.POST("/register", h.register)
		guest.GET("/login", h.loginForm)
		guest.POST("/login", h.login)
		guest.GET("/reset_password", h.resetRequestForm)
		guest.POST("/reset_password", h.resetRequest)
		guest.GET("/reset_password/:token", h.resetPasswordForm)
		guest.POST("/reset_password/:token", h.resetPassword)
	}

	member := router.Group("/", h.requireLogin())
	{
		member.GET("/logout", h.logout)
		member.GET("/account", h.accountForm)
		member.POST("/account", h.updateAccount)
		member.GET("/post/new", h.newPostForm)
		member.POST("/post/new", h.createPost)
		member.GET("/post/:id", h.showPost)
		member.GET("/post/:id/update", h.editPostForm)
		member.POST("/post/:id/update", h.updatePost)
		member.POST("/post/:id/delete", h.deletePost)
	}
	return nil
}
