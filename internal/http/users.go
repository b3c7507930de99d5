package http

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/form"
	"blog-server/internal/photo"
	"blog-server/internal/service"
)

const (
	msgUsernameTaken = "Username already exist. Please choose another one."
	msgEmailTaken    = "E-mail already exist. Please choose another one."
	msgUnknownEmail  = "E-mail doesn't exist. Create an account instead."
	msgBadPhoto      = "File does not have an approved extension: jpg, jpeg, png"
	msgPhotoTooLarge = "File is too large."
)

// maxAccountFormBytes caps the whole account form: the photo plus room for
// the text fields and multipart framing.
const maxAccountFormBytes = photo.MaxUploadBytes + 1<<20

var confirmRules = form.Rules{
	"confirm_password": {form.Required(), form.EqualTo("password")},
}

// userFormErrors converts validation and duplicate failures into field
// errors. It reports false for any other error.
func userFormErrors(err error) (form.Errors, bool) {
	if errs, ok := formErrors(err); ok {
		return errs, true
	}
	var errs form.Errors
	if errors.Is(err, service.ErrDuplicateUsername) {
		errs = errs.Add("username", msgUsernameTaken)
	}
	if errors.Is(err, service.ErrDuplicateEmail) {
		errs = errs.Add("email", msgEmailTaken)
	}
	return errs, errs != nil
}

func registrationValues(c *gin.Context) form.Values {
	return form.Values{
		"username":         strings.TrimSpace(c.PostForm("username")),
		"email":            strings.TrimSpace(c.PostForm("email")),
		"password":         c.PostForm("password"),
		"confirm_password": c.PostForm("confirm_password"),
	}
}

func (h *Handler) registerForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register", "Form": form.Values{}})
}

func (h *Handler) register(c *gin.Context) {
	values := registrationValues(c)

	var err error
	if errs := confirmRules.Validate(values); errs != nil {
		err = errs.Merge(service.ValidateRegistration(values["username"], values["email"], values["password"]))
	} else {
		_, err = h.users.Register(c.Request.Context(), values["username"], values["email"], values["password"])
	}

	if err != nil {
		errs, ok := userFormErrors(err)
		if !ok {
			h.renderServerError(c, err)
			return
		}
		h.render(c, http.StatusOK, "register.html", gin.H{
			"Title":  "Register",
			"Form":   form.Values{"username": values["username"], "email": values["email"]},
			"Errors": errs,
		})
		return
	}

	h.addFlash(c, "success", "Account has been created for "+values["username"]+"!")
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) loginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Login",
		"Form":  form.Values{},
		"Next":  c.Query("next"),
	})
}

func (h *Handler) login(c *gin.Context) {
	values := form.Values{
		"email":    strings.TrimSpace(c.PostForm("email")),
		"password": c.PostForm("password"),
	}
	next := c.Query("next")
	if next == "" {
		next = c.PostForm("next")
	}

	errs := form.Rules{
		"email":    {form.Required(), form.Email()},
		"password": {form.Required()},
	}.Validate(values)
	if errs == nil {
		user, err := h.users.Authenticate(c.Request.Context(), values["email"], values["password"])
		switch {
		case err == nil:
			if err := h.startSession(c, user, c.PostForm("remember") != ""); err != nil {
				h.renderServerError(c, err)
				return
			}
			c.Redirect(http.StatusFound, safeNext(next))
			return
		case errors.Is(err, service.ErrInvalidCredentials):
			h.addFlash(c, "danger", "Login Unsuccessful. Please check email or password.")
		default:
			h.renderServerError(c, err)
			return
		}
	}

	h.render(c, http.StatusOK, "login.html", gin.H{
		"Title":  "Login",
		"Form":   form.Values{"email": values["email"]},
		"Errors": errs,
		"Next":   next,
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.clearSession(c)
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) accountForm(c *gin.Context) {
	user := currentUser(c)
	h.renderAccount(c, http.StatusOK, form.Values{"username": user.Username, "email": user.Email}, nil)
}

func (h *Handler) renderAccount(c *gin.Context, status int, values form.Values, errs form.Errors) {
	user := currentUser(c)
	h.render(c, status, "account.html", gin.H{
		"Title":    "Account",
		"Form":     values,
		"Errors":   errs,
		"ImageURL": h.avatarURL(c.Request.Context(), user.ImageFile),
	})
}

func (h *Handler) updateAccount(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAccountFormBytes)

	user := currentUser(c)
	update := service.ProfileUpdate{
		Username: strings.TrimSpace(c.PostForm("username")),
		Email:    strings.TrimSpace(c.PostForm("email")),
	}
	values := form.Values{"username": update.Username, "email": update.Email}

	upload, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.renderAccount(c, http.StatusRequestEntityTooLarge, values, form.Errors{"photo": {msgPhotoTooLarge}})
			return
		case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
			h.renderAccount(c, http.StatusOK, values, form.Errors{"photo": {msgBadPhoto}})
			return
		}
		upload = nil
	}

	errs := service.ValidateProfile(update)
	if upload != nil && !photo.Allowed(upload.Filename) {
		errs = errs.Add("photo", msgBadPhoto)
	}
	if errs != nil {
		h.renderAccount(c, http.StatusOK, values, errs)
		return
	}

	if upload != nil {
		update.StorePhoto = func(ctx context.Context) (string, error) {
			return h.ingestPhoto(ctx, user.ID, upload)
		}
	}

	if _, err := h.users.UpdateProfile(c.Request.Context(), user.ID, update); err != nil {
		if errors.Is(err, photo.ErrUnsupportedFormat) {
			h.renderAccount(c, http.StatusOK, values, form.Errors{"photo": {msgBadPhoto}})
			return
		}
		errs, ok := userFormErrors(err)
		if !ok {
			h.handleError(c, err)
			return
		}
		h.renderAccount(c, http.StatusOK, values, errs)
		return
	}

	h.addFlash(c, "success", "Your profile has been successfully updated!")
	c.Redirect(http.StatusFound, "/account")
}

func (h *Handler) resetRequestForm(c *gin.Context) {
	h.render(c, http.StatusOK, "reset_request.html", gin.H{"Title": "Reset Password", "Form": form.Values{}})
}

func (h *Handler) resetRequest(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))

	err := h.users.RequestPasswordReset(c.Request.Context(), email, h.resetLink)
	if err == nil {
		h.addFlash(c, "info", "An e-mail has been sent with instructions to reset your password.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	errs, ok := formErrors(err)
	if !ok {
		if !errors.Is(err, service.ErrUnknownEmail) {
			h.renderServerError(c, err)
			return
		}
		errs = errs.Add("email", msgUnknownEmail)
	}
	h.render(c, http.StatusOK, "reset_request.html", gin.H{
		"Title":  "Reset Password",
		"Form":   form.Values{"email": email},
		"Errors": errs,
	})
}

func (h *Handler) resetLink(token string) string {
	return h.cfg.BaseURL + "/reset_password/" + url.PathEscape(token)
}

// verifyResetToken resolves the token in the path. On failure it has
// already redirected back to the request page.
func (h *Handler) verifyResetToken(c *gin.Context) bool {
	_, err := h.users.VerifyResetToken(c.Request.Context(), c.Param("token"))
	if err == nil {
		return true
	}
	if errors.Is(err, service.ErrTokenInvalidOrExpired) {
		h.addFlash(c, "warning", "That is an invalid or expired token.")
		c.Redirect(http.StatusFound, "/reset_password")
		return false
	}
	h.renderServerError(c, err)
	return false
}

func (h *Handler) resetPasswordForm(c *gin.Context) {
	if !h.verifyResetToken(c) {
		return
	}
	h.render(c, http.StatusOK, "reset_password.html", gin.H{"Title": "Reset Password"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	if !h.verifyResetToken(c) {
		return
	}
	values := form.Values{
		"password":         c.PostForm("password"),
		"confirm_password": c.PostForm("confirm_password"),
	}
	if errs := confirmRules.Validate(values); errs != nil {
		h.render(c, http.StatusOK, "reset_password.html", gin.H{"Title": "Reset Password", "Errors": errs})
		return
	}

	_, err := h.users.ResetPassword(c.Request.Context(), c.Param("token"), values["password"])
	if err != nil {
		if errs, ok := formErrors(err); ok {
			h.render(c, http.StatusOK, "reset_password.html", gin.H{"Title": "Reset Password", "Errors": errs})
			return
		}
		if errors.Is(err, service.ErrTokenInvalidOrExpired) {
			h.addFlash(c, "warning", "That is an invalid or expired token.")
			c.Redirect(http.StatusFound, "/reset_password")
			return
		}
		h.renderServerError(c, err)
		return
	}

	h.addFlash(c, "success", "Your password has been updated! You are now able to log in.")
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) ingestPhoto(ctx context.Context, userID int64, upload *multipart.FileHeader) (string, error) {
	f, err := upload.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	name, err := h.photos.Ingest(ctx, upload.Filename, f)
	if err != nil {
		return "", err
	}
	h.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"image_file": name,
	}).Info("profile photo stored")
	return name, nil
}
