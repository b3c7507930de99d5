package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"blog-server/internal/domain"
	"blog-server/internal/form"
)

func (h *Handler) home(c *gin.Context) {
	page, err := h.posts.ListRecent(c.Request.Context(), pageParam(c), domain.DefaultPageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.render(c, http.StatusOK, "home.html", gin.H{
		"Title": "Homepage",
		"Page":  page,
		"Posts": h.postViews(c.Request.Context(), page.Items),
		"Path":  "/home",
	})
}

func (h *Handler) about(c *gin.Context) {
	h.render(c, http.StatusOK, "about.html", gin.H{"Title": "About"})
}

func (h *Handler) userPosts(c *gin.Context) {
	author, page, err := h.posts.ListByAuthor(c.Request.Context(), c.Param("username"), pageParam(c), domain.DefaultPageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.render(c, http.StatusOK, "user_posts.html", gin.H{
		"Title":  "Posts",
		"Author": author,
		"Page":   page,
		"Posts":  h.postViews(c.Request.Context(), page.Items),
		"Path":   "/user/" + author.Username,
	})
}

func (h *Handler) newPostForm(c *gin.Context) {
	h.render(c, http.StatusOK, "post_form.html", gin.H{
		"Title":  "New Post",
		"Legend": "New Post",
		"Form":   form.Values{},
		"Action": "/post/new",
	})
}

func (h *Handler) createPost(c *gin.Context) {
	values := form.Values{"title": c.PostForm("title"), "content": c.PostForm("content")}

	_, err := h.posts.Create(c.Request.Context(), currentUser(c), values["title"], values["content"])
	if err != nil {
		if errs, ok := formErrors(err); ok {
			h.render(c, http.StatusOK, "post_form.html", gin.H{
				"Title":  "New Post",
				"Legend": "New Post",
				"Form":   values,
				"Errors": errs,
				"Action": "/post/new",
			})
			return
		}
		h.handleError(c, err)
		return
	}

	h.addFlash(c, "success", "Your post has been created!")
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) showPost(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.renderError(c, http.StatusNotFound)
		return
	}
	post, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	user := currentUser(c)
	h.render(c, http.StatusOK, "post.html", gin.H{
		"Title":   post.Title,
		"Post":    postView{PostWithAuthor: *post, AvatarURL: h.avatarURL(c.Request.Context(), post.Author.ImageFile)},
		"IsOwner": user != nil && user.ID == post.AuthorID,
	})
}

func (h *Handler) editPostForm(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.renderError(c, http.StatusNotFound)
		return
	}
	post, err := h.posts.GetForEdit(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.render(c, http.StatusOK, "post_form.html", gin.H{
		"Title":  "Update Post",
		"Legend": "Update Post",
		"Form":   form.Values{"title": post.Title, "content": post.Content},
		"Action": postPath(id) + "/update",
	})
}

func (h *Handler) updatePost(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.renderError(c, http.StatusNotFound)
		return
	}
	values := form.Values{"title": c.PostForm("title"), "content": c.PostForm("content")}

	_, err := h.posts.Update(c.Request.Context(), currentUser(c), id, values["title"], values["content"])
	if err != nil {
		if errs, ok := formErrors(err); ok {
			h.render(c, http.StatusOK, "post_form.html", gin.H{
				"Title":  "Update Post",
				"Legend": "Update Post",
				"Form":   values,
				"Errors": errs,
				"Action": postPath(id) + "/update",
			})
			return
		}
		h.handleError(c, err)
		return
	}

	h.addFlash(c, "success", "Your post has been updated!")
	c.Redirect(http.StatusFound, postPath(id))
}

func (h *Handler) deletePost(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.renderError(c, http.StatusNotFound)
		return
	}
	if err := h.posts.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.handleError(c, err)
		return
	}

	h.addFlash(c, "success", "Your post has been deleted!")
	c.Redirect(http.StatusFound, "/")
}

func postPath(id int64) string {
	return "/post/" + strconv.FormatInt(id, 10)
}
