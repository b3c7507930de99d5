package auth

import "blog-server/internal/domain"

// CanModify reports whether actor owns post. Only the owner may edit or
// delete a post.
func CanModify(post *domain.Post, actor *domain.User) bool {
	if post == nil || actor == nil || actor.ID == 0 {
		return false
	}
	return post.AuthorID == actor.ID
}
