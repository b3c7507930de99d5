package domain

import "time"

// Post is a blog entry. AuthorID is fixed at creation.
type Post struct {
	ID        int64
	Title     string
	Content   string
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostWithAuthor pairs a post with its author's public profile for listings.
type PostWithAuthor struct {
	Post
	Author Author
}

// Author is the subset of User shown next to a post.
type Author struct {
	ID        int64
	Username  string
	Email     string
	ImageFile string
}
