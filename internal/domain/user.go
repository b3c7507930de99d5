package domain

import "time"

// DefaultImageFile is the profile photo every account starts with.
const DefaultImageFile = "default.jpg"

// User represents a registered account of the blog.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	ImageFile    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
