package post

import (
	"slices"
	"time"
)

// Post is a piece of content authored by a user. ID and CreatedAt are
// assigned by storage; LikedBy holds each username at most once.
type Post struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Description string    `json:"description"`
	Picture     string    `json:"picture"`
	CreatedAt   time.Time `json:"created_at"`
	LikedBy     []string  `json:"liked_by"`
}

// Draft carries the fields a caller supplies when creating a post.
type Draft struct {
	Username    string `json:"username" validate:"required,max=20"`
	Description string `json:"description" validate:"required,max=255"`
	Picture     string `json:"picture"`
}

// AddLike returns likes with username appended unless already present.
func AddLike(likes []string, username string) []string {
	if slices.Contains(likes, username) {
		return likes
	}
	return append(likes, username)
}

// RemoveLike returns likes without username. The input slice is not modified.
func RemoveLike(likes []string, username string) []string {
	out := make([]string, 0, len(likes))
	for _, u := range likes {
		if u != username {
			out = append(out, u)
		}
	}
	return out
}
