package comment

import "time"

// Comment is a user's text reply to a post.
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	PostID    int64     `json:"post_id" db:"post_id"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Draft carries the fields a caller supplies when creating a comment.
type Draft struct {
	Username string `json:"username" validate:"required,max=20"`
	PostID   int64  `json:"post_id" validate:"required,gt=0"`
	Text     string `json:"text" validate:"required"`
}
