package storage

import (
	"context"
	"errors"

	"github.com/icook-app/icook/internal/app/domain/comment"
	"github.com/icook-app/icook/internal/app/domain/post"
	"github.com/icook-app/icook/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write violates a uniqueness or
	// referential constraint.
	ErrConflict = errors.New("storage: conflict")
)

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, username string) (user.User, error)
	GetUsers(ctx context.Context, usernames []string) ([]user.User, error)
	// UpdateUser applies a non-empty change set.
	UpdateUser(ctx context.Context, username string, changes user.Changes) error
}

// PostStore persists posts and their liked_by sets.
type PostStore interface {
	CreatePost(ctx context.Context, draft post.Draft) (post.Post, error)
	GetPost(ctx context.Context, id int64) (post.Post, error)
	ListPostsByUsername(ctx context.Context, username string) ([]post.Post, error)
	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context) ([]post.Post, error)
	DeletePost(ctx context.Context, id int64) error
	// AddLike and RemoveLike mutate liked_by as a set in a single storage
	// operation; both return ErrNotFound only when the post is missing.
	AddLike(ctx context.Context, id int64, username string) error
	RemoveLike(ctx context.Context, id int64, username string) error
}

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, draft comment.Draft) (comment.Comment, error)
	ListCommentsByPost(ctx context.Context, postID int64) ([]comment.Comment, error)
}

// Session is one unit of storage work, typically scoped to a request. The
// stores it returns are only valid until Close.
type Session interface {
	Users() UserStore
	Posts() PostStore
	Comments() CommentStore
	Ping(ctx context.Context) error
	Close() error
}

// Sessions opens storage sessions.
type Sessions interface {
	Open(ctx context.Context) (Session, error)
}
