package comments

import (
	"context"
	"errors"
	"fmt"

	"github.com/icook-app/icook/internal/app/domain/comment"
	"github.com/icook-app/icook/internal/app/metrics"
	"github.com/icook-app/icook/internal/app/storage"
	"github.com/icook-app/icook/pkg/logger"
)

// Service manages comments on posts.
type Service struct {
	posts storage.PostStore
	store storage.CommentStore
	log   *logger.Logger
}

// New constructs a comment service. posts is used to check the target post
// and may be nil.
func New(posts storage.PostStore, store storage.CommentStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("comments")
	}
	return &Service{posts: posts, store: store, log: log}
}

// Create stores a comment. It reports false when the post or author is unknown.
func (s *Service) Create(ctx context.Context, draft comment.Draft) (bool, error) {
	if s.posts != nil {
		_, err := s.posts.GetPost(ctx, draft.PostID)
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RecordOperation("comment", "create", metrics.OutcomeRejected)
			return false, nil
		}
		if err != nil {
			metrics.RecordOperation("comment", "create", metrics.OutcomeError)
			return false, fmt.Errorf("create comment: check post: %w", err)
		}
	}

	created, err := s.store.CreateComment(ctx, draft)
	switch {
	case errors.Is(err, storage.ErrConflict):
		metrics.RecordOperation("comment", "create", metrics.OutcomeRejected)
		return false, nil
	case err != nil:
		metrics.RecordOperation("comment", "create", metrics.OutcomeError)
		return false, fmt.Errorf("create comment: %w", err)
	}

	metrics.RecordOperation("comment", "create", metrics.OutcomeOK)
	s.log.WithField("comment_id", created.ID).
		WithField("post_id", created.PostID).
		Info("comment created")
	return true, nil
}

// GetByPostID lists a post's comments oldest first.
func (s *Service) GetByPostID(ctx context.Context, postID int64) ([]comment.Comment, error) {
	result, err := s.store.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("comments of post %d: %w", postID, err)
	}
	return result, nil
}
