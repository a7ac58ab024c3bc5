package posts

import (
	"context"
	"errors"
	"fmt"

	"github.com/icook-app/icook/internal/app/domain/post"
	"github.com/icook-app/icook/internal/app/metrics"
	"github.com/icook-app/icook/internal/app/storage"
	"github.com/icook-app/icook/pkg/logger"
)

// FeedPolicy selects the posts shown to a viewer.
type FeedPolicy interface {
	Select(ctx context.Context, store storage.PostStore, viewer string) ([]post.Post, error)
}

// FeedPolicyFunc adapts a function to FeedPolicy.
type FeedPolicyFunc func(ctx context.Context, store storage.PostStore, viewer string) ([]post.Post, error)

// Select implements FeedPolicy.
func (f FeedPolicyFunc) Select(ctx context.Context, store storage.PostStore, viewer string) ([]post.Post, error) {
	return f(ctx, store, viewer)
}

// GlobalFeed shows every post to every viewer, newest first. There is no
// follow graph to filter on.
var GlobalFeed FeedPolicy = FeedPolicyFunc(func(ctx context.Context, store storage.PostStore, _ string) ([]post.Post, error) {
	return store.ListPosts(ctx)
})

// Service manages posts and their likes.
type Service struct {
	users storage.UserStore
	store storage.PostStore
	feed  FeedPolicy
	log   *logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithFeedPolicy replaces GlobalFeed.
func WithFeedPolicy(policy FeedPolicy) Option {
	return func(s *Service) {
		if policy != nil {
			s.feed = policy
		}
	}
}

// New constructs a post service. users is consulted to verify authors and
// may be nil, in which case only the storage constraint applies.
func New(users storage.UserStore, store storage.PostStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("posts")
	}
	s := &Service{users: users, store: store, feed: GlobalFeed, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new post. It reports false when the author is unknown.
func (s *Service) Create(ctx context.Context, draft post.Draft) (bool, error) {
	if s.users != nil {
		_, err := s.users.GetUser(ctx, draft.Username)
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RecordOperation("post", "create", metrics.OutcomeRejected)
			s.log.WithField("username", draft.Username).Info("post rejected: unknown author")
			return false, nil
		}
		if err != nil {
			metrics.RecordOperation("post", "create", metrics.OutcomeError)
			return false, fmt.Errorf("create post: check author: %w", err)
		}
	}

	created, err := s.store.CreatePost(ctx, draft)
	switch {
	case errors.Is(err, storage.ErrConflict):
		metrics.RecordOperation("post", "create", metrics.OutcomeRejected)
		return false, nil
	case err != nil:
		metrics.RecordOperation("post", "create", metrics.OutcomeError)
		return false, fmt.Errorf("create post: %w", err)
	}

	metrics.RecordOperation("post", "create", metrics.OutcomeOK)
	s.log.WithField("post_id", created.ID).
		WithField("username", created.Username).
		Info("post created")
	return true, nil
}

// GetByUsername returns the posts authored by username in creation order.
func (s *Service) GetByUsername(ctx context.Context, username string) ([]post.Post, error) {
	result, err := s.store.ListPostsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("posts by %s: %w", username, err)
	}
	return result, nil
}

// GetForUsername returns the feed for viewer as chosen by the feed policy.
func (s *Service) GetForUsername(ctx context.Context, viewer string) ([]post.Post, error) {
	result, err := s.feed.Select(ctx, s.store, viewer)
	if err != nil {
		return nil, fmt.Errorf("feed for %s: %w", viewer, err)
	}
	return result, nil
}

// Delete removes a post and its comments. It reports false when id is unknown.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.outcome("delete", s.store.DeletePost(ctx, id))
	if ok {
		s.log.WithField("post_id", id).Info("post deleted")
	}
	return ok, err
}

// AppendUserToLikedBy adds username to the post's likes. Liking twice is a
// no-op; false means the post does not exist.
func (s *Service) AppendUserToLikedBy(ctx context.Context, id int64, username string) (bool, error) {
	return s.outcome("like", s.store.AddLike(ctx, id, username))
}

// PopUserFromLikedBy removes username from the post's likes. Removing an
// absent username is a no-op; false means the post does not exist.
func (s *Service) PopUserFromLikedBy(ctx context.Context, id int64, username string) (bool, error) {
	return s.outcome("unlike", s.store.RemoveLike(ctx, id, username))
}

func (s *Service) outcome(operation string, err error) (bool, error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		metrics.RecordOperation("post", operation, metrics.OutcomeMissing)
		return false, nil
	case err != nil:
		metrics.RecordOperation("post", operation, metrics.OutcomeError)
		return false, fmt.Errorf("%s post: %w", operation, err)
	}
	metrics.RecordOperation("post", operation, metrics.OutcomeOK)
	return true, nil
}
