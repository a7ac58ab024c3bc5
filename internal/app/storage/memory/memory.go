package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/icook-app/icook/internal/app/domain/comment"
	"github.com/icook-app/icook/internal/app/domain/post"
	"github.com/icook-app/icook/internal/app/domain/user"
	"github.com/icook-app/icook/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
// Referential constraints mirror the PostgreSQL schema.
type Store struct {
	mu            sync.RWMutex
	nextPostID    int64
	nextCommentID int64
	users         map[string]user.User
	posts         map[int64]post.Post
	comments      map[int64]comment.Comment

	failures map[string]error
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)
var _ storage.Sessions = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextPostID:    1,
		nextCommentID: 1,
		users:         make(map[string]user.User),
		posts:         make(map[int64]post.Post),
		comments:      make(map[int64]comment.Comment),
		failures:      make(map[string]error),
	}
}

// FailNext makes the next call of the named operation (e.g. "CreateUser")
// return err. Used to exercise fault paths in tests.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailureLocked(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// Sessions implementation -----------------------------------------------------

// Open returns a session over the shared store. Closing it releases nothing.
func (s *Store) Open(_ context.Context) (storage.Session, error) {
	s.mu.Lock()
	err := s.takeFailureLocked("Open")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return session{store: s}, nil
}

type session struct {
	store *Store
}

func (s session) Users() storage.UserStore       { return s.store }
func (s session) Posts() storage.PostStore       { return s.store }
func (s session) Comments() storage.CommentStore { return s.store }
func (s session) Ping(context.Context) error     { return nil }
func (s session) Close() error                   { return nil }

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("CreateUser"); err != nil {
		return err
	}
	if _, exists := s.users[u.Username]; exists {
		return fmt.Errorf("user %s: %w", u.Username, storage.ErrConflict)
	}
	s.users[u.Username] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("GetUser"); err != nil {
		return user.User{}, err
	}
	u, ok := s.users[username]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUsers(_ context.Context, usernames []string) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("GetUsers"); err != nil {
		return nil, err
	}
	result := make([]user.User, 0, len(usernames))
	seen := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if u, ok := s.users[name]; ok {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (s *Store) UpdateUser(_ context.Context, username string, changes user.Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("UpdateUser"); err != nil {
		return err
	}
	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
	}
	changes.Apply(&u)
	s.users[username] = u
	return nil
}

// PostStore implementation ----------------------------------------------------

func (s *Store) CreatePost(_ context.Context, draft post.Draft) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("CreatePost"); err != nil {
		return post.Post{}, err
	}
	if _, ok := s.users[draft.Username]; !ok {
		return post.Post{}, fmt.Errorf("post author %s: %w", draft.Username, storage.ErrConflict)
	}

	p := post.Post{
		ID:          s.nextPostID,
		Username:    draft.Username,
		Description: draft.Description,
		Picture:     draft.Picture,
		CreatedAt:   time.Now().UTC(),
		LikedBy:     []string{},
	}
	s.nextPostID++
	s.posts[p.ID] = p
	return clonePost(p), nil
}

func (s *Store) GetPost(_ context.Context, id int64) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("GetPost"); err != nil {
		return post.Post{}, err
	}
	p, ok := s.posts[id]
	if !ok {
		return post.Post{}, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return clonePost(p), nil
}

func (s *Store) ListPostsByUsername(_ context.Context, username string) ([]post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("ListPostsByUsername"); err != nil {
		return nil, err
	}
	result := make([]post.Post, 0)
	for _, p := range s.posts {
		if p.Username == username {
			result = append(result, clonePost(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) ListPosts(_ context.Context) ([]post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("ListPosts"); err != nil {
		return nil, err
	}
	result := make([]post.Post, 0, len(s.posts))
	for _, p := range s.posts {
		result = append(result, clonePost(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *Store) DeletePost(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("DeletePost"); err != nil {
		return err
	}
	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

func (s *Store) AddLike(_ context.Context, id int64, username string) error {
	return s.mutateLikes("AddLike", id, func(likes []string) []string {
		return post.AddLike(likes, username)
	})
}

func (s *Store) RemoveLike(_ context.Context, id int64, username string) error {
	return s.mutateLikes("RemoveLike", id, func(likes []string) []string {
		return post.RemoveLike(likes, username)
	})
}

func (s *Store) mutateLikes(op string, id int64, fn func([]string) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(op); err != nil {
		return err
	}
	p, ok := s.posts[id]
	if !ok {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	p.LikedBy = fn(append([]string(nil), p.LikedBy...))
	s.posts[id] = p
	return nil
}

// CommentStore implementation -------------------------------------------------

func (s *Store) CreateComment(_ context.Context, draft comment.Draft) (comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("CreateComment"); err != nil {
		return comment.Comment{}, err
	}
	if _, ok := s.posts[draft.PostID]; !ok {
		return comment.Comment{}, fmt.Errorf("comment post %d: %w", draft.PostID, storage.ErrConflict)
	}
	if _, ok := s.users[draft.Username]; !ok {
		return comment.Comment{}, fmt.Errorf("comment author %s: %w", draft.Username, storage.ErrConflict)
	}

	c := comment.Comment{
		ID:        s.nextCommentID,
		Username:  draft.Username,
		PostID:    draft.PostID,
		Text:      draft.Text,
		CreatedAt: time.Now().UTC(),
	}
	s.nextCommentID++
	s.comments[c.ID] = c
	return c, nil
}

func (s *Store) ListCommentsByPost(_ context.Context, postID int64) ([]comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked("ListCommentsByPost"); err != nil {
		return nil, err
	}
	result := make([]comment.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func clonePost(p post.Post) post.Post {
	p.LikedBy = append([]string{}, p.LikedBy...)
	return p
}
