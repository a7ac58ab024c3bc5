// Package feed pairs the posts shown to a viewer with their authors.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/icook-app/icook/internal/app/domain/post"
	"github.com/icook-app/icook/internal/app/domain/user"
)

// ErrAuthorMissing means a feed post references a user that does not exist.
// Authors are checked when posts are written, so this indicates corrupt data.
var ErrAuthorMissing = errors.New("feed: post author missing")

// Entry is one post of a feed together with its author.
type Entry struct {
	Post post.Post `json:"post"`
	User user.User `json:"user"`
}

// PostSource yields the posts of a viewer's feed.
type PostSource interface {
	GetForUsername(ctx context.Context, viewer string) ([]post.Post, error)
}

// UserSource resolves authors in bulk.
type UserSource interface {
	GetMany(ctx context.Context, usernames []string) ([]user.User, error)
}

// Assembler builds feeds from the post and user services.
type Assembler struct {
	posts PostSource
	users UserSource
}

// NewAssembler constructs an Assembler.
func NewAssembler(posts PostSource, users UserSource) *Assembler {
	return &Assembler{posts: posts, users: users}
}

// Assemble returns the viewer's feed in the order chosen by the post source.
func (a *Assembler) Assemble(ctx context.Context, viewer string) ([]Entry, error) {
	posts, err := a.posts.GetForUsername(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return []Entry{}, nil
	}

	authors := make([]string, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.Username]; ok {
			continue
		}
		seen[p.Username] = struct{}{}
		authors = append(authors, p.Username)
	}

	users, err := a.users.GetMany(ctx, authors)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]user.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}

	entries := make([]Entry, 0, len(posts))
	for _, p := range posts {
		author, ok := byName[p.Username]
		if !ok {
			return nil, fmt.Errorf("post %d by %s: %w", p.ID, p.Username, ErrAuthorMissing)
		}
		entries = append(entries, Entry{Post: p, User: author})
	}
	return entries, nil
}
