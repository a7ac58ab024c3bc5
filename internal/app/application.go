package app

import (
	"context"
	"fmt"
	"time"

	"github.com/icook-app/icook/internal/app/metrics"
	"github.com/icook-app/icook/internal/app/services/comments"
	"github.com/icook-app/icook/internal/app/services/feed"
	"github.com/icook-app/icook/internal/app/services/posts"
	"github.com/icook-app/icook/internal/app/services/users"
	"github.com/icook-app/icook/internal/app/storage"
	"github.com/icook-app/icook/internal/app/storage/memory"
	"github.com/icook-app/icook/pkg/logger"
)

// Options tunes the services built for each scope.
type Options struct {
	BcryptCost int
	FeedPolicy posts.FeedPolicy
}

// Application builds request scopes over a storage backend.
type Application struct {
	sessions storage.Sessions
	opts     Options
	log      *logger.Logger
}

// New builds an application. A nil sessions value defaults to the in-memory
// store.
func New(sessions storage.Sessions, opts Options, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if sessions == nil {
		sessions = memory.New()
	}
	return &Application{sessions: sessions, opts: opts, log: log}
}

// Scope is one unit of work. Its services share a single storage session,
// which is released by Close.
type Scope struct {
	session storage.Session
	opened  time.Time

	Users    *users.Service
	Posts    *posts.Service
	Comments *comments.Service
	Feed     *feed.Assembler
}

// Open acquires a storage session and wires the services over it. Callers
// must Close the scope on every path.
func (a *Application) Open(ctx context.Context) (*Scope, error) {
	session, err := a.sessions.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open storage session: %w", err)
	}

	userSvc := users.New(session.Users(), a.log.Named("users"), users.WithBcryptCost(a.opts.BcryptCost))
	postSvc := posts.New(session.Users(), session.Posts(), a.log.Named("posts"), posts.WithFeedPolicy(a.opts.FeedPolicy))
	return &Scope{
		session:  session,
		opened:   time.Now(),
		Users:    userSvc,
		Posts:    postSvc,
		Comments: comments.New(session.Posts(), session.Comments(), a.log.Named("comments")),
		Feed:     feed.NewAssembler(postSvc, userSvc),
	}, nil
}

// Ping checks the storage backend through a short-lived session.
func (a *Application) Ping(ctx context.Context) error {
	scope, err := a.Open(ctx)
	if err != nil {
		return err
	}
	defer scope.Close()
	return scope.Ping(ctx)
}

// Ping checks the scope's storage session.
func (s *Scope) Ping(ctx context.Context) error {
	return s.session.Ping(ctx)
}

// Close releases the storage session.
func (s *Scope) Close() error {
	metrics.ObserveSession(time.Since(s.opened))
	return s.session.Close()
}
