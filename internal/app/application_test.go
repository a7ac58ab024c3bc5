package app

import (
	"context"
	"errors"
	"testing"

	"github.com/icook-app/icook/internal/app/domain/post"
	"github.com/icook-app/icook/internal/app/domain/user"
	"github.com/icook-app/icook/internal/app/storage/memory"
	"github.com/icook-app/icook/pkg/logger"
)

func TestScopeSharesStorage(t *testing.T) {
	store := memory.New()
	application := New(store, Options{BcryptCost: 4}, logger.NewDiscard())
	ctx := context.Background()

	scope, err := application.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if ok, err := scope.Users.Create(ctx, user.Registration{Username: "aramirez", Password: "secret123"}); err != nil || !ok {
		t.Fatalf("create user: ok=%v err=%v", ok, err)
	}
	if ok, err := scope.Posts.Create(ctx, post.Draft{Username: "aramirez", Description: "hi"}); err != nil || !ok {
		t.Fatalf("create post: ok=%v err=%v", ok, err)
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	next, err := application.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer next.Close()
	entries, err := next.Feed.Assemble(ctx, "anyone")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(entries) != 1 || entries[0].User.Username != "aramirez" {
		t.Fatalf("unexpected feed %+v", entries)
	}
}

func TestOpenFailure(t *testing.T) {
	store := memory.New()
	store.FailNext("Open", errors.New("pool exhausted"))
	application := New(store, Options{}, logger.NewDiscard())

	if _, err := application.Open(context.Background()); err == nil {
		t.Fatalf("expected open error")
	}
	if err := application.Ping(context.Background()); err != nil {
		t.Fatalf("ping after failure consumed: %v", err)
	}
}
