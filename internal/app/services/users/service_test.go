package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/icook-app/icook/internal/app/domain/user"
	"github.com/icook-app/icook/internal/app/storage/memory"
	"github.com/icook-app/icook/pkg/logger"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, logger.NewDiscard(), WithBcryptCost(bcrypt.MinCost)), store
}

func mustCreate(t *testing.T, svc *Service, username, password string) {
	t.Helper()
	ok, err := svc.Create(context.Background(), user.Registration{Username: username, Password: password})
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	if !ok {
		t.Fatalf("create %s: expected success", username)
	}
}

func TestCreateDuplicateKeepsOriginal(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	ok, err := svc.Create(ctx, user.Registration{Username: "alice", Name: "Alice", Password: "first"})
	if err != nil || !ok {
		t.Fatalf("first create: ok=%v err=%v", ok, err)
	}
	ok, err = svc.Create(ctx, user.Registration{Username: "alice", Name: "Impostor", Password: "second"})
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if ok {
		t.Fatalf("expected duplicate create to be rejected")
	}

	u, err := svc.Get(ctx, "alice")
	if err != nil || u == nil {
		t.Fatalf("get: %v %v", u, err)
	}
	if u.Name != "Alice" {
		t.Fatalf("original record changed: %+v", u)
	}
	if outcome, _ := svc.Login(ctx, "alice", "first"); outcome != user.LoginSucceeded {
		t.Fatalf("original password no longer valid: %s", outcome)
	}
}

func TestCreateStoresHashNotPlaintext(t *testing.T) {
	svc, _ := newService(t)
	mustCreate(t, svc, "alice", "secret123")

	u, err := svc.Get(context.Background(), "alice")
	if err != nil || u == nil {
		t.Fatalf("get: %v %v", u, err)
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret123" {
		t.Fatalf("unexpected stored password %q", u.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestCreateStorageFault(t *testing.T) {
	svc, store := newService(t)
	store.FailNext("CreateUser", errors.New("connection refused"))

	ok, err := svc.Create(context.Background(), user.Registration{Username: "alice", Password: "x"})
	if err == nil {
		t.Fatalf("expected fault to propagate")
	}
	if ok {
		t.Fatalf("expected ok=false on fault")
	}
}

func TestGetMissing(t *testing.T) {
	svc, _ := newService(t)
	u, err := svc.Get(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil user, got %+v", u)
	}
}

func TestLoginOutcomes(t *testing.T) {
	svc, _ := newService(t)
	mustCreate(t, svc, "alice", "secret123")
	ctx := context.Background()

	cases := []struct {
		username, password string
		want               user.LoginOutcome
	}{
		{"alice", "secret123", user.LoginSucceeded},
		{"alice", "nope", user.LoginWrongPassword},
		{"ghost", "secret123", user.LoginUserNotFound},
	}
	for _, tc := range cases {
		got, err := svc.Login(ctx, tc.username, tc.password)
		if err != nil {
			t.Fatalf("login %s: %v", tc.username, err)
		}
		if got != tc.want {
			t.Fatalf("login %s/%s: expected %s, got %s", tc.username, tc.password, tc.want, got)
		}
	}
}

func TestLoginFaultIsNotAnOutcome(t *testing.T) {
	svc, store := newService(t)
	store.FailNext("GetUser", errors.New("connection reset"))
	if _, err := svc.Login(context.Background(), "alice", "x"); err == nil {
		t.Fatalf("expected fault to propagate")
	}
}

func TestGetManyOmitsMissing(t *testing.T) {
	svc, _ := newService(t)
	mustCreate(t, svc, "alice", "a")
	mustCreate(t, svc, "bob", "b")

	got, err := svc.GetMany(context.Background(), []string{"alice", "bob", "ghost", "alice"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got))
	}
	if got[0].Username != "alice" || got[1].Username != "bob" {
		t.Fatalf("unexpected users %+v", got)
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := newService(t)
	mustCreate(t, svc, "alice", "a")
	ctx := context.Background()

	desc := "home cook"
	ok, err := svc.Update(ctx, "alice", user.Changes{Description: &desc})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	u, _ := svc.Get(ctx, "alice")
	if u.Description != desc {
		t.Fatalf("description not updated: %+v", u)
	}

	ok, err = svc.Update(ctx, "ghost", user.Changes{Description: &desc})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Fatalf("expected false for missing user")
	}
}

func TestUpdateEmptyChangesReportsExistence(t *testing.T) {
	svc, _ := newService(t)
	mustCreate(t, svc, "alice", "a")
	ctx := context.Background()

	if ok, err := svc.Update(ctx, "alice", user.Changes{}); err != nil || !ok {
		t.Fatalf("expected true for existing user, ok=%v err=%v", ok, err)
	}
	if ok, err := svc.Update(ctx, "ghost", user.Changes{}); err != nil || ok {
		t.Fatalf("expected false for missing user, ok=%v err=%v", ok, err)
	}
}

func TestCreateRejectsPasswordOverByteLimit(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	ok, err := svc.Create(ctx, user.Registration{Username: "alice", Password: strings.Repeat("é", 40)})
	if !errors.Is(err, ErrPasswordTooLong) || ok {
		t.Fatalf("expected ErrPasswordTooLong, ok=%v err=%v", ok, err)
	}
	if u, _ := svc.Get(ctx, "alice"); u != nil {
		t.Fatalf("user stored despite rejected password: %+v", u)
	}
}

func TestUpdateUsesUsernameAsGiven(t *testing.T) {
	svc, _ := newService(t)
	mustCreate(t, svc, " bob ", "pw")
	ctx := context.Background()

	name := "Bob"
	if ok, err := svc.Update(ctx, " bob ", user.Changes{Name: &name}); err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	u, _ := svc.Get(ctx, " bob ")
	if u == nil || u.Name != name {
		t.Fatalf("name not updated: %+v", u)
	}
	if ok, err := svc.Update(ctx, "bob", user.Changes{Name: &name}); err != nil || ok {
		t.Fatalf("trimmed key must not match, ok=%v err=%v", ok, err)
	}
}
