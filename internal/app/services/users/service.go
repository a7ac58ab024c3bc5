package users

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/icook-app/icook/internal/app/domain/user"
	"github.com/icook-app/icook/internal/app/metrics"
	"github.com/icook-app/icook/internal/app/storage"
	"github.com/icook-app/icook/pkg/logger"
)

// ErrPasswordTooLong is returned by Create when the password exceeds
// user.MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Service manages user accounts and password checks.
type Service struct {
	store storage.UserStore
	cost  int
	log   *logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	s := &Service{store: store, cost: bcrypt.DefaultCost, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create hashes the password and stores a new user. It reports false when the
// username is already taken.
func (s *Service) Create(ctx context.Context, reg user.Registration) (bool, error) {
	if len(reg.Password) > user.MaxPasswordBytes {
		metrics.RecordOperation("user", "create", metrics.OutcomeRejected)
		return false, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		metrics.RecordOperation("user", "create", metrics.OutcomeError)
		return false, fmt.Errorf("hash password: %w", err)
	}

	err = s.store.CreateUser(ctx, user.User{
		Username:     reg.Username,
		Name:         reg.Name,
		Lastname:     reg.Lastname,
		PasswordHash: string(hash),
		Description:  reg.Description,
		Picture:      reg.Picture,
	})
	switch {
	case errors.Is(err, storage.ErrConflict):
		metrics.RecordOperation("user", "create", metrics.OutcomeRejected)
		s.log.WithField("username", reg.Username).Info("username already taken")
		return false, nil
	case err != nil:
		metrics.RecordOperation("user", "create", metrics.OutcomeError)
		return false, fmt.Errorf("create user: %w", err)
	}

	metrics.RecordOperation("user", "create", metrics.OutcomeOK)
	s.log.WithField("username", reg.Username).Info("user created")
	return true, nil
}

// Get returns the user or nil when none exists.
func (s *Service) Get(ctx context.Context, username string) (*user.User, error) {
	u, err := s.store.GetUser(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetMany returns the users matching usernames. Unknown names are omitted and
// repeated names are looked up once.
func (s *Service) GetMany(ctx context.Context, usernames []string) ([]user.User, error) {
	seen := make(map[string]struct{}, len(usernames))
	unique := make([]string, 0, len(usernames))
	for _, name := range usernames {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	result, err := s.store.GetUsers(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return result, nil
}

// Login checks password against the stored hash.
func (s *Service) Login(ctx context.Context, username, password string) (user.LoginOutcome, error) {
	u, err := s.store.GetUser(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.RecordOperation("user", "login", metrics.OutcomeMissing)
		return user.LoginUserNotFound, nil
	}
	if err != nil {
		metrics.RecordOperation("user", "login", metrics.OutcomeError)
		return user.LoginUserNotFound, fmt.Errorf("login: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		metrics.RecordOperation("user", "login", metrics.OutcomeRejected)
		return user.LoginWrongPassword, nil
	case err != nil:
		// A malformed stored hash is a data fault, not a bad password.
		metrics.RecordOperation("user", "login", metrics.OutcomeError)
		return user.LoginWrongPassword, fmt.Errorf("login: compare hash for %s: %w", username, err)
	}

	metrics.RecordOperation("user", "login", metrics.OutcomeOK)
	return user.LoginSucceeded, nil
}

// Update applies the set fields of changes. It reports false when the user
// does not exist. An empty change set only checks for existence.
func (s *Service) Update(ctx context.Context, username string, changes user.Changes) (bool, error) {
	if changes.Empty() {
		u, err := s.Get(ctx, username)
		if err != nil {
			return false, err
		}
		return u != nil, nil
	}

	err := s.store.UpdateUser(ctx, username, changes)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		metrics.RecordOperation("user", "update", metrics.OutcomeMissing)
		return false, nil
	case err != nil:
		metrics.RecordOperation("user", "update", metrics.OutcomeError)
		return false, fmt.Errorf("update user: %w", err)
	}

	metrics.RecordOperation("user", "update", metrics.OutcomeOK)
	s.log.WithField("username", username).Info("user updated")
	return true, nil
}
