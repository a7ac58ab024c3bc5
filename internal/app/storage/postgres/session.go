package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/icook-app/icook/internal/app/storage"
)

// Sessions hands out request-scoped sessions, each pinned to one pooled
// connection.
type Sessions struct {
	db *sqlx.DB
}

var _ storage.Sessions = (*Sessions)(nil)

// NewSessions wraps an open pool.
func NewSessions(db *sqlx.DB) *Sessions {
	return &Sessions{db: db}
}

// Open acquires a connection from the pool. The caller must Close the
// returned session to give the connection back.
func (s *Sessions) Open(ctx context.Context) (storage.Session, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{conn: conn, store: New(conn)}, nil
}

// Session is a storage.Session over a single connection.
type Session struct {
	conn  *sqlx.Conn
	store *Store
}

func (s *Session) Users() storage.UserStore       { return s.store }
func (s *Session) Posts() storage.PostStore       { return s.store }
func (s *Session) Comments() storage.CommentStore { return s.store }

// Ping checks the session's connection is alive.
func (s *Session) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close returns the connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL using driverName ("postgres" for lib/pq, "pgx"
// for the pgx stdlib driver) and verifies the connection.
func Open(ctx context.Context, driverName, dsn string, opts PoolOptions) (*sqlx.DB, error) {
	if driverName == "" {
		return nil, fmt.Errorf("database driver not configured")
	}
	if dsn == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
