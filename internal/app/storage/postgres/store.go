package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/icook-app/icook/internal/app/domain/comment"
	"github.com/icook-app/icook/internal/app/domain/post"
	"github.com/icook-app/icook/internal/app/domain/user"
	"github.com/icook-app/icook/internal/app/storage"
)

// SQLSTATE codes mapped to storage.ErrConflict.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Querier is the subset of *sqlx.DB, *sqlx.Conn and *sqlx.Tx the store needs.
type Querier interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db Querier
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)

// New creates a Store using the provided handle.
func New(db Querier) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

const userColumns = `username, name, lastname, password_hash, description, picture`

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.Username, u.Name, u.Lastname, u.PasswordHash, u.Description, u.Picture)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.Username, classify(err))
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (user.User, error) {
	var u user.User
	err := sqlx.GetContext(ctx, s.db, &u, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
	`, username)
	if err != nil {
		return user.User{}, fmt.Errorf("get user %s: %w", username, classify(err))
	}
	return u, nil
}

func (s *Store) GetUsers(ctx context.Context, usernames []string) ([]user.User, error) {
	result := []user.User{}
	if len(usernames) == 0 {
		return result, nil
	}
	err := sqlx.SelectContext(ctx, s.db, &result, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = ANY($1)
		ORDER BY username
	`, pq.Array(usernames))
	if err != nil {
		return nil, fmt.Errorf("get users: %w", classify(err))
	}
	return result, nil
}

func (s *Store) UpdateUser(ctx context.Context, username string, changes user.Changes) error {
	sets := make([]string, 0, 4)
	args := []any{username}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("name", changes.Name)
	add("lastname", changes.Lastname)
	add("description", changes.Description)
	add("picture", changes.Picture)
	if len(sets) == 0 {
		return errors.New("update user: empty change set")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE username = $1`,
		args...)
	if err != nil {
		return fmt.Errorf("update user %s: %w", username, classify(err))
	}
	return expectRow(result, "user "+username)
}

// --- PostStore --------------------------------------------------------------

const postColumns = `id, username, description, picture, created_at, liked_by`

type postRow struct {
	ID          int64          `db:"id"`
	Username    string         `db:"username"`
	Description string         `db:"description"`
	Picture     string         `db:"picture"`
	CreatedAt   time.Time      `db:"created_at"`
	LikedBy     pq.StringArray `db:"liked_by"`
}

func (r postRow) toPost() post.Post {
	likes := []string(r.LikedBy)
	if likes == nil {
		likes = []string{}
	}
	return post.Post{
		ID:          r.ID,
		Username:    r.Username,
		Description: r.Description,
		Picture:     r.Picture,
		CreatedAt:   r.CreatedAt.UTC(),
		LikedBy:     likes,
	}
}

func toPosts(rows []postRow) []post.Post {
	result := make([]post.Post, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toPost())
	}
	return result
}

func (s *Store) CreatePost(ctx context.Context, draft post.Draft) (post.Post, error) {
	var row postRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		INSERT INTO posts (username, description, picture)
		VALUES ($1, $2, $3)
		RETURNING `+postColumns, draft.Username, draft.Description, draft.Picture)
	if err != nil {
		return post.Post{}, fmt.Errorf("insert post: %w", classify(err))
	}
	return row.toPost(), nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (post.Post, error) {
	var row postRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		SELECT `+postColumns+`
		FROM posts
		WHERE id = $1
	`, id)
	if err != nil {
		return post.Post{}, fmt.Errorf("get post %d: %w", id, classify(err))
	}
	return row.toPost(), nil
}

func (s *Store) ListPostsByUsername(ctx context.Context, username string) ([]post.Post, error) {
	var rows []postRow
	err := sqlx.SelectContext(ctx, s.db, &rows, `
		SELECT `+postColumns+`
		FROM posts
		WHERE username = $1
		ORDER BY id
	`, username)
	if err != nil {
		return nil, fmt.Errorf("list posts of %s: %w", username, classify(err))
	}
	return toPosts(rows), nil
}

func (s *Store) ListPosts(ctx context.Context) ([]post.Post, error) {
	var rows []postRow
	err := sqlx.SelectContext(ctx, s.db, &rows, `
		SELECT `+postColumns+`
		FROM posts
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", classify(err))
	}
	return toPosts(rows), nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, classify(err))
	}
	return expectRow(result, fmt.Sprintf("post %d", id))
}

// AddLike appends username to liked_by unless present. The membership test
// and the append run in one UPDATE, so concurrent likes re-evaluate against
// the locked row instead of racing a read-modify-write.
func (s *Store) AddLike(ctx context.Context, id int64, username string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET liked_by = CASE
			WHEN $2::text = ANY(liked_by) THEN liked_by
			ELSE array_append(liked_by, $2::text)
		END
		WHERE id = $1
	`, id, username)
	if err != nil {
		return fmt.Errorf("add like to post %d: %w", id, classify(err))
	}
	return expectRow(result, fmt.Sprintf("post %d", id))
}

func (s *Store) RemoveLike(ctx context.Context, id int64, username string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET liked_by = array_remove(liked_by, $2::text)
		WHERE id = $1
	`, id, username)
	if err != nil {
		return fmt.Errorf("remove like from post %d: %w", id, classify(err))
	}
	return expectRow(result, fmt.Sprintf("post %d", id))
}

// --- CommentStore -----------------------------------------------------------

const commentColumns = `id, username, post_id, text, created_at`

func (s *Store) CreateComment(ctx context.Context, draft comment.Draft) (comment.Comment, error) {
	var c comment.Comment
	err := sqlx.GetContext(ctx, s.db, &c, `
		INSERT INTO comments (username, post_id, text)
		VALUES ($1, $2, $3)
		RETURNING `+commentColumns, draft.Username, draft.PostID, draft.Text)
	if err != nil {
		return comment.Comment{}, fmt.Errorf("insert comment: %w", classify(err))
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID int64) ([]comment.Comment, error) {
	result := []comment.Comment{}
	err := sqlx.SelectContext(ctx, s.db, &result, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_id = $1
		ORDER BY id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, classify(err))
	}
	return result, nil
}

// --- helpers ----------------------------------------------------------------

func expectRow(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}

// classify maps driver errors onto the storage sentinels. Both lib/pq and
// pgx report SQLSTATE codes; everything unrecognised is returned unchanged
// and surfaces as a fault.
func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	code, msg := "", ""
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr):
		code, msg = string(pqErr.Code), pqErr.Message
	case errors.As(err, &pgErr):
		code, msg = pgErr.Code, pgErr.Message
	}

	switch code {
	case codeUniqueViolation, codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", storage.ErrConflict, msg)
	default:
		return err
	}
}
