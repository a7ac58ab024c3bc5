package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icook-app/icook/internal/app/domain/comment"
	"github.com/icook-app/icook/internal/app/domain/post"
	"github.com/icook-app/icook/internal/app/domain/user"
	"github.com/icook-app/icook/internal/app/storage"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(sqlx.NewDb(db, "postgres")), mock
}

var postCols = []string{"id", "username", "description", "picture", "created_at", "liked_by"}

func TestCreateUserDuplicateIsConflict(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("aramirez", "Adrian", "Ramirez", "$2a$hash", "", "").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := store.CreateUser(context.Background(), user.User{
		Username: "aramirez", Name: "Adrian", Lastname: "Ramirez", PasswordHash: "$2a$hash",
	})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestGetUserMissingIsNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"username", "name", "lastname", "password_hash", "description", "picture"}))

	_, err := store.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetUsersUsesAnyArray(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"username", "name", "lastname", "password_hash", "description", "picture"}).
			AddRow("alice", "Alice", "A", "h1", "", "").
			AddRow("bob", "Bob", "B", "h2", "", ""))

	users, err := store.GetUsers(context.Background(), []string{"alice", "bob", "ghost"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "h2", users[1].PasswordHash)
}

func TestGetUsersEmptyInputSkipsQuery(t *testing.T) {
	store, _ := newMock(t)
	users, err := store.GetUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUpdateUserBuildsPartialSet(t *testing.T) {
	store, mock := newMock(t)
	name, picture := "Adrian", "encoded"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = $2, picture = $3 WHERE username = $1")).
		WithArgs("aramirez", "Adrian", "encoded").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateUser(context.Background(), "aramirez", user.Changes{Name: &name, Picture: &picture})
	assert.NoError(t, err)
}

func TestUpdateUserMissingIsNotFound(t *testing.T) {
	store, mock := newMock(t)
	desc := "x"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET description = $2")).
		WithArgs("ghost", "x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateUser(context.Background(), "ghost", user.Changes{Description: &desc})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreatePostReturnsStorageAssignedFields(t *testing.T) {
	store, mock := newMock(t)
	created := time.Date(2024, 2, 24, 15, 11, 22, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts (username, description, picture)")).
		WithArgs("aramirez", "hi", "").
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(int64(7), "aramirez", "hi", "", created, []byte("{}")))

	p, err := store.CreatePost(context.Background(), post.Draft{Username: "aramirez", Description: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.NotNil(t, p.LikedBy)
	assert.Empty(t, p.LikedBy)
}

func TestCreatePostUnknownAuthorIsConflict(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts")).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"})

	_, err := store.CreatePost(context.Background(), post.Draft{Username: "ghost", Description: "hi"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestListPostsByUsernameScansLikes(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("aramirez").
		WillReturnRows(sqlmock.NewRows(postCols).
			AddRow(int64(1), "aramirez", "hi", "", time.Now(), []byte("{testuser}")))

	posts, err := store.ListPostsByUsername(context.Background(), "aramirez")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"testuser"}, posts[0].LikedBy)
}

func TestAddLikeIsSingleConditionalUpdate(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(`UPDATE posts\s+SET liked_by = CASE\s+WHEN \$2::text = ANY\(liked_by\) THEN liked_by\s+ELSE array_append\(liked_by, \$2::text\)`).
		WithArgs(int64(7), "testuser").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.AddLike(context.Background(), 7, "testuser"))
}

func TestLikeMutationsOnMissingPost(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("array_append")).
		WithArgs(int64(99), "bob").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("array_remove(liked_by, $2::text)")).
		WithArgs(int64(99), "bob").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.AddLike(context.Background(), 99, "bob"), storage.ErrNotFound)
	assert.ErrorIs(t, store.RemoveLike(context.Background(), 99, "bob"), storage.ErrNotFound)
}

func TestDeletePost(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.DeletePost(context.Background(), 3))
	assert.ErrorIs(t, store.DeletePost(context.Background(), 3), storage.ErrNotFound)
}

func TestConnectionFaultIsNotClassified(t *testing.T) {
	store, mock := newMock(t)
	fault := errors.New("driver: bad connection")
	mock.ExpectQuery(regexp.QuoteMeta("FROM posts")).WillReturnError(fault)

	_, err := store.ListPosts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fault)
	assert.NotErrorIs(t, err, storage.ErrConflict)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestCommentsRoundTrip(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	cols := []string{"id", "username", "post_id", "text", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO comments (username, post_id, text)")).
		WithArgs("bob", int64(7), "nice").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1), "bob", int64(7), "nice", now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE post_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1), "bob", int64(7), "nice", now))

	c, err := store.CreateComment(context.Background(), comment.Draft{Username: "bob", PostID: 7, Text: "nice"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)

	list, err := store.ListCommentsByPost(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "nice", list[0].Text)
}

func TestSessionPinsConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	sessions := NewSessions(sqlx.NewDb(db, "postgres"))
	sess, err := sessions.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Ping(context.Background()))
	require.NoError(t, sess.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
