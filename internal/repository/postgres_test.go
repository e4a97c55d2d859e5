package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/secrets-board/internal/common"
	"github.com/Dan9191/secrets-board/internal/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "username", "email", "password_hash", "google_id", "secret"}

func newPostgresWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgres_CreateUser(t *testing.T) {
	repo, mock := newPostgresWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (username, email, password_hash, google_id, secret)")).
		WithArgs("alice", nil, "hash", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	u := &models.User{Username: "alice", PasswordHash: models.StringPtr("hash")}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	assert.Equal(t, "42", u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUser_DBError(t *testing.T) {
	repo, mock := newPostgresWithMock(t)

	mock.ExpectQuery("INSERT INTO users").WillReturnError(errors.New("db down"))

	err := repo.CreateUser(context.Background(), &models.User{Username: "alice"})
	assert.ErrorContains(t, err, "failed to create user: db down")
}

func TestPostgres_FindUserByUsername(t *testing.T) {
	repo, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`FROM users\s+WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(1), "alice", nil, "hash", nil, nil))

	u, err := repo.FindUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	assert.True(t, u.HasPassword())
	assert.Nil(t, u.Email)
	assert.Nil(t, u.Secret)
}

func TestPostgres_FindUserByID_NotFound(t *testing.T) {
	repo, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUserByID(context.Background(), "7")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgres_FindUserByID_Malformed(t *testing.T) {
	repo, _ := newPostgresWithMock(t)

	_, err := repo.FindUserByID(context.Background(), "abc")
	assert.ErrorContains(t, err, "invalid id")
}

func TestPostgres_FindOrCreateByGoogleID(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		created  bool
	}{
		{"creates when absent", 1, true},
		{"reuses existing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newPostgresWithMock(t)

			mock.ExpectExec(`ON CONFLICT \(google_id\) DO NOTHING`).
				WithArgs("Alice", "g-1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectQuery(`FROM users\s+WHERE google_id = \$1`).
				WithArgs("g-1").
				WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(3), "Alice", nil, nil, "g-1", nil))

			u, created, err := repo.FindOrCreateByGoogleID(context.Background(), "g-1", "Alice")
			require.NoError(t, err)
			assert.Equal(t, tt.created, created)
			assert.Equal(t, "3", u.ID)
			assert.Equal(t, "g-1", models.StringValue(u.GoogleID))
			assert.False(t, u.HasPassword())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_ListUsersWithSecrets(t *testing.T) {
	repo, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`WHERE secret IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(1), "alice", nil, "h", nil, "first").
			AddRow(int64(2), "bob", "bob@example.com", nil, "g-2", "second"))

	users, err := repo.ListUsersWithSecrets(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "first", models.StringValue(users[0].Secret))
	assert.Equal(t, "bob@example.com", models.StringValue(users[1].Email))
}

func TestPostgres_PostCRUD(t *testing.T) {
	repo, mock := newPostgresWithMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO posts (title, content)")).
		WithArgs("t", "c").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	post := &models.Post{Title: "t", Content: "c"}
	require.NoError(t, repo.CreatePost(ctx, post))
	assert.Equal(t, "5", post.ID)

	mock.ExpectQuery(`SELECT id, title, content FROM posts ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content"}).AddRow(int64(5), "t", "c"))
	posts, err := repo.ListPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Post{{ID: "5", Title: "t", Content: "c"}}, posts)

	mock.ExpectQuery(`FROM posts\s+WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content"}).AddRow(int64(5), "t", "c"))
	got, err := repo.FindPostByID(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs("t2", "c2", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePost(ctx, &models.Post{ID: "5", Title: "t2", Content: "c2"}))

	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeletePost(ctx, "5"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdatePost_Missing(t *testing.T) {
	repo, mock := newPostgresWithMock(t)

	mock.ExpectExec(`UPDATE posts`).
		WithArgs("t", "c", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePost(context.Background(), &models.Post{ID: "9", Title: "t", Content: "c"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgres_DeletePost_MissingIsNoop(t *testing.T) {
	repo, mock := newPostgresWithMock(t)

	mock.ExpectExec(`DELETE FROM posts`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.DeletePost(context.Background(), "9"))
}

func TestPostgres_FindPostByID_NotFound(t *testing.T) {
	repo, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`FROM posts`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindPostByID(context.Background(), "9")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, d *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(ctx context.Context, d *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.ErrorContains(t, RunMigrations(context.Background(), db), "failed to run migrations: boom")
}
