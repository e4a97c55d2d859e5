package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Dan9191/secrets-board/internal/common"
	"github.com/Dan9191/secrets-board/internal/models"
	"github.com/Dan9191/secrets-board/internal/repository/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// PostgresRepository provides database operations on PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository initializes a new repository over an open connection
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects to PostgreSQL and applies the embedded migrations
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgresRepository(db), nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, google_id, secret)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		user.Username, nullString(user.Email), nullString(user.PasswordHash),
		nullString(user.GoogleID), nullString(user.Secret)).
		Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = strconv.FormatInt(id, 10)
	return nil
}

const selectUser = `
		SELECT id, username, email, password_hash, google_id, secret
		FROM users`

// FindUserByID retrieves a user by ID
func (r *PostgresRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	pk, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findUser(ctx, selectUser+` WHERE id = $1`, pk)
}

// FindUserByUsername retrieves a user by username
func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, selectUser+` WHERE username = $1 ORDER BY id LIMIT 1`, username)
}

// FindOrCreateByGoogleID inserts the user unless google_id is already bound,
// then reads the row back
func (r *PostgresRepository) FindOrCreateByGoogleID(ctx context.Context, googleID, username string) (*models.User, bool, error) {
	query := `
		INSERT INTO users (username, google_id)
		VALUES ($1, $2)
		ON CONFLICT (google_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, username, googleID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	user, err := r.findUser(ctx, selectUser+` WHERE google_id = $1`, googleID)
	if err != nil {
		return nil, false, err
	}
	return user, affected > 0, nil
}

// ListUsersWithSecrets returns every user whose secret is set
func (r *PostgresRepository) ListUsersWithSecrets(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` WHERE secret IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreatePost creates a new post in the database
func (r *PostgresRepository) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (title, content)
		VALUES ($1, $2)
		RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, post.Title, post.Content).Scan(&id); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	post.ID = strconv.FormatInt(id, 10)
	return nil
}

// FindPostByID retrieves a post by ID
func (r *PostgresRepository) FindPostByID(ctx context.Context, id string) (*models.Post, error) {
	pk, err := parseID(id)
	if err != nil {
		return nil, err
	}

	post := &models.Post{}
	var postID int64
	query := `
		SELECT id, title, content
		FROM posts
		WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, pk).Scan(&postID, &post.Title, &post.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	post.ID = strconv.FormatInt(postID, 10)
	return post, nil
}

// ListPosts returns all posts in insertion order
func (r *PostgresRepository) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, content FROM posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		var (
			post models.Post
			id   int64
		)
		if err := rows.Scan(&id, &post.Title, &post.Content); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		post.ID = strconv.FormatInt(id, 10)
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// UpdatePost replaces the title and content of an existing post
func (r *PostgresRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	pk, err := parseID(post.ID)
	if err != nil {
		return err
	}
	query := `
		UPDATE posts
		SET title = $1, content = $2
		WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, post.Title, post.Content, pk)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeletePost removes a post; unknown IDs are ignored
func (r *PostgresRepository) DeletePost(ctx context.Context, id string) error {
	pk, err := parseID(id)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, pk); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *PostgresRepository) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var id int64
	var user models.User
	var email, passwordHash, googleID, secret sql.NullString
	err := row.Scan(&id, &user.Username, &email, &passwordHash, &googleID, &secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.ID = strconv.FormatInt(id, 10)
	user.Email = stringPtr(email)
	user.PasswordHash = stringPtr(passwordHash)
	user.GoogleID = stringPtr(googleID)
	user.Secret = stringPtr(secret)
	return &user, nil
}

func parseID(id string) (int64, error) {
	pk, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return pk, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
