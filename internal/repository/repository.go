// Package repository persists users and posts. Every backend is
// single-document and non-transactional; concurrent writes to one post race
// and the last write wins.
package repository

import (
	"context"

	"github.com/Dan9191/secrets-board/internal/models"
)

// UserRepository stores user accounts
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	// FindOrCreateByGoogleID returns the user bound to googleID, creating it
	// with the given username when absent. created reports which happened.
	FindOrCreateByGoogleID(ctx context.Context, googleID, username string) (user *models.User, created bool, err error)
	ListUsersWithSecrets(ctx context.Context) ([]models.User, error)
}

// PostRepository stores board posts
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	FindPostByID(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	// DeletePost is a no-op when id does not exist.
	DeletePost(ctx context.Context, id string) error
}

// Repository is the full data store used by the application
type Repository interface {
	UserRepository
	PostRepository
	Close(ctx context.Context) error
}
