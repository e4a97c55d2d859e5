package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/secrets-board/internal/common"
	"github.com/Dan9191/secrets-board/internal/models"
	"github.com/Dan9191/secrets-board/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Notifier delivers account notifications
type Notifier interface {
	SendWelcome(to, username string) error
}

// Board is the content of the shared secrets page
type Board struct {
	UsersWithSecrets []models.User
	Posts            []models.Post
}

// Service handles business logic
type Service struct {
	repo     repository.Repository
	log      *logrus.Logger
	notifier Notifier
	hashCost int
}

// NewService initializes a new service. notifier may be nil.
func NewService(repo repository.Repository, log *logrus.Logger, notifier Notifier) *Service {
	return &Service{repo: repo, log: log, notifier: notifier, hashCost: bcrypt.DefaultCost}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || password == "" {
		return nil, common.ErrInvalidInput
	}

	_, err := s.repo.FindUserByUsername(ctx, username)
	if err == nil {
		return nil, common.ErrDuplicateUsername
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hash := string(hashedPassword)

	user := &models.User{
		Username:     username,
		Email:        models.StringPtr(email),
		PasswordHash: &hash,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Username)

	if s.notifier != nil && user.Email != nil {
		if err := s.notifier.SendWelcome(*user.Email, user.Username); err != nil {
			s.log.WithError(err).Warnf("Welcome email not delivered to %s", user.Username)
		}
	}
	return user, nil
}

// Login verifies local credentials
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// Provider-created accounts have no password
	if !user.HasPassword() {
		return nil, common.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	s.log.Infof("User logged in: %s", user.Username)
	return user, nil
}

// AuthenticateWithProvider finds the user bound to an external identity,
// creating one named after the profile's display name on first login
func (s *Service) AuthenticateWithProvider(ctx context.Context, profile *models.ExternalProfile) (*models.User, error) {
	if profile == nil || profile.ID == "" {
		return nil, common.ErrInvalidInput
	}
	username := profile.DisplayName
	if username == "" {
		username = profile.Provider + ":" + profile.ID
	}

	user, created, err := s.repo.FindOrCreateByGoogleID(ctx, profile.ID, username)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Infof("User created via %s: %s", profile.Provider, user.Username)
	} else {
		s.log.Infof("User logged in via %s: %s", profile.Provider, user.Username)
	}
	return user, nil
}

// UserByID loads the user bound to a session
func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.FindUserByID(ctx, id)
}

// SecretsBoard returns users who revealed a secret along with every post
func (s *Service) SecretsBoard(ctx context.Context) (*Board, error) {
	users, err := s.repo.ListUsersWithSecrets(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.repo.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return &Board{UsersWithSecrets: users, Posts: posts}, nil
}

// ListPosts returns every post
func (s *Service) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.repo.ListPosts(ctx)
}

// GetPost returns a single post
func (s *Service) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.repo.FindPostByID(ctx, id)
}

// CreatePost adds a post to the board
func (s *Service) CreatePost(ctx context.Context, title, content string) (*models.Post, error) {
	post := &models.Post{Title: title, Content: content}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	s.log.Infof("Post created: %s", post.ID)
	return post, nil
}

// UpdatePost replaces a post's title and content
func (s *Service) UpdatePost(ctx context.Context, id, title, content string) error {
	if err := s.repo.UpdatePost(ctx, &models.Post{ID: id, Title: title, Content: content}); err != nil {
		return err
	}
	s.log.Infof("Post updated: %s", id)
	return nil
}

// DeletePost removes a post; unknown IDs are not an error
func (s *Service) DeletePost(ctx context.Context, id string) error {
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Post deleted: %s", id)
	return nil
}
