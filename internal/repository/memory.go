package repository

import (
	"context"
	"sync"

	"github.com/Dan9191/secrets-board/internal/common"
	"github.com/Dan9191/secrets-board/internal/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users and posts in process memory
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]models.User
	userOrder []string
	posts     map[string]models.Post
	postOrder []string
}

// NewMemoryRepository initializes an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]models.User),
		posts: make(map[string]models.Post),
	}
}

// CreateUser stores a new user and assigns its ID
func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = uuid.NewString()
	r.users[user.ID] = *user
	r.userOrder = append(r.userOrder, user.ID)
	return nil
}

// FindUserByID retrieves a user by ID
func (r *MemoryRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &user, nil
}

// FindUserByUsername retrieves the earliest user with username
func (r *MemoryRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.userOrder {
		if user := r.users[id]; user.Username == username {
			return &user, nil
		}
	}
	return nil, common.ErrNotFound
}

// FindOrCreateByGoogleID looks a user up by Google ID and creates it when absent
func (r *MemoryRepository) FindOrCreateByGoogleID(ctx context.Context, googleID, username string) (*models.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.userOrder {
		if user := r.users[id]; user.GoogleID != nil && *user.GoogleID == googleID {
			return &user, false, nil
		}
	}

	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		GoogleID: models.StringPtr(googleID),
	}
	r.users[user.ID] = user
	r.userOrder = append(r.userOrder, user.ID)
	return &user, true, nil
}

// ListUsersWithSecrets returns every user whose secret is set, in creation order
func (r *MemoryRepository) ListUsersWithSecrets(ctx context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0)
	for _, id := range r.userOrder {
		if user := r.users[id]; user.Secret != nil {
			users = append(users, user)
		}
	}
	return users, nil
}

// SetSecret assigns a secret to an existing user
func (r *MemoryRepository) SetSecret(ctx context.Context, userID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	user.Secret = &secret
	r.users[userID] = user
	return nil
}

// CreatePost stores a new post and assigns its ID
func (r *MemoryRepository) CreatePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post.ID = uuid.NewString()
	r.posts[post.ID] = *post
	r.postOrder = append(r.postOrder, post.ID)
	return nil
}

// FindPostByID retrieves a post by ID
func (r *MemoryRepository) FindPostByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &post, nil
}

// ListPosts returns all posts in insertion order
func (r *MemoryRepository) ListPosts(ctx context.Context) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]models.Post, 0, len(r.postOrder))
	for _, id := range r.postOrder {
		posts = append(posts, r.posts[id])
	}
	return posts, nil
}

// UpdatePost replaces the title and content of an existing post
func (r *MemoryRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[post.ID]; !ok {
		return common.ErrNotFound
	}
	r.posts[post.ID] = *post
	return nil
}

// DeletePost removes a post; unknown IDs are ignored
func (r *MemoryRepository) DeletePost(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return nil
	}
	delete(r.posts, id)
	for i, pid := range r.postOrder {
		if pid == id {
			r.postOrder = append(r.postOrder[:i], r.postOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory repository
func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}
