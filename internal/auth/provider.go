// Package auth defines the two ways a visitor can prove who they are:
// local credentials checked against the store, and an external OAuth
// provider whose profile is mapped onto a stored user.
package auth

import (
	"context"

	"github.com/Dan9191/secrets-board/internal/models"
)

// LocalAuthenticator verifies a username and password
type LocalAuthenticator interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
}

// ExternalProvider delegates authentication to a third party
type ExternalProvider interface {
	// Name identifies the provider in routes, state tokens and logs
	Name() string
	// AuthCodeURL is where the visitor is sent to sign in
	AuthCodeURL(state string) string
	// Exchange trades the callback code for the visitor's profile
	Exchange(ctx context.Context, code string) (*models.ExternalProfile, error)
}
