package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dan9191/secrets-board/internal/common"
	"github.com/Dan9191/secrets-board/internal/models"
	"github.com/Dan9191/secrets-board/internal/session"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type contextKey struct{}

var userKey contextKey

// UserLoader resolves a session's user ID to a user
type UserLoader interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the authenticated user, or nil for anonymous requests
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// SessionMiddleware attaches the session's user to the request context.
// A session pointing at a deleted user is treated as anonymous and its
// cookie is expired.
func SessionMiddleware(sessions *session.Manager, users UserLoader, logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := sessions.UserID(ctx, r)
			if errors.Is(err, session.ErrNoSession) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				logger.WithError(err).Error("Failed to load session")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			user, err := users.UserByID(ctx, userID)
			if errors.Is(err, common.ErrNotFound) {
				sessions.Clear(w)
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				logger.WithError(err).Error("Failed to load session user")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// RequireSession redirects anonymous requests to loginPath
func RequireSession(loginPath string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CurrentUser(r.Context()) == nil {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
