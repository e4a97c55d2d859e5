package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// Options configures the session cookie
type Options struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

// Manager binds sessions in a Store to signed client cookies
type Manager struct {
	store  Store
	name   string
	codec  *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
}

// NewManager creates a session manager over store. The cookie carries only
// the session ID, HMAC-signed with opts.Secret.
func NewManager(store Store, opts Options) *Manager {
	codec := securecookie.New([]byte(opts.Secret), nil)
	codec.MaxAge(int(opts.TTL.Seconds()))
	return &Manager{
		store:  store,
		name:   opts.CookieName,
		codec:  codec,
		ttl:    opts.TTL,
		secure: opts.Secure,
	}
}

// Start opens a new session for userID and sets the cookie. Any session the
// request already carried is discarded.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) error {
	if id, ok := m.sessionID(r); ok {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
	}

	id := uuid.NewString()
	value, err := m.codec.Encode(m.name, id)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	if err := m.store.Save(ctx, id, userID, m.ttl); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	http.SetCookie(w, m.cookie(value, int(m.ttl.Seconds())))
	return nil
}

// UserID returns the user bound to the request's session, or ErrNoSession
func (m *Manager) UserID(ctx context.Context, r *http.Request) (string, error) {
	id, ok := m.sessionID(r)
	if !ok {
		return "", ErrNoSession
	}
	return m.store.Get(ctx, id)
}

// Destroy deletes the request's session and expires the cookie
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if id, ok := m.sessionID(r); ok {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
	}
	http.SetCookie(w, m.cookie("", -1))
	return nil
}

// Clear expires the cookie without touching the store
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return "", false
	}
	var id string
	if err := m.codec.Decode(m.name, c.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
