package handler

import (
	"errors"
	"net/http"

	"github.com/Dan9191/secrets-board/internal/auth"
	"github.com/Dan9191/secrets-board/internal/common"
	"github.com/Dan9191/secrets-board/internal/feed"
	"github.com/Dan9191/secrets-board/internal/metrics"
	"github.com/Dan9191/secrets-board/internal/middleware"
	"github.com/Dan9191/secrets-board/internal/service"
	"github.com/Dan9191/secrets-board/internal/session"
	"github.com/Dan9191/secrets-board/internal/view"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators a Handler needs. Provider may be nil when no
// external login is configured.
type Deps struct {
	Service  *service.Service
	Sessions *session.Manager
	Views    *view.Renderer
	States   *auth.StateSigner
	Provider auth.ExternalProvider
	Metrics  *metrics.Metrics
	Feed     feed.Channel
	Logger   *logrus.Logger

	// SecureCookies marks the handler's own cookies Secure
	SecureCookies bool
}

type Handler struct {
	svc      *service.Service
	local    auth.LocalAuthenticator
	provider auth.ExternalProvider
	states   *auth.StateSigner
	sessions *session.Manager
	views    *view.Renderer
	metrics  *metrics.Metrics
	feed     feed.Channel
	log      *logrus.Logger

	secureCookies bool
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		svc:      d.Service,
		local:    d.Service,
		provider: d.Provider,
		states:   d.States,
		sessions: d.Sessions,
		views:    d.Views,
		metrics:  d.Metrics,
		feed:     d.Feed,
		log:      d.Logger,

		secureCookies: d.SecureCookies,
	}
}

// Home renders the landing page
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home", nil)
}

// LoginForm renders the login page, with a message after a failed attempt
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	var msg string
	if r.URL.Query().Get("error") != "" {
		msg = "Invalid username or password."
	}
	h.render(w, "login", map[string]any{
		"Error":         msg,
		"GoogleEnabled": h.provider != nil,
	})
}

// RegisterForm renders the registration page
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "register", map[string]any{
		"GoogleEnabled": h.provider != nil,
	})
}

// Register handles user registration and logs the new user in
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.serverError(w, err, "Failed to parse registration form")
		return
	}

	user, err := h.svc.Register(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		h.log.WithError(err).Warn("Registration failed")
		h.metrics.RecordAuth("register", "failure")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	if err := h.sessions.Start(r.Context(), w, r, user.ID); err != nil {
		h.serverError(w, err, "Failed to start session")
		return
	}
	h.metrics.RecordAuth("register", "success")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// Login handles local credential authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.serverError(w, err, "Failed to parse login form")
		return
	}

	user, err := h.local.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if errors.Is(err, common.ErrInvalidCredentials) {
		h.log.WithError(err).Warn("Login failed")
		h.metrics.RecordAuth("login", "failure")
		http.Redirect(w, r, "/login?error=1", http.StatusFound)
		return
	}
	if err != nil {
		h.serverError(w, err, "Failed to log in")
		return
	}

	if err := h.sessions.Start(r.Context(), w, r, user.ID); err != nil {
		h.serverError(w, err, "Failed to start session")
		return
	}
	h.metrics.RecordAuth("login", "success")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// Logout destroys the session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		h.serverError(w, err, "Failed to log out")
		return
	}
	h.metrics.RecordAuth("logout", "success")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Profile renders the authenticated user's own data
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	h.render(w, "profile", map[string]any{
		"User": middleware.CurrentUser(r.Context()),
	})
}

// Healthz reports liveness
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	if err := h.views.Render(w, page, data); err != nil {
		h.serverError(w, err, "Failed to render page")
	}
}

// serverError logs err and answers with a bare 500
func (h *Handler) serverError(w http.ResponseWriter, err error, msg string) {
	h.log.WithError(err).Error(msg)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// NewRouter registers every route on a gorilla/mux router
func (h *Handler) NewRouter(mws ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(mws...)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", view.Static())).Methods("GET")
	r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")

	r.HandleFunc("/", h.Home).Methods("GET")
	r.HandleFunc("/auth/google", h.ProviderLogin).Methods("GET")
	r.HandleFunc("/auth/google/secrets", h.ProviderCallback).Methods("GET")
	r.HandleFunc("/login", h.LoginForm).Methods("GET")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/register", h.RegisterForm).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("GET")
	r.Handle("/profile", middleware.RequireSession("/login")(http.HandlerFunc(h.Profile))).Methods("GET")

	// The board and the post mutations are reachable without a session,
	// as they always have been. Whether that is intended is an open product
	// decision; gate them with RequireSession if it is not.
	r.HandleFunc("/secrets", h.Secrets).Methods("GET")
	r.HandleFunc("/feed.xml", h.Feed).Methods("GET")
	r.HandleFunc("/posts", h.ListPosts).Methods("GET")
	r.HandleFunc("/posts", h.CreatePost).Methods("POST")
	r.HandleFunc("/posts/{id}/edit", h.EditPost).Methods("GET")
	r.HandleFunc("/posts/{id}", h.UpdatePost).Methods("POST")
	r.HandleFunc("/posts/{id}/delete", h.DeletePost).Methods("POST")

	return r
}
