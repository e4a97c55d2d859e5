package handler

import (
	"net/http"

	"github.com/Dan9191/secrets-board/internal/common"
	"github.com/google/uuid"
)

const (
	stateCookieName = "oauth_state"
	stateCookiePath = "/auth/google"
	stateCookieTTL  = 600
)

// ProviderLogin sends the visitor to the external provider's consent page
func (h *Handler) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.log.WithError(common.ErrProviderDisabled).Warn("External login requested")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	nonce := uuid.NewString()
	state, err := h.states.Issue(h.provider.Name(), nonce)
	if err != nil {
		h.log.WithError(err).Error("Failed to issue oauth state")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.SetCookie(w, h.stateCookie(nonce, stateCookieTTL))
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// ProviderCallback completes the external login. Every failure lands on /login.
func (h *Handler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	name := h.provider.Name()
	q := r.URL.Query()

	var nonce string
	if c, err := r.Cookie(stateCookieName); err == nil {
		nonce = c.Value
	}
	// the nonce is single use
	http.SetCookie(w, h.stateCookie("", -1))

	fail := func(err error, msg string) {
		h.log.WithError(err).WithField("provider", name).Warn(msg)
		h.metrics.RecordAuth(name, "failure")
		http.Redirect(w, r, "/login", http.StatusFound)
	}

	if e := q.Get("error"); e != "" {
		h.log.WithField("provider", name).Warnf("Provider returned error: %s", e)
		h.metrics.RecordAuth(name, "failure")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := h.states.Verify(q.Get("state"), name, nonce); err != nil {
		fail(err, "Rejected oauth callback")
		return
	}

	profile, err := h.provider.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		fail(err, "Failed to exchange oauth code")
		return
	}
	user, err := h.svc.AuthenticateWithProvider(r.Context(), profile)
	if err != nil {
		fail(err, "Failed to find or create provider user")
		return
	}
	if err := h.sessions.Start(r.Context(), w, r, user.ID); err != nil {
		fail(err, "Failed to start session")
		return
	}

	h.metrics.RecordAuth(name, "success")
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (h *Handler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     stateCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
