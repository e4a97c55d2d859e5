package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Dan9191/secrets-board/internal/config"
	"github.com/Dan9191/secrets-board/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, userinfo http.HandlerFunc) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", userinfo)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	c := NewClient(&config.Config{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		GoogleCallbackURL:  "http://localhost:3000/auth/google/secrets",
		GoogleUserInfoURL:  srv.URL + "/userinfo",
	}, log)
	c.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return c
}

func TestClient_AuthCodeURL(t *testing.T) {
	c := NewClient(&config.Config{
		GoogleClientID:    "client-id",
		GoogleCallbackURL: "http://localhost:3000/auth/google/secrets",
	}, logrus.New())

	u, err := url.Parse(c.AuthCodeURL("state-123"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "profile", q.Get("scope"))
	assert.Equal(t, "http://localhost:3000/auth/google/secrets", q.Get("redirect_uri"))
	assert.Equal(t, ProviderName, c.Name())
}

func TestClient_Exchange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"sub":"1029","name":"Alice Doe","email":"alice@example.com"}`)
	})

	profile, err := c.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, ProviderName, profile.Provider)
	assert.Equal(t, "1029", profile.ID)
	assert.Equal(t, "Alice Doe", profile.DisplayName)
	assert.Equal(t, "alice@example.com", models.StringValue(profile.Email))
}

func TestClient_Exchange_BadCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("userinfo must not be called")
	})

	_, err := c.Exchange(context.Background(), "bad-code")
	assert.ErrorContains(t, err, "failed to exchange code")
}

func TestClient_Exchange_UserInfoErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"non-200", http.StatusUnauthorized, `{}`, "unexpected status code: 401"},
		{"bad json", http.StatusOK, `not json`, "failed to parse userinfo"},
		{"no subject", http.StatusOK, `{"name":"x"}`, "no subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Exchange(context.Background(), "good-code")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
