package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Dan9191/secrets-board/internal/config"
	"github.com/Dan9191/secrets-board/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// ProviderName is the name Google logins are recorded under
const ProviderName = "google"

// Client handles the OAuth2 flow with Google
type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
	log         *logrus.Logger
}

// NewClient initializes a Google client from configuration
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleCallbackURL,
			Scopes:       []string{"profile"},
			Endpoint:     googleoauth.Endpoint,
		},
		userInfoURL: cfg.GoogleUserInfoURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// userInfo is the subset of the OpenID userinfo response we use
type userInfo struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Client) Name() string {
	return ProviderName
}

// AuthCodeURL returns the Google consent page URL carrying state
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token and fetches the profile
func (c *Client) Exchange(ctx context.Context, code string) (*models.ExternalProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	body, err := c.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("userinfo response has no subject")
	}

	c.log.Infof("Google profile retrieved: %s", info.Sub)
	return &models.ExternalProfile{
		Provider:    ProviderName,
		ID:          info.Sub,
		DisplayName: info.Name,
		Email:       models.StringPtr(info.Email),
	}, nil
}

// fetchUserInfo calls the userinfo endpoint with the access token
func (c *Client) fetchUserInfo(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Google userinfo response: %s", string(body))
	return body, nil
}
