package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ProviderGoogle is the provider id of the Google adapter.
const ProviderGoogle = "google"

// GoogleConfig holds Google provider configuration.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID,required"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GOOGLE_OAUTH_REDIRECT_URL,required"`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/userinfo.email"`
}

type googleAdapter struct {
	conf        *oauth2.Config
	httpClient  *http.Client
	userinfoURL string
}

// NewGoogleAdapter creates a Google provider adapter.
func NewGoogleAdapter(cfg GoogleConfig) ProviderAdapter {
	return &googleAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		userinfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

func (a *googleAdapter) ProviderID() string {
	return ProviderGoogle
}

func (a *googleAdapter) AuthURL(state string) (string, error) {
	return a.conf.AuthCodeURL(state), nil
}

// ResolveProfile exchanges the code and resolves the Google identity from
// the userinfo endpoint.
func (a *googleAdapter) ResolveProfile(ctx context.Context, code string) (ProviderProfile, error) {
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return ProviderProfile{}, errors.Join(ErrInvalidCode, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userinfoURL, nil)
	if err != nil {
		return ProviderProfile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch google user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ProviderProfile{}, fmt.Errorf("google api returned status %d", resp.StatusCode)
	}

	var user gUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return ProviderProfile{}, err
	}

	return ProviderProfile{
		ProviderUserID: user.ID,
		Email:          user.Email,
		EmailVerified:  user.VerifiedEmail,
		Name:           user.Name,
		AvatarURL:      user.Picture,
	}, nil
}

type gUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

var _ ProviderAdapter = (*googleAdapter)(nil)
