package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ProviderGithub is the provider id of the GitHub adapter.
const ProviderGithub = "github"

// GitHubConfig holds GitHub provider configuration.
type GitHubConfig struct {
	ClientID     string   `env:"GITHUB_OAUTH_CLIENT_ID,required"`
	ClientSecret string   `env:"GITHUB_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GITHUB_OAUTH_REDIRECT_URL,required"`
	Scopes       []string `env:"GITHUB_OAUTH_SCOPES" envSeparator:"," envDefault:"user:email"`
}

type githubAdapter struct {
	conf       *oauth2.Config
	httpClient *http.Client
	userURL    string
	emailsURL  string
}

// NewGitHubAdapter creates a GitHub provider adapter. The code exchange is
// delegated to the oauth2 library; only the profile fetch is done here.
func NewGitHubAdapter(cfg GitHubConfig) ProviderAdapter {
	return &githubAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     github.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userURL:    "https://api.github.com/user",
		emailsURL:  "https://api.github.com/user/emails",
	}
}

func (a *githubAdapter) ProviderID() string {
	return ProviderGithub
}

func (a *githubAdapter) AuthURL(state string) (string, error) {
	return a.conf.AuthCodeURL(state), nil
}

// ResolveProfile exchanges the code and resolves the GitHub identity. The
// primary verified email is preferred; any verified email is the fallback.
func (a *githubAdapter) ResolveProfile(ctx context.Context, code string) (ProviderProfile, error) {
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return ProviderProfile{}, errors.Join(ErrInvalidCode, err)
	}

	var user ghUser
	if err := a.getJSON(ctx, tok.AccessToken, a.userURL, &user); err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch github user: %w", err)
	}

	var emails []ghEmail
	if err := a.getJSON(ctx, tok.AccessToken, a.emailsURL, &emails); err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch github emails: %w", err)
	}

	profile := ProviderProfile{
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Name:           user.Name,
		AvatarURL:      user.AvatarURL,
	}
	for _, e := range emails {
		if e.Verified && (profile.Email == "" || e.Primary) {
			profile.Email = e.Email
			profile.EmailVerified = true
			if e.Primary {
				break
			}
		}
	}
	return profile, nil
}

func (a *githubAdapter) getJSON(ctx context.Context, accessToken, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type ghUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type ghEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

var _ ProviderAdapter = (*githubAdapter)(nil)
