package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// GitHubIdentity is the part of a GitHub account used for linking.
type GitHubIdentity struct {
	ID        string
	Login     string
	Name      string
	Email     string
	AvatarURL string
}

type GitHubProvider struct {
	oauth   *oauth2.Config
	apiBase string
}

func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBase: githubAPI,
	}
}

func (p *GitHubProvider) Enabled() bool {
	return p != nil && p.oauth.ClientID != ""
}

func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Identify exchanges code and fetches the profile and verified email.
func (p *GitHubProvider) Identify(ctx context.Context, code string) (*GitHubIdentity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.New(http.StatusUnauthorized, "github authorization failed", err)
	}
	client := p.oauth.Client(ctx, token)

	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := p.getJSON(ctx, client, "/user", &profile); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	email := ""
	for _, e := range emails {
		if e.Verified && e.Primary {
			email = e.Email
			break
		}
		if e.Verified && email == "" {
			email = e.Email
		}
	}
	if email == "" {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "github account has no verified email")
	}

	return &GitHubIdentity{
		ID:        strconv.FormatInt(profile.ID, 10),
		Login:     profile.Login,
		Name:      profile.Name,
		Email:     email,
		AvatarURL: profile.AvatarURL,
	}, nil
}

func (p *GitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, apperror.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s returned %d: %w", path, resp.StatusCode, apperror.ErrUpstream)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode github %s: %w", path, err)
	}
	return nil
}
