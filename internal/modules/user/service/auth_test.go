package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/modules/user/dto"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newAuth(users *testutil.Users, gh *GitHubProvider) (AuthService, *TokenManager) {
	tokens := NewTokenManager("test-secret", time.Hour)
	return NewAuthService(users, tokens, gh), tokens
}

func TestRegisterFirstFiveAreAdmins(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newAuth(testutil.NewUsers(), nil)

	for i := 0; i < 6; i++ {
		res, err := svc.Register(ctx, dto.RegisterInput{
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Password: "hunter22",
		})
		require.NoError(t, err)

		claims, err := tokens.Parse(res.Token)
		require.NoError(t, err)
		assert.Equal(t, i < 5, claims.IsAdmin, "user %d", i)
	}
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuth(testutil.NewUsers(), nil)

	_, err := svc.Register(ctx, dto.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, dto.RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusConflict, apperror.MapErrorToStatus(err))
	assert.EqualError(t, err, "email already registered")

	_, err = svc.Register(ctx, dto.RegisterInput{Username: "alice", Email: "other@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusConflict, apperror.MapErrorToStatus(err))
	assert.EqualError(t, err, "username already taken")
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewUsers()
	svc, tokens := newAuth(users, nil)

	_, err := svc.Register(ctx, dto.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, dto.LoginInput{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Username)
	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)

	for _, input := range []dto.LoginInput{
		{Email: "alice@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "hunter22"},
	} {
		_, err := svc.Login(ctx, input)
		assert.Equal(t, http.StatusUnauthorized, apperror.MapErrorToStatus(err))
		assert.EqualError(t, err, "invalid credentials")
	}

	// accounts created through GitHub have no password
	require.NoError(t, users.Create(ctx, &entity.User{Username: "octo", Email: "octo@example.com"}))
	_, err = svc.Login(ctx, dto.LoginInput{Email: "octo@example.com", Password: ""})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func fakeGitHub(t *testing.T, id int64, login, email string) *GitHubProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "gh-token", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "login": login, "name": "The Octocat"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"email": "unverified@example.com", "primary": false, "verified": false},
			{"email": email, "primary": true, "verified": true},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint: oauth2.Endpoint{
				AuthURL:  srv.URL + "/login/oauth/authorize",
				TokenURL: srv.URL + "/login/oauth/access_token",
			},
		},
		apiBase: srv.URL,
	}
}

func TestGitHubCallbackLinksByEmail(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewUsers()
	svc, _ := newAuth(users, fakeGitHub(t, 42, "octocat", "alice@example.com"))

	_, err := svc.Register(ctx, dto.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	linked, err := svc.GitHubCallback(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, "alice", linked.Username)
	require.NotNil(t, linked.GitHubID)
	assert.Equal(t, "42", *linked.GitHubID)

	again, err := svc.GitHubCallback(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, linked.ID, again.ID)
	assert.Equal(t, 1, users.Count())
}

func TestGitHubCallbackCreatesAccount(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewUsers()
	svc, _ := newAuth(users, fakeGitHub(t, 7, "octo-cat", "octo@example.com"))

	created, err := svc.GitHubCallback(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, "octo_cat", created.Username)
	assert.Equal(t, "octo@example.com", created.Email)
	assert.Nil(t, created.PasswordHash)
	require.NotNil(t, created.DisplayName)
	assert.Equal(t, "The Octocat", *created.DisplayName)
	assert.True(t, created.IsAdmin, "first account takes an admin slot")
}

func TestGitHubDisabled(t *testing.T) {
	svc, _ := newAuth(testutil.NewUsers(), NewGitHubProvider(GitHubConfig{}))
	assert.False(t, svc.GitHubEnabled())
	_, err := svc.GitHubCallback(context.Background(), "code")
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "octo_cat", sanitizeUsername("octo-cat"))
	assert.Equal(t, "a_b", sanitizeUsername("a.b"))
	assert.Regexp(t, `^user_[0-9a-f-]{6}$`, sanitizeUsername("x"))
}
