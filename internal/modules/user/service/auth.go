package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/modules/user/dto"
	"github.com/Vampire-Chan/VideoVerse/internal/modules/user/repository"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = apperror.Wrap(apperror.ErrUnauthorized, "invalid credentials")

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.TokenResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	CurrentUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GitHubEnabled() bool
	GitHubLoginURL(state string) string
	// GitHubCallback exchanges code and returns the linked or created account.
	GitHubCallback(ctx context.Context, code string) (*entity.User, error)
}

type authService struct {
	repo   repository.UserRepository
	tokens *TokenManager
	github *GitHubProvider
}

func NewAuthService(repo repository.UserRepository, tokens *TokenManager, github *GitHubProvider) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
		github: github,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.TokenResponse, error) {
	taken, err := s.repo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Wrap(apperror.ErrConflict, "email already registered")
	}

	taken, err = s.repo.ExistsByUsername(ctx, input.Username, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Wrap(apperror.ErrConflict, "username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)

	user := &entity.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: &hashed,
	}
	// A concurrent sign-up can still win the unique index; the repository
	// reports that as a conflict.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{Token: token}, nil
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	// GitHub-only accounts have no password.
	if user.PasswordHash == nil {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: token, User: user}, nil
}

func (s *authService) CurrentUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *authService) GitHubEnabled() bool {
	return s.github.Enabled()
}

func (s *authService) GitHubLoginURL(state string) string {
	return s.github.AuthCodeURL(state)
}

func (s *authService) GitHubCallback(ctx context.Context, code string) (*entity.User, error) {
	if !s.github.Enabled() {
		return nil, apperror.Wrap(apperror.ErrBadRequest, "github login is not configured")
	}
	identity, err := s.github.Identify(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.linkGitHubAccount(ctx, identity)
}

// linkGitHubAccount resolves by github id, then by email, and otherwise
// creates a password-less account.
func (s *authService) linkGitHubAccount(ctx context.Context, gh *GitHubIdentity) (*entity.User, error) {
	user, err := s.repo.FindByGitHubID(ctx, gh.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	user, err = s.repo.FindByEmail(ctx, gh.Email)
	if err == nil {
		if err := s.repo.LinkGitHub(ctx, user.ID, gh.ID); err != nil {
			return nil, err
		}
		githubID := gh.ID
		user.GitHubID = &githubID
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	username, err := s.freeUsername(ctx, gh.Login)
	if err != nil {
		return nil, err
	}

	githubID := gh.ID
	user = &entity.User{
		Username: username,
		Email:    gh.Email,
		GitHubID: &githubID,
	}
	if gh.Name != "" {
		name := gh.Name
		user.DisplayName = &name
	}
	if gh.AvatarURL != "" {
		avatar := gh.AvatarURL
		user.AvatarURL = &avatar
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) freeUsername(ctx context.Context, login string) (string, error) {
	base := sanitizeUsername(login)
	candidate := base
	for i := 0; i < 5; i++ {
		taken, err := s.repo.ExistsByUsername(ctx, candidate, nil)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "_" + uuid.NewString()[:4]
	}
	return "", apperror.Wrap(apperror.ErrConflict, "could not allocate a username")
}

func sanitizeUsername(login string) string {
	out := make([]rune, 0, len(login))
	for _, r := range login {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		case r == '-' || r == '.' || r == ' ':
			out = append(out, '_')
		}
	}
	if len(out) < 3 {
		return "user_" + uuid.NewString()[:6]
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return string(out)
}
