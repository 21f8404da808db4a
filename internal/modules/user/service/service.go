package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/modules/user/dto"
	"github.com/Vampire-Chan/VideoVerse/internal/modules/user/repository"
	videoRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/video/repository"
	watchRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/watch/repository"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	commonDto "github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/Vampire-Chan/VideoVerse/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const (
	avatarFolder = "avatars"
	bannerFolder = "banners"
	maxLinks     = 10
)

type ProfileService interface {
	GetChannel(ctx context.Context, username string) (*dto.ChannelResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput, avatar, banner *commonDto.UploadFile) (*dto.ProfileResponse, error)
	ActivateChannel(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error)
}

type profileService struct {
	repo      repository.UserRepository
	videos    videoRepo.VideoRepository
	watches   watchRepo.WatchRepository
	media     storage.MediaStorage
	tokens    *TokenManager
	sanitizer *bluemonday.Policy
}

func NewProfileService(
	repo repository.UserRepository,
	videos videoRepo.VideoRepository,
	watches watchRepo.WatchRepository,
	media storage.MediaStorage,
	tokens *TokenManager,
) ProfileService {
	return &profileService{
		repo:      repo,
		videos:    videos,
		watches:   watches,
		media:     media,
		tokens:    tokens,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *profileService) GetChannel(ctx context.Context, username string) (*dto.ChannelResponse, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	videos, err := s.videos.ListByUser(ctx, user.ID, false)
	if err != nil {
		return nil, err
	}
	if videos == nil {
		videos = []entity.Video{}
	}

	count, err := s.watches.CountWatchers(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.ChannelResponse{User: user, Videos: videos, WatcherCount: count}, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput, avatar, banner *commonDto.UploadFile) (*dto.ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil && *input.Username != "" && *input.Username != user.Username {
		taken, err := s.repo.ExistsByUsername(ctx, *input.Username, &userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperror.Wrap(apperror.ErrConflict, "username already taken")
		}
		user.Username = *input.Username
	}

	if input.Description != nil {
		user.Description = s.optional(*input.Description)
	}
	if input.DisplayName != nil {
		user.DisplayName = s.optional(*input.DisplayName)
	}
	if input.Gender != nil {
		user.Gender = s.optional(*input.Gender)
	}
	if input.DOB != nil {
		dob, err := parseDOB(*input.DOB)
		if err != nil {
			return nil, err
		}
		user.DOB = dob
	}
	if input.Links != nil {
		links, err := parseLinks(*input.Links)
		if err != nil {
			return nil, err
		}
		user.Links = links
	}

	var replaced []string
	if avatar != nil {
		url, err := s.media.UploadImage(ctx, avatar.Reader, avatarFolder, avatar.FileName)
		if err != nil {
			return nil, err
		}
		if user.AvatarURL != nil {
			replaced = append(replaced, *user.AvatarURL)
		}
		user.AvatarURL = &url
	}
	if banner != nil {
		url, err := s.media.UploadImage(ctx, banner.Reader, bannerFolder, banner.FileName)
		if err != nil {
			return nil, err
		}
		if user.BannerURL != nil {
			replaced = append(replaced, *user.BannerURL)
		}
		user.BannerURL = &url
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	for _, old := range replaced {
		// avatars linked from GitHub are not ours to delete
		if id, _ := storage.ParseDeliveryURL(old); id == "" {
			continue
		}
		if err := s.media.DeleteByURL(ctx, old); err != nil {
			logging.Warn().Err(err).Str("url", old).Msg("failed to delete replaced profile image")
		}
	}

	return s.withToken(user)
}

func (s *profileService) ActivateChannel(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	if err := s.repo.SetCreator(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withToken(user)
}

// withToken reissues the JWT so its profile snapshot matches the row.
func (s *profileService) withToken(user *entity.User) (*dto.ProfileResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &dto.ProfileResponse{User: user, Token: token}, nil
}

func (s *profileService) optional(v string) *string {
	v = strings.TrimSpace(s.sanitizer.Sanitize(v))
	if v == "" {
		return nil
	}
	return &v
}

func parseDOB(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	dob, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrValidation, "dob must be formatted as YYYY-MM-DD")
	}
	if dob.After(time.Now()) {
		return nil, apperror.Wrap(apperror.ErrValidation, "dob cannot be in the future")
	}
	return &dob, nil
}

func parseLinks(raw string) (entity.Links, error) {
	if strings.TrimSpace(raw) == "" {
		return entity.Links{}, nil
	}

	var links entity.Links
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, apperror.Wrap(apperror.ErrValidation, "links must be a JSON array of {title,url}")
	}
	if len(links) > maxLinks {
		return nil, apperror.Wrap(apperror.ErrValidation, fmt.Sprintf("at most %d links are allowed", maxLinks))
	}
	for _, l := range links {
		u, err := url.Parse(l.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperror.Wrap(apperror.ErrValidation, fmt.Sprintf("invalid link url %q", l.URL))
		}
	}
	return links, nil
}
