package service

import (
	"context"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	adminDto "github.com/Vampire-Chan/VideoVerse/internal/modules/admin/dto"
	adminRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/admin/repository"
	video "github.com/Vampire-Chan/VideoVerse/internal/modules/video/service"
	"github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/Vampire-Chan/VideoVerse/pkg/storage"
	"github.com/google/uuid"
)

type AdminService interface {
	ListUsers(ctx context.Context, q dto.PageQuery) (*adminDto.ListResponse[entity.User], error)
	ListVideos(ctx context.Context, q dto.PageQuery) (*adminDto.ListResponse[entity.Video], error)
	ListComments(ctx context.Context, q dto.PageQuery) (*adminDto.ListResponse[entity.Comment], error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	DeleteVideo(ctx context.Context, id uuid.UUID) error
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

type adminService struct {
	repo   adminRepo.AdminRepository
	videos video.VideoService
	media  storage.MediaStorage

	runAsync func(func())
}

func NewAdminService(repo adminRepo.AdminRepository, videos video.VideoService, media storage.MediaStorage) AdminService {
	return &adminService{
		repo:     repo,
		videos:   videos,
		media:    media,
		runAsync: func(fn func()) { go fn() },
	}
}

func page[T any](q dto.PageQuery, list func(offset, limit int) ([]T, int64, error)) (*adminDto.ListResponse[T], error) {
	offset := q.Normalize()
	items, total, err := list(offset, q.Limit)
	if err != nil {
		return nil, err
	}
	return &adminDto.ListResponse[T]{Data: items, Meta: dto.NewPaginationMeta(q, total)}, nil
}

func (s *adminService) ListUsers(ctx context.Context, q dto.PageQuery) (*adminDto.ListResponse[entity.User], error) {
	return page(q, func(offset, limit int) ([]entity.User, int64, error) {
		return s.repo.ListUsers(ctx, offset, limit)
	})
}

func (s *adminService) ListVideos(ctx context.Context, q dto.PageQuery) (*adminDto.ListResponse[entity.Video], error) {
	return page(q, func(offset, limit int) ([]entity.Video, int64, error) {
		return s.repo.ListVideos(ctx, offset, limit)
	})
}

func (s *adminService) ListComments(ctx context.Context, q dto.PageQuery) (*adminDto.ListResponse[entity.Comment], error) {
	return page(q, func(offset, limit int) ([]entity.Comment, int64, error) {
		return s.repo.ListComments(ctx, offset, limit)
	})
}

func (s *adminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, videos, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	logging.Info().Str("user_id", id.String()).Int("videos", len(videos)).Msg("admin deleted user")

	bg := context.WithoutCancel(ctx)
	s.runAsync(func() {
		for i := range videos {
			s.videos.CleanupAssets(bg, &videos[i])
		}
		for _, u := range []*string{user.AvatarURL, user.BannerURL} {
			if u == nil {
				continue
			}
			if publicID, _ := storage.ParseDeliveryURL(*u); publicID == "" {
				continue
			}
			if err := s.media.DeleteByURL(bg, *u); err != nil {
				logging.Warn().Err(err).Str("url", *u).Msg("failed to delete profile image")
			}
		}
	})
	return nil
}

func (s *adminService) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	v, err := s.repo.DeleteVideo(ctx, id)
	if err != nil {
		return err
	}
	logging.Info().Str("video_id", id.String()).Msg("admin deleted video")

	bg := context.WithoutCancel(ctx)
	s.runAsync(func() {
		s.videos.CleanupAssets(bg, v)
	})
	return nil
}

func (s *adminService) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteComment(ctx, id)
}
