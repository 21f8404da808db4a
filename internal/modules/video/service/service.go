package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	notification "github.com/Vampire-Chan/VideoVerse/internal/modules/notification/service"
	reaction "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/service"
	search "github.com/Vampire-Chan/VideoVerse/internal/modules/search/service"
	userRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/user/repository"
	videoDto "github.com/Vampire-Chan/VideoVerse/internal/modules/video/dto"
	videoRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/video/repository"
	watchRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/watch/repository"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/Vampire-Chan/VideoVerse/pkg/ratelimiter"
	"github.com/Vampire-Chan/VideoVerse/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const (
	rateLimitAction = "upload"
	searchLimit     = 20
	suggestionLimit = 5
)

type VideoService interface {
	Upload(ctx context.Context, userID uuid.UUID, input videoDto.UploadVideoInput, file dto.UploadFile, thumbnail *dto.UploadFile) (*entity.Video, error)
	List(ctx context.Context, q dto.PageQuery) (*videoDto.VideoListResponse, error)
	Search(ctx context.Context, query string) ([]entity.Video, error)
	Suggestions(ctx context.Context, query string) ([]string, error)
	Get(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*videoDto.VideoDetail, error)
	ListByUser(ctx context.Context, userID uuid.UUID, viewer *uuid.UUID) ([]entity.Video, error)
	RecordView(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (int64, error)
	SignedURL(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (string, error)
	Update(ctx context.Context, id uuid.UUID, input videoDto.UpdateVideoInput) (*entity.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// CleanupAssets removes what a deleted video left at the media and
	// search hosts.
	CleanupAssets(ctx context.Context, video *entity.Video)
}

type Options struct {
	Folder       string
	UploadWindow time.Duration
}

type videoService struct {
	repo          videoRepo.VideoRepository
	users         userRepo.UserRepository
	watches       watchRepo.WatchRepository
	reactions     reaction.ReactionService
	notifications notification.NotificationService
	index         search.VideoIndex
	media         storage.MediaStorage
	orphans       storage.OrphanRegistry
	publisher     realtime.Publisher
	limiter       *ratelimiter.Limiter
	opts          Options
	sanitizer     *bluemonday.Policy

	runAsync func(func())
}

func NewVideoService(
	repo videoRepo.VideoRepository,
	users userRepo.UserRepository,
	watches watchRepo.WatchRepository,
	reactions reaction.ReactionService,
	notifications notification.NotificationService,
	index search.VideoIndex,
	media storage.MediaStorage,
	orphans storage.OrphanRegistry,
	publisher realtime.Publisher,
	limiter *ratelimiter.Limiter,
	opts Options,
) VideoService {
	return &videoService{
		repo:          repo,
		users:         users,
		watches:       watches,
		reactions:     reactions,
		notifications: notifications,
		index:         index,
		media:         media,
		orphans:       orphans,
		publisher:     publisher,
		limiter:       limiter,
		opts:          opts,
		sanitizer:     bluemonday.StrictPolicy(),
		runAsync:      func(fn func()) { go fn() },
	}
}

func (s *videoService) clean(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(html.UnescapeString(text)))
}

func (s *videoService) Upload(ctx context.Context, userID uuid.UUID, input videoDto.UploadVideoInput, file dto.UploadFile, thumbnail *dto.UploadFile) (*entity.Video, error) {
	title := s.clean(input.Title)
	if title == "" {
		return nil, apperror.Wrap(apperror.ErrValidation, "title is required")
	}

	uploader, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx, userID, rateLimitAction, s.opts.UploadWindow); err != nil {
		return nil, err
	}

	asset, err := s.media.UploadVideo(ctx, file.Reader, s.opts.Folder, file.FileName)
	if err != nil {
		_ = s.limiter.Release(ctx, userID, rateLimitAction)
		return nil, err
	}

	thumbURL := asset.ThumbnailURL
	customThumb := false
	if thumbnail != nil {
		url, err := s.media.UploadImage(ctx, thumbnail.Reader, s.opts.Folder+"/thumbnails", thumbnail.FileName)
		if err != nil {
			logging.Warn().Err(err).Str("public_id", asset.PublicID).Msg("thumbnail upload failed, using generated frame")
		} else {
			thumbURL, customThumb = url, true
		}
	}

	video := &entity.Video{
		UserID:       userID,
		Title:        title,
		Description:  s.clean(input.Description),
		VideoURL:     asset.URL,
		PublicID:     asset.PublicID,
		FileSize:     asset.Bytes,
		Duration:     asset.Duration,
		Width:        asset.Width,
		Height:       asset.Height,
		Format:       asset.Format,
		Visibility:   input.Visibility,
		Category:     input.Category,
		Restrictions: "None",
	}
	if thumbURL != "" {
		video.ThumbnailURL = &thumbURL
	}
	if video.Visibility == "" {
		video.Visibility = entity.VisibilityPublic
	}
	if video.Category == "" {
		video.Category = "All"
	}

	if err := s.repo.Create(ctx, video); err != nil {
		bg := context.WithoutCancel(ctx)
		s.discardAsset(bg, storage.Orphan{PublicID: asset.PublicID, Kind: storage.AssetVideo})
		if customThumb {
			if id, kind := storage.ParseDeliveryURL(thumbURL); id != "" {
				s.discardAsset(bg, storage.Orphan{PublicID: id, Kind: kind})
			}
		}
		_ = s.limiter.Release(ctx, userID, rateLimitAction)
		return nil, fmt.Errorf("failed to save video: %w", err)
	}
	video.User = *uploader

	bg := context.WithoutCancel(ctx)
	saved := *video
	s.runAsync(func() {
		s.notifyWatchers(bg, &saved)
		if err := s.index.IndexVideo(bg, &saved); err != nil {
			logging.Warn().Err(err).Str("video_id", saved.ID.String()).Msg("failed to index video")
		}
	})

	logging.Info().
		Str("video_id", video.ID.String()).
		Str("user_id", userID.String()).
		Int64("bytes", video.FileSize).
		Msg("video uploaded")
	return video, nil
}

// discardAsset deletes an asset no row points at. When the host refuses,
// the asset is handed to the orphan registry for the reconcile job.
func (s *videoService) discardAsset(ctx context.Context, o storage.Orphan) {
	err := s.media.DeleteAsset(ctx, o.PublicID, o.Kind)
	if err == nil {
		return
	}
	logging.Warn().Err(err).Str("public_id", o.PublicID).Msg("compensating delete failed, recording orphan")
	if err := s.orphans.Add(ctx, o); err != nil {
		logging.Error().Err(err).Str("public_id", o.PublicID).Msg("failed to record orphan asset")
	}
}

func (s *videoService) notifyWatchers(ctx context.Context, video *entity.Video) {
	watchers, err := s.watches.ListWatcherIDs(ctx, video.UserID)
	if err != nil {
		logging.Error().Err(err).Str("video_id", video.ID.String()).Msg("failed to list watchers")
		return
	}

	sender := video.UserID
	msg := fmt.Sprintf("New video from %s: %s", video.User.Username, video.Title)
	for _, watcherID := range watchers {
		n := &entity.Notification{
			UserID:   watcherID,
			SenderID: &sender,
			Type:     entity.NotificationNewVideo,
			Message:  msg,
		}
		n.SetReferent(entity.VideoReferent(video.ID))

		if err := s.notifications.Notify(ctx, n); err != nil {
			logging.Error().Err(err).Str("user_id", watcherID.String()).Msg("failed to send new video notification")
		}
	}
}

func (s *videoService) Update(ctx context.Context, id uuid.UUID, input videoDto.UpdateVideoInput) (*entity.Video, error) {
	video, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := s.clean(*input.Title)
		if title == "" {
			return nil, apperror.Wrap(apperror.ErrValidation, "title is required")
		}
		video.Title = title
	}
	if input.Description != nil {
		video.Description = s.clean(*input.Description)
	}
	if input.Category != nil {
		video.Category = *input.Category
	}
	if input.Visibility != nil {
		video.Visibility = *input.Visibility
	}

	if err := s.repo.Update(ctx, video); err != nil {
		return nil, err
	}

	saved := *video
	bg := context.WithoutCancel(ctx)
	s.runAsync(func() {
		if err := s.index.IndexVideo(bg, &saved); err != nil {
			logging.Warn().Err(err).Str("video_id", saved.ID.String()).Msg("failed to reindex video")
		}
	})
	return video, nil
}

func (s *videoService) Delete(ctx context.Context, id uuid.UUID) error {
	video, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	s.runAsync(func() {
		s.CleanupAssets(bg, video)
	})
	return nil
}

// Failures are logged or recorded as orphans, never returned.
func (s *videoService) CleanupAssets(ctx context.Context, video *entity.Video) {
	if video.PublicID != "" {
		s.discardAsset(ctx, storage.Orphan{PublicID: video.PublicID, Kind: storage.AssetVideo})
	}
	if video.ThumbnailURL != nil {
		if id, kind := storage.ParseDeliveryURL(*video.ThumbnailURL); id != "" && kind == storage.AssetImage {
			s.discardAsset(ctx, storage.Orphan{PublicID: id, Kind: kind})
		}
	}
	if err := s.index.DeleteVideo(ctx, video.ID); err != nil {
		logging.Warn().Err(err).Str("video_id", video.ID.String()).Msg("failed to remove video from index")
	}
}
