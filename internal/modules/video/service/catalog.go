package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	search "github.com/Vampire-Chan/VideoVerse/internal/modules/search/service"
	videoDto "github.com/Vampire-Chan/VideoVerse/internal/modules/video/dto"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/google/uuid"
)

func (s *videoService) List(ctx context.Context, q dto.PageQuery) (*videoDto.VideoListResponse, error) {
	offset := q.Normalize()
	videos, total, err := s.repo.ListPublic(ctx, offset, q.Limit)
	if err != nil {
		return nil, err
	}
	if videos == nil {
		videos = []entity.Video{}
	}
	return &videoDto.VideoListResponse{
		Data: videos,
		Meta: dto.NewPaginationMeta(q, total),
	}, nil
}

// Search asks the index first and falls back to ILIKE when the index is
// unavailable.
func (s *videoService) Search(ctx context.Context, query string) ([]entity.Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Wrap(apperror.ErrValidation, "search query is required")
	}

	ids, err := s.index.Search(ctx, query, searchLimit)
	if err == nil {
		return s.repo.FindByIDs(ctx, ids)
	}
	if !errors.Is(err, search.ErrSearchDisabled) {
		logging.Warn().Err(err).Str("query", query).Msg("search index unavailable, falling back to sql")
	}

	videos, err := s.repo.SearchText(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	if videos == nil {
		videos = []entity.Video{}
	}
	return videos, nil
}

func (s *videoService) Suggestions(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	titles, err := s.repo.SuggestTitles(ctx, query, suggestionLimit)
	if err != nil {
		return nil, err
	}
	if titles == nil {
		titles = []string{}
	}
	return titles, nil
}

var errVideoNotFound = apperror.Wrap(apperror.ErrNotFound, "video not found")

// findVisible answers private videos with not-found unless viewer owns them.
func (s *videoService) findVisible(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*entity.Video, error) {
	video, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !video.VisibleTo(viewer) {
		return nil, errVideoNotFound
	}
	return video, nil
}

func (s *videoService) Get(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*videoDto.VideoDetail, error) {
	video, err := s.findVisible(ctx, id, viewer)
	if err != nil {
		return nil, err
	}

	summary, err := s.reactions.Summary(ctx, id, viewer)
	if err != nil {
		return nil, err
	}

	return &videoDto.VideoDetail{
		Video:        *video,
		Likes:        summary.Likes,
		Dislikes:     summary.Dislikes,
		UserReaction: summary.UserReaction,
	}, nil
}

func (s *videoService) ListByUser(ctx context.Context, userID uuid.UUID, viewer *uuid.UUID) ([]entity.Video, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	owner := viewer != nil && *viewer == userID
	videos, err := s.repo.ListByUser(ctx, userID, owner)
	if err != nil {
		return nil, err
	}
	if videos == nil {
		videos = []entity.Video{}
	}
	return videos, nil
}

func (s *videoService) RecordView(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (int64, error) {
	if _, err := s.findVisible(ctx, id, viewer); err != nil {
		return 0, err
	}
	return s.countView(ctx, id)
}

func (s *videoService) countView(ctx context.Context, id uuid.UUID) (int64, error) {
	views, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return 0, err
	}

	s.publisher.Publish(realtime.VideoRoom(id), realtime.Message{
		Event: realtime.EventViewCountUpdate,
		Data:  realtime.ViewCountPayload{VideoID: id, Views: views},
	})
	return views, nil
}

func (s *videoService) SignedURL(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (string, error) {
	video, err := s.findVisible(ctx, id, viewer)
	if err != nil {
		return "", err
	}
	if _, err := s.countView(ctx, id); err != nil {
		return "", err
	}
	return video.VideoURL, nil
}
