package reaction

import (
	"context"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/metrics"
	reactionRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/repository"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
)

type Summary struct {
	reactionRepo.Counts
	UserReaction *entity.ReactionType
}

type ReactionService interface {
	Toggle(ctx context.Context, userID, videoID uuid.UUID, requested entity.ReactionType) (*reactionRepo.ToggleResult, error)
	// Summary returns counts and, when viewer is set, the viewer's own reaction.
	Summary(ctx context.Context, videoID uuid.UUID, viewer *uuid.UUID) (*Summary, error)
}

// VideoLookup is the slice of the video repository reactions need.
type VideoLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error)
}

type reactionService struct {
	repo      reactionRepo.ReactionRepository
	videos    VideoLookup
	publisher realtime.Publisher
}

func NewReactionService(repo reactionRepo.ReactionRepository, videos VideoLookup, publisher realtime.Publisher) ReactionService {
	return &reactionService{repo: repo, videos: videos, publisher: publisher}
}

func (s *reactionService) Toggle(ctx context.Context, userID, videoID uuid.UUID, requested entity.ReactionType) (*reactionRepo.ToggleResult, error) {
	if !requested.Valid() {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "unknown reaction type")
	}

	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.VisibleTo(&userID) {
		return nil, apperror.Wrap(apperror.ErrNotFound, "video not found")
	}

	result, err := s.repo.Toggle(ctx, userID, videoID, requested)
	if err != nil {
		return nil, err
	}

	outcome := "cleared"
	if result.UserReaction != nil {
		outcome = "set"
	}
	metrics.ReactionToggles.WithLabelValues(string(requested), outcome).Inc()

	s.publisher.Publish(realtime.VideoRoom(videoID), realtime.Message{
		Event: realtime.EventReactionUpdate,
		Data: realtime.ReactionPayload{
			VideoID:  videoID,
			Likes:    result.Likes,
			Dislikes: result.Dislikes,
		},
	})
	logging.Debug().
		Str("video_id", videoID.String()).
		Str("requested", string(requested)).
		Int64("likes", result.Likes).
		Int64("dislikes", result.Dislikes).
		Msg("reaction toggled")

	return result, nil
}

func (s *reactionService) Summary(ctx context.Context, videoID uuid.UUID, viewer *uuid.UUID) (*Summary, error) {
	counts, err := s.repo.Counts(ctx, videoID)
	if err != nil {
		return nil, err
	}

	out := &Summary{Counts: counts}
	if viewer != nil {
		out.UserReaction, err = s.repo.UserReaction(ctx, *viewer, videoID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
