package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	commentDto "github.com/Vampire-Chan/VideoVerse/internal/modules/comment/dto"
	commentRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/comment/repository"
	notification "github.com/Vampire-Chan/VideoVerse/internal/modules/notification/service"
	userRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/user/repository"
	videoRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/video/repository"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const rateLimitAction = "comment"

type CommentService interface {
	GetTree(ctx context.Context, videoID uuid.UUID, viewer *uuid.UUID) ([]*Node, error)
	Create(ctx context.Context, userID, videoID uuid.UUID, input commentDto.CreateCommentInput) (*entity.Comment, error)
	Update(ctx context.Context, id uuid.UUID, input commentDto.UpdateCommentInput) (*entity.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type commentService struct {
	repo          commentRepo.CommentRepository
	videos        videoRepo.VideoRepository
	users         userRepo.UserRepository
	notifications notification.NotificationService
	publisher     realtime.Publisher
	limiter       *ratelimiter.Limiter
	window        time.Duration
	sanitizer     *bluemonday.Policy

	runAsync func(func())
}

func NewCommentService(
	repo commentRepo.CommentRepository,
	videos videoRepo.VideoRepository,
	users userRepo.UserRepository,
	notifications notification.NotificationService,
	publisher realtime.Publisher,
	limiter *ratelimiter.Limiter,
	window time.Duration,
) CommentService {
	return &commentService{
		repo:          repo,
		videos:        videos,
		users:         users,
		notifications: notifications,
		publisher:     publisher,
		limiter:       limiter,
		window:        window,
		sanitizer:     bluemonday.StrictPolicy(),
		runAsync:      func(fn func()) { go fn() },
	}
}

var errVideoNotFound = apperror.Wrap(apperror.ErrNotFound, "video not found")

func (s *commentService) findVideo(ctx context.Context, videoID uuid.UUID, viewer *uuid.UUID) (*entity.Video, error) {
	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.VisibleTo(viewer) {
		return nil, errVideoNotFound
	}
	return video, nil
}

func (s *commentService) GetTree(ctx context.Context, videoID uuid.UUID, viewer *uuid.UUID) ([]*Node, error) {
	if _, err := s.findVideo(ctx, videoID, viewer); err != nil {
		return nil, err
	}
	flat, err := s.repo.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return BuildTree(flat), nil
}

func (s *commentService) cleanText(text string) (string, error) {
	// decode first so entity-encoded markup is stripped too; the result stays escaped
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(html.UnescapeString(text)))
	if cleaned == "" {
		return "", apperror.Wrap(apperror.ErrValidation, "comment text is required")
	}
	return cleaned, nil
}

func (s *commentService) Create(ctx context.Context, userID, videoID uuid.UUID, input commentDto.CreateCommentInput) (*entity.Comment, error) {
	text, err := s.cleanText(input.Text)
	if err != nil {
		return nil, err
	}

	video, err := s.findVideo(ctx, videoID, &userID)
	if err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, *input.ParentID)
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Wrap(apperror.ErrBadRequest, "parent comment not found")
		}
		if err != nil {
			return nil, err
		}
		if parent.VideoID != videoID {
			return nil, apperror.Wrap(apperror.ErrBadRequest, "parent comment belongs to another video")
		}
	}

	if err := s.limiter.Acquire(ctx, userID, rateLimitAction, s.window); err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		UserID:   userID,
		VideoID:  videoID,
		ParentID: input.ParentID,
		Text:     text,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		_ = s.limiter.Release(ctx, userID, rateLimitAction)
		return nil, err
	}

	full, err := s.repo.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.VideoRoom(videoID), realtime.Message{
		Event: realtime.EventNewComment,
		Data:  full,
	})

	mentions := ParseMentions(text)
	if len(mentions) > 0 {
		author, title := full.User.Username, video.Title
		bg := context.WithoutCancel(ctx)
		s.runAsync(func() {
			s.notifyMentions(bg, full, author, title, mentions)
		})
	}

	return full, nil
}

// notifyMentions sends one MENTION per resolvable username. Unknown names
// and the author mentioning themselves are skipped.
func (s *commentService) notifyMentions(ctx context.Context, comment *entity.Comment, author, videoTitle string, usernames []string) {
	users, err := s.users.FindByUsernames(ctx, usernames)
	if err != nil {
		logging.Error().Err(err).Str("comment_id", comment.ID.String()).Msg("failed to resolve mentions")
		return
	}

	senderID := comment.UserID
	for _, u := range users {
		if u.ID == comment.UserID {
			continue
		}
		n := &entity.Notification{
			UserID:   u.ID,
			SenderID: &senderID,
			Type:     entity.NotificationMention,
			Message:  fmt.Sprintf("@%s mentioned you in a comment on %s", author, videoTitle),
		}
		n.SetReferent(entity.CommentReferent(comment.ID))

		if err := s.notifications.Notify(ctx, n); err != nil {
			logging.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to send mention notification")
		}
	}
}

func (s *commentService) Update(ctx context.Context, id uuid.UUID, input commentDto.UpdateCommentInput) (*entity.Comment, error) {
	text, err := s.cleanText(input.Text)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateText(ctx, id, text); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *commentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
