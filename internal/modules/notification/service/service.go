package service

import (
	"context"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/metrics"
	notifRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/notification/repository"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
)

type ReferentResponse struct {
	Kind   entity.ReferentKind `json:"kind"`
	ID     uuid.UUID           `json:"id"`
	Object any                 `json:"object"`
}

type NotificationService interface {
	// Notify stores n and pushes it to the recipient's room.
	Notify(ctx context.Context, n *entity.Notification) error
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Referent(ctx context.Context, id, userID uuid.UUID) (*ReferentResponse, error)
}

type notificationService struct {
	repo      notifRepo.NotificationRepository
	publisher realtime.Publisher
	resolver  *Resolver
}

func NewNotificationService(repo notifRepo.NotificationRepository, publisher realtime.Publisher, resolver *Resolver) NotificationService {
	return &notificationService{
		repo:      repo,
		publisher: publisher,
		resolver:  resolver,
	}
}

func (s *notificationService) Notify(ctx context.Context, n *entity.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	s.publisher.Publish(realtime.UserRoom(n.UserID), realtime.Message{
		Event: realtime.EventNewNotification,
		Data:  n,
	})
	metrics.NotificationsSent.WithLabelValues(string(n.Type)).Inc()
	logging.Debug().
		Str("user_id", n.UserID.String()).
		Str("type", string(n.Type)).
		Msg("notification sent")
	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) Referent(ctx context.Context, id, userID uuid.UUID) (*ReferentResponse, error) {
	n, err := s.repo.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	ref := n.Referent()
	if ref == nil {
		return nil, apperror.Wrap(apperror.ErrNotFound, "notification has no related entity")
	}

	obj, err := s.resolver.Resolve(ctx, *ref)
	if err != nil {
		return nil, err
	}
	return &ReferentResponse{Kind: ref.Kind, ID: ref.ID, Object: obj}, nil
}
