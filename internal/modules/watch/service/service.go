package service

import (
	"context"

	userRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/user/repository"
	"github.com/Vampire-Chan/VideoVerse/internal/modules/watch/repository"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
)

var errWatchSelf = apperror.Wrap(apperror.ErrInvalidOperation, "you cannot watch yourself")

type WatchService interface {
	Watch(ctx context.Context, watcherID, watchedID uuid.UUID) error
	Unwatch(ctx context.Context, watcherID, watchedID uuid.UUID) error
	IsWatching(ctx context.Context, watcherID, watchedID uuid.UUID) (bool, error)
}

type watchService struct {
	repo  repository.WatchRepository
	users userRepo.UserRepository
}

func NewWatchService(repo repository.WatchRepository, users userRepo.UserRepository) WatchService {
	return &watchService{repo: repo, users: users}
}

func (s *watchService) Watch(ctx context.Context, watcherID, watchedID uuid.UUID) error {
	if watcherID == watchedID {
		return errWatchSelf
	}
	if _, err := s.users.FindByID(ctx, watchedID); err != nil {
		return err
	}
	return s.repo.Create(ctx, watcherID, watchedID)
}

func (s *watchService) Unwatch(ctx context.Context, watcherID, watchedID uuid.UUID) error {
	return s.repo.Delete(ctx, watcherID, watchedID)
}

func (s *watchService) IsWatching(ctx context.Context, watcherID, watchedID uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, watcherID, watchedID)
}
