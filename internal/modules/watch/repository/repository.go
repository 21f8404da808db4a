package repository

import (
	"context"
	"errors"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WatchRepository interface {
	// Create returns apperror.ErrAlreadyWatching when the edge exists.
	Create(ctx context.Context, watcherID, watchedID uuid.UUID) error
	// Delete returns apperror.ErrNotWatching when there was no edge.
	Delete(ctx context.Context, watcherID, watchedID uuid.UUID) error
	Exists(ctx context.Context, watcherID, watchedID uuid.UUID) (bool, error)
	CountWatchers(ctx context.Context, watchedID uuid.UUID) (int64, error)
	ListWatcherIDs(ctx context.Context, watchedID uuid.UUID) ([]uuid.UUID, error)
}

type watchRepository struct {
	db *gorm.DB
}

func NewWatchRepository(db *gorm.DB) WatchRepository {
	return &watchRepository{db: db}
}

func (r *watchRepository) Create(ctx context.Context, watcherID, watchedID uuid.UUID) error {
	err := r.db.WithContext(ctx).Create(&entity.Watcher{WatcherID: watcherID, WatchedID: watchedID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrAlreadyWatching
	}
	return database.Translate(err, "user")
}

func (r *watchRepository) Delete(ctx context.Context, watcherID, watchedID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("watcher_id = ? AND watched_id = ?", watcherID, watchedID).
		Delete(&entity.Watcher{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotWatching
	}
	return nil
}

func (r *watchRepository) Exists(ctx context.Context, watcherID, watchedID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Watcher{}).
		Where("watcher_id = ? AND watched_id = ?", watcherID, watchedID).
		Count(&count).Error
	return count > 0, err
}

func (r *watchRepository) CountWatchers(ctx context.Context, watchedID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Watcher{}).Where("watched_id = ?", watchedID).Count(&count).Error
	return count, err
}

func (r *watchRepository) ListWatcherIDs(ctx context.Context, watchedID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&entity.Watcher{}).
		Where("watched_id = ?", watchedID).
		Pluck("watcher_id", &ids).Error
	return ids, err
}
