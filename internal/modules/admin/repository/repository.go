package repository

import (
	"context"
	"fmt"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminRepository interface {
	ListUsers(ctx context.Context, offset, limit int) ([]entity.User, int64, error)
	ListVideos(ctx context.Context, offset, limit int) ([]entity.Video, int64, error)
	ListComments(ctx context.Context, offset, limit int) ([]entity.Comment, int64, error)
	// DeleteUser removes the user and everything hanging off them in one
	// transaction and returns the user and their deleted videos.
	DeleteUser(ctx context.Context, id uuid.UUID) (*entity.User, []entity.Video, error)
	DeleteVideo(ctx context.Context, id uuid.UUID) (*entity.Video, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

type adminRepository struct {
	db *gorm.DB

	// beforeStep runs ahead of every cascade step; tests use it to fail one.
	beforeStep func(step string) error
}

func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) step(tx *gorm.DB, name string, fn func(tx *gorm.DB) error) error {
	if r.beforeStep != nil {
		if err := r.beforeStep(name); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func paged[T any](ctx context.Context, db *gorm.DB, offset, limit int, preload ...string) ([]T, int64, error) {
	var total int64
	if err := db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit)
	for _, p := range preload {
		q = q.Preload(p, func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url", "display_name")
		})
	}
	items := []T{}
	err := q.Find(&items).Error
	return items, total, err
}

func (r *adminRepository) ListUsers(ctx context.Context, offset, limit int) ([]entity.User, int64, error) {
	return paged[entity.User](ctx, r.db, offset, limit)
}

func (r *adminRepository) ListVideos(ctx context.Context, offset, limit int) ([]entity.Video, int64, error) {
	return paged[entity.Video](ctx, r.db, offset, limit, "User")
}

func (r *adminRepository) ListComments(ctx context.Context, offset, limit int) ([]entity.Comment, int64, error) {
	return paged[entity.Comment](ctx, r.db, offset, limit, "User")
}

// DeleteUser runs the cascade explicitly, children first, so one failed
// step rolls back all of them.
func (r *adminRepository) DeleteUser(ctx context.Context, id uuid.UUID) (*entity.User, []entity.Video, error) {
	var (
		user   entity.User
		videos []entity.Video
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			return database.Translate(err, "user")
		}
		if err := tx.Where("user_id = ?", id).Find(&videos).Error; err != nil {
			return err
		}
		ownVideos := func() *gorm.DB {
			return tx.Model(&entity.Video{}).Select("id").Where("user_id = ?", id)
		}

		steps := []struct {
			name string
			fn   func(tx *gorm.DB) error
		}{
			{"comments", func(tx *gorm.DB) error {
				return tx.Where("user_id = ? OR video_id IN (?)", id, ownVideos()).Delete(&entity.Comment{}).Error
			}},
			{"reactions", func(tx *gorm.DB) error {
				return tx.Where("user_id = ? OR video_id IN (?)", id, ownVideos()).Delete(&entity.VideoReaction{}).Error
			}},
			{"watchers", func(tx *gorm.DB) error {
				return tx.Where("watcher_id = ? OR watched_id = ?", id, id).Delete(&entity.Watcher{}).Error
			}},
			{"notifications", func(tx *gorm.DB) error {
				return tx.Where("user_id = ? OR (related_entity_type = ? AND related_entity_id IN (?))",
					id, entity.ReferentVideo, ownVideos()).Delete(&entity.Notification{}).Error
			}},
			{"videos", func(tx *gorm.DB) error {
				return tx.Where("user_id = ?", id).Delete(&entity.Video{}).Error
			}},
			{"user", func(tx *gorm.DB) error {
				return tx.Where("id = ?", id).Delete(&entity.User{}).Error
			}},
		}
		for _, s := range steps {
			if err := r.step(tx, s.name, s.fn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &user, videos, nil
}

func (r *adminRepository) DeleteVideo(ctx context.Context, id uuid.UUID) (*entity.Video, error) {
	var video entity.Video

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&video).Error; err != nil {
			return database.Translate(err, "video")
		}

		if err := r.step(tx, "comments", func(tx *gorm.DB) error {
			return tx.Where("video_id = ?", id).Delete(&entity.Comment{}).Error
		}); err != nil {
			return err
		}
		if err := r.step(tx, "reactions", func(tx *gorm.DB) error {
			return tx.Where("video_id = ?", id).Delete(&entity.VideoReaction{}).Error
		}); err != nil {
			return err
		}
		return r.step(tx, "videos", func(tx *gorm.DB) error {
			return tx.Where("id = ?", id).Delete(&entity.Video{}).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *adminRepository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.Translate(gorm.ErrRecordNotFound, "comment")
	}
	return nil
}
