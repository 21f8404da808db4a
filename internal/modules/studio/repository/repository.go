package repository

import (
	"context"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	studioDto "github.com/Vampire-Chan/VideoVerse/internal/modules/studio/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudioRepository interface {
	// ListOwnVideos includes unlisted and private videos.
	ListOwnVideos(ctx context.Context, userID uuid.UUID) ([]studioDto.StudioVideo, error)
}

type studioRepository struct {
	db *gorm.DB
}

func NewStudioRepository(db *gorm.DB) StudioRepository {
	return &studioRepository{db: db}
}

func (r *studioRepository) ListOwnVideos(ctx context.Context, userID uuid.UUID) ([]studioDto.StudioVideo, error) {
	likes := r.db.Model(&entity.VideoReaction{}).
		Select("COUNT(*)").
		Where("video_reactions.video_id = videos.id AND video_reactions.type = ?", entity.ReactionLike)
	comments := r.db.Model(&entity.Comment{}).
		Select("COUNT(*)").
		Where("comments.video_id = videos.id")

	rows := []studioDto.StudioVideo{}
	err := r.db.WithContext(ctx).
		Table("videos").
		Select("videos.*, (?) AS likes, (?) AS comment_count", likes, comments).
		Where("videos.user_id = ?", userID).
		Order("videos.created_at DESC").
		Scan(&rows).Error
	return rows, err
}
