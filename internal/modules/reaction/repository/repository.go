package repository

import (
	"context"
	"fmt"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counts is always computed from the reaction rows.
type Counts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

type ToggleResult struct {
	Counts
	UserReaction *entity.ReactionType `json:"user_reaction"`
}

type ReactionRepository interface {
	Toggle(ctx context.Context, userID, videoID uuid.UUID, requested entity.ReactionType) (*ToggleResult, error)
	Counts(ctx context.Context, videoID uuid.UUID) (Counts, error)
	UserReaction(ctx context.Context, userID, videoID uuid.UUID) (*entity.ReactionType, error)
}

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Toggle applies Decide inside one transaction. The caller's row is read
// FOR UPDATE; when there is none the insert tolerates a concurrent insert of
// the same pair and falls back to the locked row.
func (r *reactionRepository) Toggle(ctx context.Context, userID, videoID uuid.UUID, requested entity.ReactionType) (*ToggleResult, error) {
	var result ToggleResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var videos int64
		if err := tx.Model(&entity.Video{}).Where("id = ?", videoID).Count(&videos).Error; err != nil {
			return err
		}
		if videos == 0 {
			return database.Translate(gorm.ErrRecordNotFound, "video")
		}

		existing, err := lockReaction(tx, userID, videoID)
		if err != nil {
			return err
		}

		if existing == nil {
			row := entity.VideoReaction{UserID: userID, VideoID: videoID, Type: requested}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return database.Translate(res.Error, "reaction")
			}
			if res.RowsAffected == 1 {
				t := requested
				result.UserReaction = &t
				return countInto(tx, videoID, &result.Counts)
			}

			// Lost the race to a concurrent insert; act on the winner's row.
			existing, err = lockReaction(tx, userID, videoID)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("reaction changed concurrently: %w", apperror.ErrConflict)
			}
		}

		switch Decide(&existing.Type, requested) {
		case ActionDelete:
			if err := tx.Delete(existing).Error; err != nil {
				return err
			}
			result.UserReaction = nil
		case ActionUpdate:
			if err := tx.Model(existing).Update("type", requested).Error; err != nil {
				return err
			}
			t := requested
			result.UserReaction = &t
		}

		return countInto(tx, videoID, &result.Counts)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func lockReaction(tx *gorm.DB, userID, videoID uuid.UUID) (*entity.VideoReaction, error) {
	var rows []entity.VideoReaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func countInto(db *gorm.DB, videoID uuid.UUID, out *Counts) error {
	var rows []struct {
		Type  entity.ReactionType
		Count int64
	}
	err := db.Model(&entity.VideoReaction{}).
		Select("type, count(*) as count").
		Where("video_id = ?", videoID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	*out = Counts{}
	for _, row := range rows {
		switch row.Type {
		case entity.ReactionLike:
			out.Likes = row.Count
		case entity.ReactionDislike:
			out.Dislikes = row.Count
		}
	}
	return nil
}

func (r *reactionRepository) Counts(ctx context.Context, videoID uuid.UUID) (Counts, error) {
	var c Counts
	err := countInto(r.db.WithContext(ctx), videoID, &c)
	return c, err
}

func (r *reactionRepository) UserReaction(ctx context.Context, userID, videoID uuid.UUID) (*entity.ReactionType, error) {
	var types []entity.ReactionType
	err := r.db.WithContext(ctx).
		Model(&entity.VideoReaction{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Limit(1).
		Pluck("type", &types).Error
	if err != nil || len(types) == 0 {
		return nil, err
	}
	return &types[0], nil
}
