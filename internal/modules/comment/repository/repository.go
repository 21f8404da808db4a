package repository

import (
	"context"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	// FindByID loads the comment with its author's display fields.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	ListByVideo(ctx context.Context, videoID uuid.UUID) ([]entity.Comment, error)
	UpdateText(ctx context.Context, id uuid.UUID, text string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func author(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "avatar_url", "display_name")
}

func (r *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	err := r.db.WithContext(ctx).Omit("User", "Video", "Parent").Create(comment).Error
	return database.Translate(err, "comment")
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	err := r.db.WithContext(ctx).
		Preload("User", author).
		Where("id = ?", id).
		First(&comment).Error
	if err != nil {
		return nil, database.Translate(err, "comment")
	}
	return &comment, nil
}

func (r *commentRepository) ListByVideo(ctx context.Context, videoID uuid.UUID) ([]entity.Comment, error) {
	var comments []entity.Comment
	err := r.db.WithContext(ctx).
		Preload("User", author).
		Where("video_id = ?", videoID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	res := r.db.WithContext(ctx).Model(&entity.Comment{}).Where("id = ?", id).Update("text", text)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.Translate(gorm.ErrRecordNotFound, "comment")
	}
	return nil
}

// Delete removes the comment; replies go with it through the foreign key.
func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.Translate(gorm.ErrRecordNotFound, "comment")
	}
	return nil
}
