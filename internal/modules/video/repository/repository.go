package repository

import (
	"context"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VideoRepository interface {
	Create(ctx context.Context, video *entity.Video) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Video, error)
	ListPublic(ctx context.Context, offset, limit int) ([]entity.Video, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]entity.Video, error)
	SearchText(ctx context.Context, query string, limit int) ([]entity.Video, error)
	SuggestTitles(ctx context.Context, query string, limit int) ([]string, error)
	// IncrementViews returns the new count.
	IncrementViews(ctx context.Context, id uuid.UUID) (int64, error)
	Update(ctx context.Context, video *entity.Video) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type videoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func preloadUploader(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "avatar_url", "display_name")
}

func (r *videoRepository) Create(ctx context.Context, video *entity.Video) error {
	return database.Translate(r.db.WithContext(ctx).Omit("User").Create(video).Error, "video")
}

func (r *videoRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error) {
	var video entity.Video
	err := r.db.WithContext(ctx).
		Preload("User", preloadUploader).
		Where("id = ?", id).
		First(&video).Error
	if err != nil {
		return nil, database.Translate(err, "video")
	}
	return &video, nil
}

// FindByIDs keeps the order of ids.
func (r *videoRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Video, error) {
	if len(ids) == 0 {
		return []entity.Video{}, nil
	}

	var videos []entity.Video
	if err := r.db.WithContext(ctx).
		Preload("User", preloadUploader).
		Where("id IN ? AND visibility = ?", ids, entity.VisibilityPublic).
		Find(&videos).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]entity.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	ordered := make([]entity.Video, 0, len(videos))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}

func (r *videoRepository) ListPublic(ctx context.Context, offset, limit int) ([]entity.Video, int64, error) {
	public := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&entity.Video{}).Where("visibility = ?", entity.VisibilityPublic)
	}

	var total int64
	if err := public().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []entity.Video
	err := public().
		Preload("User", preloadUploader).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&videos).Error
	return videos, total, err
}

func (r *videoRepository) ListByUser(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]entity.Video, error) {
	q := r.db.WithContext(ctx).Preload("User", preloadUploader).Where("user_id = ?", userID)
	if !includeHidden {
		q = q.Where("visibility = ?", entity.VisibilityPublic)
	}

	var videos []entity.Video
	err := q.Order("created_at DESC").Find(&videos).Error
	return videos, err
}

func (r *videoRepository) SearchText(ctx context.Context, query string, limit int) ([]entity.Video, error) {
	pattern := "%" + query + "%"
	var videos []entity.Video
	err := r.db.WithContext(ctx).
		Preload("User", preloadUploader).
		Where("visibility = ?", entity.VisibilityPublic).
		Where("title ILIKE ? OR description ILIKE ?", pattern, pattern).
		Order("views DESC, created_at DESC").
		Limit(limit).
		Find(&videos).Error
	return videos, err
}

func (r *videoRepository) SuggestTitles(ctx context.Context, query string, limit int) ([]string, error) {
	var titles []string
	err := r.db.WithContext(ctx).
		Model(&entity.Video{}).
		Where("visibility = ? AND title ILIKE ?", entity.VisibilityPublic, "%"+query+"%").
		Order("views DESC").
		Limit(limit).
		Pluck("title", &titles).Error
	return titles, err
}

func (r *videoRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	var video entity.Video
	res := r.db.WithContext(ctx).
		Model(&video).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "views"}}}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, database.Translate(gorm.ErrRecordNotFound, "video")
	}
	return video.Views, nil
}

func (r *videoRepository) Update(ctx context.Context, video *entity.Video) error {
	return database.Translate(r.db.WithContext(ctx).Omit("User").Save(video).Error, "video")
}

func (r *videoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Video{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.Translate(gorm.ErrRecordNotFound, "video")
	}
	return nil
}
