package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// VideoReaction is unique per (user, video).
type VideoReaction struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_video_reactions_user_video,priority:1" json:"user_id"`
	User      User         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	VideoID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_video_reactions_user_video,priority:2;index" json:"video_id"`
	Video     Video        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Type      ReactionType `gorm:"size:10;not null" json:"type"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *VideoReaction) TableName() string {
	return "video_reactions"
}

func (r *VideoReaction) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
