package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VisibilityPublic   = "Public"
	VisibilityUnlisted = "Unlisted"
	VisibilityPrivate  = "Private"
)

type Video struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User         User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	VideoURL     string    `gorm:"type:text;not null" json:"video_url"`
	ThumbnailURL *string   `gorm:"type:text" json:"thumbnail_url"`
	PublicID     string    `gorm:"size:255" json:"-"`
	FileSize     int64     `json:"file_size"`
	Duration     float64   `json:"duration"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Format       string    `gorm:"size:20" json:"format"`
	Views        int64     `gorm:"not null;default:0" json:"views"`
	Visibility   string    `gorm:"size:20;not null;default:'Public'" json:"visibility"`
	Restrictions string    `gorm:"size:50;not null;default:'None'" json:"restrictions"`
	Category     string    `gorm:"size:50;not null;default:'All'" json:"category"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// VisibleTo hides private videos from everyone but their owner. Unlisted
// videos are reachable by id.
func (v *Video) VisibleTo(viewer *uuid.UUID) bool {
	if v.Visibility != VisibilityPrivate {
		return true
	}
	return viewer != nil && *viewer == v.UserID
}
