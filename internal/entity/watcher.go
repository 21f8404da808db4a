package entity

import (
	"time"

	"github.com/google/uuid"
)

// Watcher is a directed follow edge; the pair is the primary key.
type Watcher struct {
	WatcherID uuid.UUID `gorm:"type:uuid;primaryKey" json:"watcher_id"`
	Watcher   User      `gorm:"foreignKey:WatcherID;constraint:OnDelete:CASCADE" json:"-"`
	WatchedID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"watched_id"`
	Watched   User      `gorm:"foreignKey:WatchedID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
