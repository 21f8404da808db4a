package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationNewVideo NotificationType = "NEW_VIDEO"
	NotificationMention  NotificationType = "MENTION"
)

// ReferentKind tags what a notification's related entity id points at.
type ReferentKind string

const (
	ReferentVideo   ReferentKind = "video"
	ReferentComment ReferentKind = "comment"
)

// ReferentKinds lists every kind a resolver has to handle.
func ReferentKinds() []ReferentKind {
	return []ReferentKind{ReferentVideo, ReferentComment}
}

func (k ReferentKind) Valid() bool {
	for _, known := range ReferentKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Referent is the object a notification is about. There is no foreign key:
// the table depends on Kind.
type Referent struct {
	Kind ReferentKind
	ID   uuid.UUID
}

func VideoReferent(id uuid.UUID) *Referent   { return &Referent{Kind: ReferentVideo, ID: id} }
func CommentReferent(id uuid.UUID) *Referent { return &Referent{Kind: ReferentComment, ID: id} }

type Notification struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	User              *User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID          *uuid.UUID       `gorm:"type:uuid" json:"sender_id"`
	Sender            *User            `gorm:"foreignKey:SenderID;constraint:OnDelete:SET NULL" json:"sender,omitempty"`
	Type              NotificationType `gorm:"size:30;not null" json:"type"`
	Message           string           `gorm:"type:text;not null" json:"message"`
	IsRead            bool             `gorm:"not null;default:false" json:"is_read"`
	RelatedEntityID   *uuid.UUID       `gorm:"type:uuid" json:"related_entity_id"`
	RelatedEntityType *ReferentKind    `gorm:"size:20" json:"related_entity_type"`
	CreatedAt         time.Time        `gorm:"autoCreateTime;index:idx_notifications_user_created,priority:2" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	if n.RelatedEntityType != nil && !n.RelatedEntityType.Valid() {
		return fmt.Errorf("unknown referent kind %q", *n.RelatedEntityType)
	}
	return
}

// SetReferent stores r in the two loose columns.
func (n *Notification) SetReferent(r *Referent) {
	if r == nil {
		n.RelatedEntityID, n.RelatedEntityType = nil, nil
		return
	}
	id, kind := r.ID, r.Kind
	n.RelatedEntityID = &id
	n.RelatedEntityType = &kind
}

// Referent returns nil when the notification has no related entity.
func (n *Notification) Referent() *Referent {
	if n.RelatedEntityID == nil || n.RelatedEntityType == nil {
		return nil
	}
	return &Referent{Kind: *n.RelatedEntityType, ID: *n.RelatedEntityID}
}
