package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash *string    `gorm:"size:255" json:"-"`
	AvatarURL    *string    `gorm:"type:text" json:"avatar_url"`
	BannerURL    *string    `gorm:"type:text" json:"banner_url"`
	Description  *string    `gorm:"type:text" json:"description"`
	Links        Links      `gorm:"type:jsonb;default:'[]'" json:"links"`
	DisplayName  *string    `gorm:"size:100" json:"display_name"`
	Gender       *string    `gorm:"size:30" json:"gender"`
	DOB          *time.Time `gorm:"type:date" json:"dob"`
	GitHubID     *string    `gorm:"column:github_id;size:100;uniqueIndex" json:"-"`
	IsCreator    bool       `gorm:"not null;default:false" json:"is_creator"`
	IsAdmin      bool       `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Name prefers the display name.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}

type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Links is stored as a jsonb array.
type Links []Link

func (l Links) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *Links) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = Links{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("links: unsupported scan type")
	}
	return json.Unmarshal(raw, l)
}
