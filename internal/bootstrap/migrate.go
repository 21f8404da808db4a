// Package bootstrap prepares the database before the server starts.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migrate creates or alters the tables. Order matters: referenced tables
// come first so the foreign keys can be created.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Video{},
		&entity.VideoReaction{},
		&entity.Comment{},
		&entity.Watcher{},
		&entity.Notification{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// SeedAdmin creates a local admin account for development databases. It is
// a no-op when the email is already registered or no credentials are set.
func SeedAdmin(ctx context.Context, db *gorm.DB, seed AdminSeed) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}

	var existing entity.User
	err := db.WithContext(ctx).Where("email = ?", seed.Email).First(&existing).Error
	if err == nil {
		logging.Debug().Str("email", seed.Email).Msg("admin already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashed := string(hash)

	username := seed.Username
	if username == "" {
		username = "admin"
	}
	admin := entity.User{
		Username:     username,
		Email:        seed.Email,
		PasswordHash: &hashed,
		IsAdmin:      true,
		IsCreator:    true,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	logging.Info().Str("email", seed.Email).Msg("admin user seeded")
	return nil
}
