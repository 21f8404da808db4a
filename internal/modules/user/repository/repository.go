package repository

import (
	"context"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminQuota is how many of the earliest accounts are made admins.
const AdminQuota = 5

type UserRepository interface {
	// Create inserts user. IsAdmin is decided in the same transaction from
	// the current user count.
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByGitHubID(ctx context.Context, githubID string) (*entity.User, error)
	FindByUsernames(ctx context.Context, usernames []string) ([]entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string, except *uuid.UUID) (bool, error)
	Update(ctx context.Context, user *entity.User) error
	LinkGitHub(ctx context.Context, id uuid.UUID, githubID string) error
	SetCreator(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialise concurrent sign-ups so the quota cannot be overshot.
		if err := tx.Exec("LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&entity.User{}).Count(&count).Error; err != nil {
			return err
		}
		user.IsAdmin = count < AdminQuota

		return tx.Create(user).Error
	})
	return database.Translate(err, "user")
}

func (r *userRepository) findOne(ctx context.Context, query string, args ...any) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, database.Translate(err, "user")
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) FindByGitHubID(ctx context.Context, githubID string) (*entity.User, error) {
	return r.findOne(ctx, "github_id = ?", githubID)
}

func (r *userRepository) FindByUsernames(ctx context.Context, usernames []string) ([]entity.User, error) {
	if len(usernames) == 0 {
		return []entity.User{}, nil
	}
	var users []entity.User
	err := r.db.WithContext(ctx).
		Select("id", "username").
		Where("username IN ?", usernames).
		Find(&users).Error
	return users, err
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string, except *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&entity.User{}).Where("username = ?", username)
	if except != nil {
		q = q.Where("id <> ?", *except)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return database.Translate(r.db.WithContext(ctx).Save(user).Error, "user")
}

func (r *userRepository) LinkGitHub(ctx context.Context, id uuid.UUID, githubID string) error {
	return r.updateColumn(ctx, id, "github_id", githubID)
}

func (r *userRepository) SetCreator(ctx context.Context, id uuid.UUID) error {
	return r.updateColumn(ctx, id, "is_creator", true)
}

func (r *userRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return database.Translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return database.Translate(gorm.ErrRecordNotFound, "user")
	}
	return nil
}
