//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type world struct {
	carol, bob entity.User
	video      entity.Video
	other      entity.Video
}

// seed builds carol with one video that bob reacted to, commented on and
// was notified about, plus bob's own video that carol commented on.
func seed(t *testing.T, db *gorm.DB) *world {
	t.Helper()
	w := &world{
		carol: entity.User{Username: "carol", Email: "carol@example.com", IsCreator: true},
		bob:   entity.User{Username: "bob", Email: "bob@example.com", IsCreator: true},
	}
	require.NoError(t, db.Create(&w.carol).Error)
	require.NoError(t, db.Create(&w.bob).Error)

	w.video = entity.Video{UserID: w.carol.ID, Title: "carol's", VideoURL: "https://media.test/a.mp4"}
	w.other = entity.Video{UserID: w.bob.ID, Title: "bob's", VideoURL: "https://media.test/b.mp4"}
	require.NoError(t, db.Create(&w.video).Error)
	require.NoError(t, db.Create(&w.other).Error)

	parent := entity.Comment{UserID: w.bob.ID, VideoID: w.video.ID, Text: "nice"}
	require.NoError(t, db.Create(&parent).Error)
	require.NoError(t, db.Create(&entity.Comment{UserID: w.carol.ID, VideoID: w.video.ID, ParentID: &parent.ID, Text: "thanks"}).Error)
	require.NoError(t, db.Create(&entity.Comment{UserID: w.carol.ID, VideoID: w.other.ID, Text: "hi bob"}).Error)

	require.NoError(t, db.Create(&entity.VideoReaction{UserID: w.bob.ID, VideoID: w.video.ID, Type: entity.ReactionLike}).Error)
	require.NoError(t, db.Create(&entity.VideoReaction{UserID: w.carol.ID, VideoID: w.other.ID, Type: entity.ReactionDislike}).Error)

	require.NoError(t, db.Create(&entity.Watcher{WatcherID: w.bob.ID, WatchedID: w.carol.ID}).Error)
	require.NoError(t, db.Create(&entity.Watcher{WatcherID: w.carol.ID, WatchedID: w.bob.ID}).Error)

	sender := w.carol.ID
	n := entity.Notification{UserID: w.bob.ID, SenderID: &sender, Type: entity.NotificationNewVideo, Message: "New video"}
	n.SetReferent(entity.VideoReferent(w.video.ID))
	require.NoError(t, db.Create(&n).Error)
	require.NoError(t, db.Create(&entity.Notification{UserID: w.carol.ID, Type: entity.NotificationMention, Message: "mention"}).Error)
	return w
}

func count(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestDeleteUserCascades(t *testing.T) {
	db := testutil.Postgres(t)
	repo := NewAdminRepository(db)
	w := seed(t, db)

	user, videos, err := repo.DeleteUser(context.Background(), w.carol.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	require.Len(t, videos, 1)
	assert.Equal(t, w.video.ID, videos[0].ID)

	assert.Zero(t, count(t, db, &entity.User{}, "id = ?", w.carol.ID))
	assert.Zero(t, count(t, db, &entity.Video{}, "user_id = ?", w.carol.ID))
	assert.Zero(t, count(t, db, &entity.Comment{}, ""), "carol's comments and every comment on her video")
	assert.Zero(t, count(t, db, &entity.VideoReaction{}, ""))
	assert.Zero(t, count(t, db, &entity.Watcher{}, ""))
	assert.Zero(t, count(t, db, &entity.Notification{}, ""), "her inbox and bob's notice about her video")

	assert.EqualValues(t, 1, count(t, db, &entity.Video{}, "id = ?", w.other.ID), "bob's video survives")

	_, _, err = repo.DeleteUser(context.Background(), w.carol.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteUserRollsBackOnFailure(t *testing.T) {
	db := testutil.Postgres(t)
	repo := NewAdminRepository(db).(*adminRepository)
	w := seed(t, db)

	boom := errors.New("injected")
	repo.beforeStep = func(step string) error {
		if step == "videos" {
			return boom
		}
		return nil
	}

	_, _, err := repo.DeleteUser(context.Background(), w.carol.ID)
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "videos")

	assert.EqualValues(t, 1, count(t, db, &entity.User{}, "id = ?", w.carol.ID))
	assert.EqualValues(t, 3, count(t, db, &entity.Comment{}, ""))
	assert.EqualValues(t, 2, count(t, db, &entity.VideoReaction{}, ""))
	assert.EqualValues(t, 2, count(t, db, &entity.Watcher{}, ""))
	assert.EqualValues(t, 2, count(t, db, &entity.Notification{}, ""))
}

func TestDeleteVideoAndComment(t *testing.T) {
	db := testutil.Postgres(t)
	repo := NewAdminRepository(db)
	ctx := context.Background()
	w := seed(t, db)

	var root entity.Comment
	require.NoError(t, db.Where("video_id = ? AND parent_id IS NULL", w.video.ID).First(&root).Error)
	require.NoError(t, repo.DeleteComment(ctx, root.ID))
	assert.Zero(t, count(t, db, &entity.Comment{}, "video_id = ?", w.video.ID), "reply goes with its parent")
	assert.ErrorIs(t, repo.DeleteComment(ctx, root.ID), apperror.ErrNotFound)

	deleted, err := repo.DeleteVideo(ctx, w.other.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob's", deleted.Title)
	assert.Zero(t, count(t, db, &entity.Comment{}, "video_id = ?", w.other.ID))
	assert.Zero(t, count(t, db, &entity.VideoReaction{}, "video_id = ?", w.other.ID))

	_, err = repo.DeleteVideo(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListsArePaged(t *testing.T) {
	db := testutil.Postgres(t)
	repo := NewAdminRepository(db)
	seed(t, db)

	users, total, err := repo.ListUsers(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 1)

	videos, total, err := repo.ListVideos(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.NotEmpty(t, videos[0].User.Username)
}
