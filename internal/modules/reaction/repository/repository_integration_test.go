//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	reactionRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/repository"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedVideo(t *testing.T, db *gorm.DB, users int) (*entity.Video, []entity.User) {
	t.Helper()
	owner := entity.User{Username: "owner", Email: "owner@example.com"}
	require.NoError(t, db.Create(&owner).Error)

	video := entity.Video{UserID: owner.ID, Title: "clip", VideoURL: "https://media.test/clip.mp4"}
	require.NoError(t, db.Create(&video).Error)

	out := make([]entity.User, users)
	for i := range out {
		out[i] = entity.User{Username: "u" + uuid.NewString()[:8], Email: uuid.NewString() + "@example.com"}
		require.NoError(t, db.Create(&out[i]).Error)
	}
	return &video, out
}

func countRows(t *testing.T, db *gorm.DB, videoID uuid.UUID, kind entity.ReactionType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&entity.VideoReaction{}).Where("video_id = ? AND type = ?", videoID, kind).Count(&n).Error)
	return n
}

func TestToggleSequence(t *testing.T) {
	db := testutil.Postgres(t)
	repo := reactionRepo.NewReactionRepository(db)
	ctx := context.Background()
	video, users := seedVideo(t, db, 1)
	u := users[0].ID

	res, err := repo.Toggle(ctx, u, video.ID, entity.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, reactionRepo.Counts{Likes: 1}, res.Counts)
	require.NotNil(t, res.UserReaction)
	assert.Equal(t, entity.ReactionLike, *res.UserReaction)

	res, err = repo.Toggle(ctx, u, video.ID, entity.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, reactionRepo.Counts{Dislikes: 1}, res.Counts)

	res, err = repo.Toggle(ctx, u, video.ID, entity.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, reactionRepo.Counts{}, res.Counts)
	assert.Nil(t, res.UserReaction)

	_, err = repo.Toggle(ctx, u, uuid.New(), entity.ReactionLike)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestConcurrentTogglesKeepCountsEqualToRows(t *testing.T) {
	db := testutil.Postgres(t)
	repo := reactionRepo.NewReactionRepository(db)
	ctx := context.Background()
	video, users := seedVideo(t, db, 12)

	var wg sync.WaitGroup
	for i, u := range users {
		kind := entity.ReactionLike
		if i%3 == 0 {
			kind = entity.ReactionDislike
		}
		// the same user fires twice at once; exactly one insert may win and
		// the other toggles it off again
		for range 2 {
			wg.Add(1)
			go func(id uuid.UUID, kind entity.ReactionType) {
				defer wg.Done()
				_, err := repo.Toggle(ctx, id, video.ID, kind)
				assert.NoError(t, err)
			}(u.ID, kind)
		}
	}
	wg.Wait()

	counts, err := repo.Counts(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, countRows(t, db, video.ID, entity.ReactionLike), counts.Likes)
	assert.Equal(t, countRows(t, db, video.ID, entity.ReactionDislike), counts.Dislikes)
	assert.Zero(t, counts.Likes+counts.Dislikes, "every user toggled on then off")

	var perUser []struct {
		UserID uuid.UUID
		N      int64
	}
	require.NoError(t, db.Model(&entity.VideoReaction{}).
		Select("user_id, count(*) AS n").Group("user_id").Having("count(*) > 1").Scan(&perUser).Error)
	assert.Empty(t, perUser)
}
