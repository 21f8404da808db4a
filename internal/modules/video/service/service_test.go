package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	notification "github.com/Vampire-Chan/VideoVerse/internal/modules/notification/service"
	reaction "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/service"
	videoDto "github.com/Vampire-Chan/VideoVerse/internal/modules/video/dto"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/Vampire-Chan/VideoVerse/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc       *videoService
	users     *testutil.Users
	videos    *testutil.Videos
	watches   *testutil.Watches
	reactions *testutil.Reactions
	notifs    *testutil.Notifications
	index     *testutil.Index
	media     *testutil.Media
	orphans   *testutil.Orphans
	rec       *testutil.Recorder

	creator, alice, bob *entity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		creator: &entity.User{ID: uuid.New(), Username: "carol", Email: "carol@example.com", IsCreator: true},
		alice:   &entity.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"},
		bob:     &entity.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com"},
		rec:     &testutil.Recorder{},
		orphans: &testutil.Orphans{},
	}
	f.users = testutil.NewUsers(f.creator, f.alice, f.bob)
	f.videos = testutil.NewVideos(f.users)
	f.watches = testutil.NewWatches()
	f.reactions = testutil.NewReactions(f.videos)
	f.notifs = testutil.NewNotifications()
	f.index = testutil.NewIndex()
	f.media = testutil.NewMedia()

	resolver, err := notification.NewResolver(map[entity.ReferentKind]notification.LookupFunc{
		entity.ReferentVideo:   func(ctx context.Context, id uuid.UUID) (any, error) { return f.videos.FindByID(ctx, id) },
		entity.ReferentComment: func(context.Context, uuid.UUID) (any, error) { return nil, apperror.ErrNotFound },
	})
	require.NoError(t, err)
	notifier := notification.NewNotificationService(f.notifs, f.rec, resolver)

	f.svc = NewVideoService(
		f.videos, f.users, f.watches,
		reaction.NewReactionService(f.reactions, f.videos, f.rec),
		notifier, f.index, f.media, f.orphans, f.rec, nil,
		Options{Folder: "videoverse"},
	).(*videoService)
	f.svc.runAsync = testutil.Sync
	return f
}

func (f *fixture) upload(t *testing.T, title string) *entity.Video {
	t.Helper()
	v, err := f.svc.Upload(context.Background(), f.creator.ID,
		videoDto.UploadVideoInput{Title: title, Description: "desc"},
		dto.UploadFile{Reader: strings.NewReader("frames"), FileName: "clip.mp4"},
		nil)
	require.NoError(t, err)
	return v
}

func TestUploadNotifiesEveryWatcher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.watches.Create(ctx, f.alice.ID, f.creator.ID))
	require.NoError(t, f.watches.Create(ctx, f.bob.ID, f.creator.ID))

	v := f.upload(t, "Launch day")
	assert.Equal(t, "videoverse/clip", v.PublicID)
	assert.Equal(t, entity.VisibilityPublic, v.Visibility)
	require.NotNil(t, v.ThumbnailURL)
	assert.True(t, strings.HasSuffix(*v.ThumbnailURL, ".jpg"))

	all := f.notifs.All()
	require.Len(t, all, 2)
	recipients := map[uuid.UUID]bool{}
	for _, n := range all {
		recipients[n.UserID] = true
		assert.Equal(t, entity.NotificationNewVideo, n.Type)
		assert.Equal(t, "New video from carol: Launch day", n.Message)
		assert.Equal(t, entity.VideoReferent(v.ID), n.Referent())
	}
	assert.True(t, recipients[f.alice.ID])
	assert.True(t, recipients[f.bob.ID])
	assert.True(t, f.index.Has(v.ID))
}

func TestUploadHostFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.media.FailWith = fmt.Errorf("upload_video: timeout: %w", apperror.ErrUpstream)

	_, err := f.svc.Upload(context.Background(), f.creator.ID,
		videoDto.UploadVideoInput{Title: "x"},
		dto.UploadFile{Reader: strings.NewReader("frames"), FileName: "clip.mp4"}, nil)
	assert.ErrorIs(t, err, apperror.ErrUpstream)
	assert.Zero(t, f.videos.Count())
}

func TestUploadInsertFailureDeletesAsset(t *testing.T) {
	f := newFixture(t)
	f.videos.FailOn = "Create"

	_, err := f.svc.Upload(context.Background(), f.creator.ID,
		videoDto.UploadVideoInput{Title: "x"},
		dto.UploadFile{Reader: strings.NewReader("frames"), FileName: "clip.mp4"}, nil)
	require.Error(t, err)

	assert.Equal(t, []string{"videoverse/clip"}, f.media.Deleted)
	assert.Empty(t, f.media.Assets)
	assert.Zero(t, f.orphans.Len())
}

func TestUploadInsertFailureRecordsOrphanWhenDeleteFails(t *testing.T) {
	f := newFixture(t)
	f.videos.FailOn = "Create"
	f.media.DeleteErr = errors.New("host down")

	_, err := f.svc.Upload(context.Background(), f.creator.ID,
		videoDto.UploadVideoInput{Title: "x"},
		dto.UploadFile{Reader: strings.NewReader("frames"), FileName: "clip.mp4"}, nil)
	require.Error(t, err)

	require.Equal(t, 1, f.orphans.Len())
	assert.Equal(t, storage.Orphan{PublicID: "videoverse/clip", Kind: storage.AssetVideo}, f.orphans.Set[0])
}

func TestSearchFallsBackToSQL(t *testing.T) {
	f := newFixture(t)
	v := f.upload(t, "Cooking pasta")

	found, err := f.svc.Search(context.Background(), "pasta")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, v.ID, found[0].ID)

	f.index.Err = errors.New("connection refused")
	found, err = f.svc.Search(context.Background(), "PASTA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 2, f.index.Queries)

	_, err = f.svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGetIncludesCountsAndOwnReaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.upload(t, "Reactions")

	_, err := f.reactions.Toggle(ctx, f.alice.ID, v.ID, entity.ReactionLike)
	require.NoError(t, err)
	_, err = f.reactions.Toggle(ctx, f.bob.ID, v.ID, entity.ReactionDislike)
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, v.ID, &f.alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, detail.Likes)
	assert.EqualValues(t, 1, detail.Dislikes)
	require.NotNil(t, detail.UserReaction)
	assert.Equal(t, entity.ReactionLike, *detail.UserReaction)

	anon, err := f.svc.Get(ctx, v.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, anon.UserReaction)
}

func TestPrivateVideoVisibleOnlyToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v, err := f.svc.Upload(ctx, f.creator.ID,
		videoDto.UploadVideoInput{Title: "Secret", Visibility: entity.VisibilityPrivate},
		dto.UploadFile{Reader: strings.NewReader("frames"), FileName: "clip.mp4"}, nil)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, v.ID, &f.alice.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.svc.Get(ctx, v.ID, &f.creator.ID)
	assert.NoError(t, err)

	_, err = f.svc.RecordView(ctx, v.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.svc.SignedURL(ctx, v.ID, &f.alice.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.svc.reactions.Toggle(ctx, f.alice.ID, v.ID, entity.ReactionLike)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	views, err := f.svc.RecordView(ctx, v.ID, &f.creator.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, views)

	list, err := f.svc.ListByUser(ctx, f.creator.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.svc.ListByUser(ctx, f.creator.ID, &f.creator.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.False(t, f.index.Has(v.ID))
}

func TestRecordViewBroadcastsCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.upload(t, "Views")

	views, err := f.svc.RecordView(ctx, v.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, views)

	url, err := f.svc.SignedURL(ctx, v.ID, &f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, v.VideoURL, url)

	msgs := f.rec.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, realtime.VideoRoom(v.ID), last.Room)
	assert.Equal(t, realtime.EventViewCountUpdate, last.Msg.Event)
	assert.Equal(t, realtime.ViewCountPayload{VideoID: v.ID, Views: 2}, last.Msg.Data)

	_, err = f.svc.RecordView(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateAndDeleteVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.upload(t, "Draft")

	private := entity.VisibilityPrivate
	title := "<b>Final</b> cut"
	updated, err := f.svc.Update(ctx, v.ID, videoDto.UpdateVideoInput{Title: &title, Visibility: &private})
	require.NoError(t, err)
	assert.Equal(t, "Final cut", updated.Title)

	encoded := "&lt;img src=x onerror=alert(1)&gt;Encore"
	updated, err = f.svc.Update(ctx, v.ID, videoDto.UpdateVideoInput{Title: &encoded})
	require.NoError(t, err)
	assert.Equal(t, "Encore", updated.Title)
	assert.False(t, f.index.Has(v.ID))

	require.NoError(t, f.svc.Delete(ctx, v.ID))
	assert.Contains(t, f.media.Deleted, "videoverse/clip")
	assert.Zero(t, f.videos.Count())
	assert.ErrorIs(t, f.svc.Delete(ctx, v.ID), apperror.ErrNotFound)
}
