package service

import (
	"context"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/metrics"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, videos *testutil.Videos) *Resolver {
	t.Helper()
	r, err := NewResolver(map[entity.ReferentKind]LookupFunc{
		entity.ReferentVideo:   func(ctx context.Context, id uuid.UUID) (any, error) { return videos.FindByID(ctx, id) },
		entity.ReferentComment: func(context.Context, uuid.UUID) (any, error) { return "comment", nil },
	})
	require.NoError(t, err)
	return r
}

func TestNewResolverRequiresEveryKind(t *testing.T) {
	_, err := NewResolver(map[entity.ReferentKind]LookupFunc{
		entity.ReferentVideo: func(context.Context, uuid.UUID) (any, error) { return nil, nil },
	})
	assert.ErrorContains(t, err, string(entity.ReferentComment))
}

func TestResolveUnknownKind(t *testing.T) {
	r := newResolver(t, testutil.NewVideos(nil))
	_, err := r.Resolve(context.Background(), entity.Referent{Kind: "playlist", ID: uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestNotifyStoresAndPushes(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewNotifications()
	rec := &testutil.Recorder{}
	video := &entity.Video{ID: uuid.New(), Title: "clip"}
	svc := NewNotificationService(repo, rec, newResolver(t, testutil.NewVideos(nil, video)))

	recipient := uuid.New()
	sent := promtest.ToFloat64(metrics.NotificationsSent.WithLabelValues(string(entity.NotificationNewVideo)))
	n := &entity.Notification{UserID: recipient, Type: entity.NotificationNewVideo, Message: "hi"}
	n.SetReferent(entity.VideoReferent(video.ID))
	require.NoError(t, svc.Notify(ctx, n))
	assert.Equal(t, sent+1, promtest.ToFloat64(metrics.NotificationsSent.WithLabelValues(string(entity.NotificationNewVideo))))

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, realtime.UserRoom(recipient), msgs[0].Room)
	assert.Equal(t, realtime.EventNewNotification, msgs[0].Msg.Event)

	count, err := svc.UnreadCount(ctx, recipient)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	ref, err := svc.Referent(ctx, n.ID, recipient)
	require.NoError(t, err)
	assert.Equal(t, entity.ReferentVideo, ref.Kind)
	got, ok := ref.Object.(*entity.Video)
	require.True(t, ok)
	assert.Equal(t, "clip", got.Title)

	// another user cannot read or mark it
	_, err = svc.Referent(ctx, n.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, svc.MarkAsRead(ctx, n.ID, uuid.New()), apperror.ErrNotFound)

	require.NoError(t, svc.MarkAsRead(ctx, n.ID, recipient))
	count, err = svc.UnreadCount(ctx, recipient)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewNotifications()
	svc := NewNotificationService(repo, realtime.Nop{}, newResolver(t, testutil.NewVideos(nil)))

	user := uuid.New()
	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, svc.Notify(ctx, &entity.Notification{UserID: user, Type: entity.NotificationMention, Message: msg}))
	}

	list, err := svc.GetNotifications(ctx, user, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].Message)

	list, err = svc.GetNotifications(ctx, user, 0, -5)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	updated, err := svc.MarkAllAsRead(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	_, err = svc.Referent(ctx, list[0].ID, user)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
