package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	commentDto "github.com/Vampire-Chan/VideoVerse/internal/modules/comment/dto"
	notification "github.com/Vampire-Chan/VideoVerse/internal/modules/notification/service"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *commentService
	users    *testutil.Users
	videos   *testutil.Videos
	comments *testutil.Comments
	notifs   *testutil.Notifications
	rec      *testutil.Recorder

	alice, bob, carol *entity.User
	video             *entity.Video
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		alice: &entity.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"},
		bob:   &entity.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com"},
		carol: &entity.User{ID: uuid.New(), Username: "carol", Email: "carol@example.com"},
		rec:   &testutil.Recorder{},
	}
	f.users = testutil.NewUsers(f.alice, f.bob, f.carol)
	f.video = &entity.Video{ID: uuid.New(), UserID: f.carol.ID, Title: "Sunset timelapse", Visibility: entity.VisibilityPublic}
	f.videos = testutil.NewVideos(f.users, f.video)
	f.comments = testutil.NewComments(f.users)
	f.notifs = testutil.NewNotifications()

	resolver, err := notification.NewResolver(map[entity.ReferentKind]notification.LookupFunc{
		entity.ReferentVideo:   func(ctx context.Context, id uuid.UUID) (any, error) { return f.videos.FindByID(ctx, id) },
		entity.ReferentComment: func(ctx context.Context, id uuid.UUID) (any, error) { return f.comments.FindByID(ctx, id) },
	})
	require.NoError(t, err)
	notifier := notification.NewNotificationService(f.notifs, f.rec, resolver)

	f.svc = NewCommentService(f.comments, f.videos, f.users, notifier, f.rec, nil, 0).(*commentService)
	f.svc.runAsync = testutil.Sync
	return f
}

func TestCreateCommentNotifiesMentionedUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.alice.ID, f.video.ID, commentDto.CreateCommentInput{
		Text: "great shot @bob, cc @ghost and @alice and @bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.User.Username)

	all := f.notifs.All()
	require.Len(t, all, 1, "self mention and unknown user are skipped, duplicates collapse")

	n := all[0]
	assert.Equal(t, f.bob.ID, n.UserID)
	assert.Equal(t, entity.NotificationMention, n.Type)
	require.NotNil(t, n.SenderID)
	assert.Equal(t, f.alice.ID, *n.SenderID)
	assert.Equal(t, entity.CommentReferent(created.ID), n.Referent())
	assert.Contains(t, n.Message, "@alice mentioned you")

	var rooms []string
	for _, p := range f.rec.Messages() {
		rooms = append(rooms, p.Room+" "+p.Msg.Event)
	}
	assert.Contains(t, rooms, realtime.VideoRoom(f.video.ID)+" "+realtime.EventNewComment)
	assert.Contains(t, rooms, realtime.UserRoom(f.bob.ID)+" "+realtime.EventNewNotification)
}

func TestCreateReplyRequiresParentOnSameVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &entity.Video{ID: uuid.New(), UserID: f.carol.ID, Title: "Other"}
	require.NoError(t, f.videos.Create(ctx, other))

	parent, err := f.svc.Create(ctx, f.bob.ID, other.ID, commentDto.CreateCommentInput{Text: "first"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.alice.ID, f.video.ID, commentDto.CreateCommentInput{Text: "reply", ParentID: &parent.ID})
	assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))

	missing := uuid.New()
	_, err = f.svc.Create(ctx, f.alice.ID, f.video.ID, commentDto.CreateCommentInput{Text: "reply", ParentID: &missing})
	assert.Equal(t, http.StatusBadRequest, apperror.MapErrorToStatus(err))

	reply, err := f.svc.Create(ctx, f.alice.ID, other.ID, commentDto.CreateCommentInput{Text: "reply", ParentID: &parent.ID})
	require.NoError(t, err)

	tree, err := f.svc.GetTree(ctx, other.ID, nil)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, reply.ID, tree[0].Replies[0].ID)
}

func TestCreateCommentOnMissingVideo(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.alice.ID, uuid.New(), commentDto.CreateCommentInput{Text: "hello"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCommentTextIsSanitized(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), f.alice.ID, f.video.ID, commentDto.CreateCommentInput{
		Text: "<b>bold</b> move<script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.Equal(t, "bold move", created.Text)

	_, err = f.svc.Create(context.Background(), f.alice.ID, f.video.ID, commentDto.CreateCommentInput{Text: "<i></i>  "})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCommentEncodedMarkupIsNotRevived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.alice.ID, f.video.ID, commentDto.CreateCommentInput{
		Text: "nice &lt;img src=x onerror=alert(1)&gt; shot",
	})
	require.NoError(t, err)
	assert.NotContains(t, created.Text, "<img")
	assert.Equal(t, "nice  shot", created.Text)

	created, err = f.svc.Create(ctx, f.alice.ID, f.video.ID, commentDto.CreateCommentInput{
		Text: "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;",
	})
	require.NoError(t, err)
	assert.NotContains(t, created.Text, "<")

	_, err = f.svc.Create(ctx, f.alice.ID, f.video.ID, commentDto.CreateCommentInput{Text: "&lt;b&gt;&lt;/b&gt;"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdateAndDeleteComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.alice.ID, f.video.ID, commentDto.CreateCommentInput{Text: "typo"})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, created.ID, commentDto.UpdateCommentInput{Text: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Text)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), apperror.ErrNotFound)
}

func TestPrivateVideoCommentsHiddenFromOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	private := &entity.Video{ID: uuid.New(), UserID: f.carol.ID, Title: "Draft", Visibility: entity.VisibilityPrivate}
	require.NoError(t, f.videos.Create(ctx, private))

	_, err := f.svc.Create(ctx, f.alice.ID, private.ID, commentDto.CreateCommentInput{Text: "sneaky"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.Create(ctx, f.carol.ID, private.ID, commentDto.CreateCommentInput{Text: "note to self"})
	require.NoError(t, err)

	_, err = f.svc.GetTree(ctx, private.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.svc.GetTree(ctx, private.ID, &f.alice.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	tree, err := f.svc.GetTree(ctx, private.ID, &f.carol.ID)
	require.NoError(t, err)
	assert.Len(t, tree, 1)
}
