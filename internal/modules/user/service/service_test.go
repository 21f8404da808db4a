package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/modules/user/dto"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	commonDto "github.com/Vampire-Chan/VideoVerse/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileFixture struct {
	svc     ProfileService
	tokens  *TokenManager
	users   *testutil.Users
	videos  *testutil.Videos
	watches *testutil.Watches
	media   *testutil.Media

	alice, bob *entity.User
}

func newProfileFixture() *profileFixture {
	f := &profileFixture{
		alice:   &entity.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"},
		bob:     &entity.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com"},
		tokens:  NewTokenManager("test-secret", time.Hour),
		watches: testutil.NewWatches(),
		media:   testutil.NewMedia(),
	}
	f.users = testutil.NewUsers(f.alice, f.bob)
	f.videos = testutil.NewVideos(f.users)
	f.svc = NewProfileService(f.users, f.videos, f.watches, f.media, f.tokens)
	return f
}

func ptr(s string) *string { return &s }

func TestGetChannel(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()
	require.NoError(t, f.videos.Create(ctx, &entity.Video{UserID: f.alice.ID, Title: "public"}))
	require.NoError(t, f.videos.Create(ctx, &entity.Video{UserID: f.alice.ID, Title: "hidden", Visibility: entity.VisibilityPrivate}))
	require.NoError(t, f.watches.Create(ctx, f.bob.ID, f.alice.ID))

	channel, err := f.svc.GetChannel(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, channel.User.ID)
	require.Len(t, channel.Videos, 1)
	assert.Equal(t, "public", channel.Videos[0].Title)
	assert.EqualValues(t, 1, channel.WatcherCount)

	_, err = f.svc.GetChannel(ctx, "nobody")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	res, err := f.svc.UpdateProfile(ctx, f.alice.ID, dto.UpdateProfileInput{
		Username:    ptr("alicia"),
		DisplayName: ptr("Alicia <script>x</script>"),
		Links:       ptr(`[{"title":"site","url":"https://alicia.dev"}]`),
		DOB:         ptr("1990-04-01"),
	}, &commonDto.UploadFile{Reader: strings.NewReader("png"), FileName: "me"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "alicia", res.User.Username)
	require.NotNil(t, res.User.DisplayName)
	assert.Equal(t, "Alicia", *res.User.DisplayName)
	assert.Equal(t, entity.Links{{Title: "site", URL: "https://alicia.dev"}}, res.User.Links)
	require.NotNil(t, res.User.DOB)
	assert.Equal(t, 1990, res.User.DOB.Year())
	require.NotNil(t, res.User.AvatarURL)
	assert.Contains(t, *res.User.AvatarURL, "avatars/me")

	claims, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alicia", claims.Username)
	assert.Equal(t, res.User.AvatarURL, claims.AvatarURL)

	stored, err := f.users.FindByID(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", stored.Username)
}

func TestUpdateProfileRejects(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	_, err := f.svc.UpdateProfile(ctx, f.alice.ID, dto.UpdateProfileInput{Username: ptr("bob")}, nil, nil)
	assert.Equal(t, http.StatusConflict, apperror.MapErrorToStatus(err))

	// keeping one's own name is not a conflict
	_, err = f.svc.UpdateProfile(ctx, f.alice.ID, dto.UpdateProfileInput{Username: ptr("alice")}, nil, nil)
	assert.NoError(t, err)

	for _, input := range []dto.UpdateProfileInput{
		{Links: ptr(`not json`)},
		{Links: ptr(`[{"title":"x","url":"javascript:alert(1)"}]`)},
		{DOB: ptr("01/04/1990")},
		{DOB: ptr(time.Now().AddDate(1, 0, 0).Format(time.DateOnly))},
	} {
		_, err := f.svc.UpdateProfile(ctx, f.alice.ID, input, nil, nil)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	}
}

func TestActivateChannelReissuesToken(t *testing.T) {
	f := newProfileFixture()

	res, err := f.svc.ActivateChannel(context.Background(), f.bob.ID)
	require.NoError(t, err)
	assert.True(t, res.User.IsCreator)

	claims, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsCreator)

	_, err = f.svc.ActivateChannel(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
