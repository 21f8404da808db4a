package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/session"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanReconcilerDeletesAndRequeues(t *testing.T) {
	ctx := context.Background()
	media := testutil.NewMedia()
	orphans := &testutil.Orphans{}
	require.NoError(t, orphans.Add(ctx, storage.Orphan{PublicID: "videoverse/a", Kind: storage.AssetVideo}))
	require.NoError(t, orphans.Add(ctx, storage.Orphan{PublicID: "videoverse/thumbnails/b", Kind: storage.AssetImage}))

	job := NewOrphanReconciler(orphans, media)

	media.DeleteErr = errors.New("host down")
	err := job.Run(ctx)
	assert.Error(t, err)
	assert.Equal(t, 2, orphans.Len(), "failed deletes go back in the set")

	media.DeleteErr = nil
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 0, orphans.Len())
	assert.Contains(t, media.Deleted, "videoverse/a")
	assert.Contains(t, media.Deleted, "videoverse/thumbnails/b")

	require.NoError(t, job.Run(ctx), "empty set is a no-op")
}

func TestSessionCleanupRemovesExpired(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	live, err := session.New(uuid.New(), "local", time.Hour)
	require.NoError(t, err)
	expired, err := session.New(uuid.New(), "local", time.Hour)
	require.NoError(t, err)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Create(ctx, live))
	require.NoError(t, store.Create(ctx, expired))

	require.NoError(t, NewSessionCleanup(store).Run(ctx))

	_, err = store.Get(ctx, live.ID)
	assert.NoError(t, err)
	_, err = store.Get(ctx, expired.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

type countingJob struct {
	name, spec string
	runs       int
	err        error
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.spec }
func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestSchedulerRegistersAndRunsByName(t *testing.T) {
	s := NewScheduler()
	hourly := &countingJob{name: "hourly", spec: "@hourly"}
	manual := &countingJob{name: "manual", err: errors.New("boom")}

	require.NoError(t, s.Register(hourly))
	require.NoError(t, s.Register(manual))
	assert.Error(t, s.Register(&countingJob{name: "broken", spec: "not a schedule"}))

	assert.Equal(t, []string{"hourly", "manual"}, s.Names())

	require.NoError(t, s.RunByName(context.Background(), "hourly"))
	assert.Equal(t, 1, hourly.runs)

	assert.EqualError(t, s.RunByName(context.Background(), "manual"), "boom")
	assert.Error(t, s.RunByName(context.Background(), "missing"))
}
