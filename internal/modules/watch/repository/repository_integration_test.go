//go:build integration

package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/testutil"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchEdgeIsUnique(t *testing.T) {
	db := testutil.Postgres(t)
	repo := NewWatchRepository(db)
	ctx := context.Background()

	alice := entity.User{Username: "alice", Email: "alice@example.com"}
	carol := entity.User{Username: "carol", Email: "carol@example.com"}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&carol).Error)

	var created, conflicts atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Create(ctx, alice.ID, carol.ID); err != nil {
				assert.ErrorIs(t, err, apperror.ErrAlreadyWatching)
				conflicts.Add(1)
				return
			}
			created.Add(1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, 7, conflicts.Load())

	n, err := repo.CountWatchers(ctx, carol.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ids, err := repo.ListWatcherIDs(ctx, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, ids[0])

	require.NoError(t, repo.Delete(ctx, alice.ID, carol.ID))
	assert.ErrorIs(t, repo.Delete(ctx, alice.ID, carol.ID), apperror.ErrNotWatching)

	watching, err := repo.Exists(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, watching)
}
