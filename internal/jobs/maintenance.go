package jobs

import (
	"context"
	"errors"

	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/metrics"
	"github.com/Vampire-Chan/VideoVerse/internal/session"
	"github.com/Vampire-Chan/VideoVerse/pkg/storage"
)

const orphanBatch = 100

// OrphanReconciler retries host deletes that failed during compensation.
type OrphanReconciler struct {
	orphans storage.OrphanRegistry
	media   storage.MediaStorage
}

func NewOrphanReconciler(orphans storage.OrphanRegistry, media storage.MediaStorage) *OrphanReconciler {
	return &OrphanReconciler{orphans: orphans, media: media}
}

func (j *OrphanReconciler) Name() string     { return "orphan-asset-reconcile" }
func (j *OrphanReconciler) Schedule() string { return "@every 30m" }

// Run drains one batch. Assets the host still refuses go back in the set
// for the next run.
func (j *OrphanReconciler) Run(ctx context.Context) error {
	batch, err := j.orphans.Pop(ctx, orphanBatch)
	if err != nil {
		return err
	}

	var failed []error
	deleted := 0
	for _, o := range batch {
		if err := j.media.DeleteAsset(ctx, o.PublicID, o.Kind); err != nil {
			failed = append(failed, err)
			if err := j.orphans.Add(ctx, o); err != nil {
				logging.Error().Err(err).Str("public_id", o.PublicID).Msg("failed to requeue orphan asset")
			}
			continue
		}
		deleted++
		metrics.OrphanAssetsReconciled.Inc()
	}

	if len(batch) > 0 {
		logging.Info().Int("deleted", deleted).Int("requeued", len(failed)).Msg("orphan assets reconciled")
	}
	return errors.Join(failed...)
}

type SessionCleanup struct {
	store session.Store
}

func NewSessionCleanup(store session.Store) *SessionCleanup {
	return &SessionCleanup{store: store}
}

func (j *SessionCleanup) Name() string     { return "session-cleanup" }
func (j *SessionCleanup) Schedule() string { return "@hourly" }

func (j *SessionCleanup) Run(ctx context.Context) error {
	n, err := j.store.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logging.Info().Int("removed", n).Msg("expired sessions removed")
	}
	return nil
}
