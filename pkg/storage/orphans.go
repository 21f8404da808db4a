package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/redis/go-redis/v9"
)

const orphanSetKey = "orphan_assets"

// Orphan is a hosted asset that no database row references any more.
type Orphan struct {
	PublicID string
	Kind     AssetKind
}

func (o Orphan) member() string {
	return string(o.Kind) + ":" + o.PublicID
}

func parseOrphan(member string) (Orphan, bool) {
	kind, id, ok := strings.Cut(member, ":")
	if !ok || id == "" || (AssetKind(kind) != AssetVideo && AssetKind(kind) != AssetImage) {
		return Orphan{}, false
	}
	return Orphan{PublicID: id, Kind: AssetKind(kind)}, true
}

// OrphanRegistry remembers assets whose compensating delete failed so a
// background job can retry.
type OrphanRegistry interface {
	Add(ctx context.Context, o Orphan) error
	// Pop removes and returns up to max orphans.
	Pop(ctx context.Context, max int) ([]Orphan, error)
}

type redisOrphans struct {
	rdb *redis.Client
}

func NewRedisOrphans(rdb *redis.Client) OrphanRegistry {
	return &redisOrphans{rdb: rdb}
}

func (r *redisOrphans) Add(ctx context.Context, o Orphan) error {
	if err := r.rdb.SAdd(ctx, orphanSetKey, o.member()).Err(); err != nil {
		return fmt.Errorf("failed to record orphan asset: %w", err)
	}
	return nil
}

func (r *redisOrphans) Pop(ctx context.Context, max int) ([]Orphan, error) {
	members, err := r.rdb.SPopN(ctx, orphanSetKey, int64(max)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Orphan, 0, len(members))
	for _, m := range members {
		if o, ok := parseOrphan(m); ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// LogOrphans is used without Redis: orphans are logged for manual cleanup.
type LogOrphans struct{}

func (LogOrphans) Add(_ context.Context, o Orphan) error {
	logging.Error().
		Str("public_id", o.PublicID).
		Str("kind", string(o.Kind)).
		Msg("orphaned media asset needs manual cleanup")
	return nil
}

func (LogOrphans) Pop(context.Context, int) ([]Orphan, error) {
	return nil, nil
}
