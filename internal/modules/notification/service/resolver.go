package service

import (
	"context"
	"fmt"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/pkg/apperror"
	"github.com/google/uuid"
)

// LookupFunc loads the object behind one referent kind.
type LookupFunc func(ctx context.Context, id uuid.UUID) (any, error)

// Resolver dispatches a referent to the lookup for its kind.
type Resolver struct {
	lookups map[entity.ReferentKind]LookupFunc
}

// NewResolver fails unless every kind in entity.ReferentKinds has a lookup.
func NewResolver(lookups map[entity.ReferentKind]LookupFunc) (*Resolver, error) {
	for _, kind := range entity.ReferentKinds() {
		if lookups[kind] == nil {
			return nil, fmt.Errorf("no lookup registered for referent kind %q", kind)
		}
	}
	return &Resolver{lookups: lookups}, nil
}

func (r *Resolver) Resolve(ctx context.Context, ref entity.Referent) (any, error) {
	lookup, ok := r.lookups[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown referent kind %q: %w", ref.Kind, apperror.ErrInvalidInput)
	}
	return lookup(ctx, ref.ID)
}
