package repository

import (
	"testing"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	like, dislike := entity.ReactionLike, entity.ReactionDislike

	cases := []struct {
		name      string
		existing  *entity.ReactionType
		requested entity.ReactionType
		want      Action
	}{
		{"no reaction, like", nil, entity.ReactionLike, ActionInsert},
		{"no reaction, dislike", nil, entity.ReactionDislike, ActionInsert},
		{"like, like again", &like, entity.ReactionLike, ActionDelete},
		{"dislike, dislike again", &dislike, entity.ReactionDislike, ActionDelete},
		{"like, then dislike", &like, entity.ReactionDislike, ActionUpdate},
		{"dislike, then like", &dislike, entity.ReactionLike, ActionUpdate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.existing, tc.requested))
		})
	}
}
