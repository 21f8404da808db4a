package repository

import "github.com/Vampire-Chan/VideoVerse/internal/entity"

type Action int

const (
	ActionInsert Action = iota
	ActionDelete
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	case ActionUpdate:
		return "update"
	}
	return "unknown"
}

// Decide picks what a toggle does given the caller's current reaction:
// none inserts, the same type removes, the other type switches.
func Decide(existing *entity.ReactionType, requested entity.ReactionType) Action {
	switch {
	case existing == nil:
		return ActionInsert
	case *existing == requested:
		return ActionDelete
	default:
		return ActionUpdate
	}
}
