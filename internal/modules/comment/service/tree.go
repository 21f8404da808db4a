package service

import (
	"bytes"
	"sort"

	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/google/uuid"
)

// Node is a comment with its direct replies.
type Node struct {
	entity.Comment
	Replies []*Node `json:"replies"`
}

// BuildTree nests a flat comment list by parent id. Comments whose parent is
// absent from flat, or whose ancestry loops, become roots, so every comment
// appears exactly once. Siblings are ordered by creation time, then id.
func BuildTree(flat []entity.Comment) []*Node {
	nodes := make(map[uuid.UUID]*Node, len(flat))
	order := make([]*Node, 0, len(flat))
	for _, c := range flat {
		if _, dup := nodes[c.ID]; dup {
			continue
		}
		n := &Node{Comment: c, Replies: []*Node{}}
		nodes[c.ID] = n
		order = append(order, n)
	}

	roots := make([]*Node, 0)
	for _, n := range order {
		if n.ParentID == nil || !anchored(n, nodes) {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*n.ParentID]
		if !ok {
			roots = append(roots, n)
			continue
		}
		parent.Replies = append(parent.Replies, n)
	}

	sortSiblings(roots)
	return roots
}

// anchored reports whether following parent links from n ends without a loop.
func anchored(n *Node, nodes map[uuid.UUID]*Node) bool {
	seen := map[uuid.UUID]bool{n.ID: true}
	cur := n
	for cur.ParentID != nil {
		parent, ok := nodes[*cur.ParentID]
		if !ok {
			return true
		}
		if seen[parent.ID] {
			return false
		}
		seen[parent.ID] = true
		cur = parent
	}
	return true
}

func sortSiblings(list []*Node) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
	for _, n := range list {
		sortSiblings(n.Replies)
	}
}
