// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/polutek/tingtong/pkg/slice"
)

// # Comment Tree

// Node is one entry of a [Tree]: a comment and its direct replies.
type Node struct {
	Comment Comment            `json:"comment"`
	Replies map[string]Comment `json:"replies"` // child id -> copy of the child
	New     bool               `json:"new"`
}

// Tree indexes every threaded comment of an entity by id.
//
// Roots are the nodes whose comment has no parent. Every reply appears twice:
// as a copy in its immediate parent's Replies, and as its own node so its own
// replies have somewhere to go. Nesting is therefore one level deep per node
// and a reply-of-a-reply is found in the reply's node, not inside the root.
type Tree map[string]*Node

// Build threads comments given in any order.
//
// Comments are applied oldest first (ties broken by id) so that parents are
// indexed before their replies. A reply whose parent is not in the input is
// skipped with a warning on logger (which may be nil) and returned in
// orphans. Nil entries are ignored. Build never mutates its input and holds
// no shared state.
func Build(comments []*Comment, logger *slog.Logger) (Tree, []*Comment) {
	ordered := slices.DeleteFunc(slices.Clone(comments), func(comment *Comment) bool {
		return comment == nil
	})
	slices.SortStableFunc(ordered, func(a, b *Comment) int {
		if order := a.CreatedAt.Compare(b.CreatedAt); order != 0 {
			return order
		}
		return cmp.Compare(a.ID, b.ID)
	})

	tree := make(Tree, len(ordered))
	var orphans []*Comment

	for _, comment := range ordered {
		if !tree.Add(comment, false) {
			orphans = append(orphans, comment)
			if logger != nil {
				logger.Warn("orphaned_reply_skipped",
					slog.String("comment_id", comment.ID),
					slog.String("parent_id", *comment.ParentID),
					slog.String("entity_id", comment.EntityID),
				)
			}
		}
	}

	return tree, orphans
}

/*
Add applies one comment to the tree.

Rules:
 1. A reply whose parent is not indexed is rejected and Add returns false.
 2. A reply is copied, tagged with isNew, into its parent's Replies.
 3. The comment's own node is inserted or refreshed; replies it already
    accumulated are preserved.
*/
func (tree Tree) Add(comment *Comment, isNew bool) bool {
	if comment.ParentID != nil {
		parent, found := tree[*comment.ParentID]
		if !found {
			return false
		}

		reply := *comment
		reply.New = isNew
		parent.Replies[comment.ID] = reply
	}

	replies := map[string]Comment{}
	if existing, found := tree[comment.ID]; found {
		replies = existing.Replies
	}

	tree[comment.ID] = &Node{
		Comment: *comment,
		Replies: replies,
		New:     isNew,
	}
	return true
}

// RootIDs returns the ids of top-level nodes, oldest first.
func (tree Tree) RootIDs() []string {
	roots := make([]*Node, 0, len(tree))
	for _, node := range tree {
		if node.Comment.IsRoot() {
			roots = append(roots, node)
		}
	}

	slices.SortFunc(roots, func(a, b *Node) int {
		if order := a.Comment.CreatedAt.Compare(b.Comment.CreatedAt); order != 0 {
			return order
		}
		return cmp.Compare(a.Comment.ID, b.Comment.ID)
	})

	return slice.Map(roots, func(node *Node) string { return node.Comment.ID })
}
