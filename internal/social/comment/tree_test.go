// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment_test

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polutek/tingtong/internal/social/comment"
	"github.com/polutek/tingtong/pkg/pointer"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func mk(id string, parent *string, minutes int) *comment.Comment {
	return &comment.Comment{
		ID:        id,
		EntityID:  "E1",
		UserID:    "user-" + id,
		ParentID:  parent,
		Content:   "comment " + id,
		CreatedAt: at(minutes),
	}
}

// stripNew removes the transient flag so two trees can be compared structurally.
func stripNew(tree comment.Tree) comment.Tree {
	out := comment.Tree{}
	for id, node := range tree {
		replies := map[string]comment.Comment{}
		for replyID, reply := range node.Replies {
			reply.New = false
			replies[replyID] = reply
		}
		c := node.Comment
		c.New = false
		out[id] = &comment.Node{Comment: c, Replies: replies}
	}
	return out
}

/*
TestBuild_Scenario covers the reference thread: a root, its reply, and a
reply whose parent is not part of the input.
*/
func TestBuild_Scenario(t *testing.T) {
	comments := []*comment.Comment{
		mk("1", nil, 0),
		mk("2", pointer.To("1"), 1),
		mk("3", pointer.To("99"), 2),
	}

	tree, orphans := comment.Build(comments, nil)

	require.Len(t, tree, 2)
	require.Contains(t, tree, "1")
	require.Contains(t, tree, "2")
	assert.NotContains(t, tree, "3")

	assert.Equal(t, "1", tree["1"].Comment.ID)
	require.Len(t, tree["1"].Replies, 1)
	assert.Equal(t, "2", tree["1"].Replies["2"].ID)
	assert.Empty(t, tree["2"].Replies)

	require.Len(t, orphans, 1)
	assert.Equal(t, "3", orphans[0].ID)
	assert.Equal(t, []string{"1"}, tree.RootIDs())
}

/*
TestBuild_OrderIndependent verifies that reversed or shuffled input yields the
same tree, since comments are applied oldest first.
*/
func TestBuild_OrderIndependent(t *testing.T) {
	chronological := []*comment.Comment{
		mk("a", nil, 0),
		mk("b", pointer.To("a"), 1),
		mk("c", nil, 2),
		mk("d", pointer.To("c"), 3),
		mk("e", pointer.To("a"), 4),
	}

	reversed := slices.Clone(chronological)
	slices.Reverse(reversed)

	shuffled := []*comment.Comment{chronological[3], chronological[0], chronological[4], chronological[2], chronological[1]}

	expected, orphans := comment.Build(chronological, nil)
	require.Empty(t, orphans)

	fromReversed, orphans := comment.Build(reversed, nil)
	require.Empty(t, orphans)
	assert.Equal(t, expected, fromReversed)

	fromShuffled, _ := comment.Build(shuffled, nil)
	assert.Equal(t, expected, fromShuffled)

	assert.Len(t, expected["a"].Replies, 2)
	assert.Len(t, expected["c"].Replies, 1)
}

/*
TestBuild_Idempotent verifies that building twice, or re-applying the same
comments to a built tree, gives the same structure.
*/
func TestBuild_Idempotent(t *testing.T) {
	comments := []*comment.Comment{
		mk("1", nil, 0),
		mk("2", pointer.To("1"), 1),
		mk("3", pointer.To("2"), 2),
	}

	first, _ := comment.Build(comments, nil)
	second, _ := comment.Build(comments, nil)
	assert.Equal(t, first, second)

	// Re-adding everything as "new" only flips the transient flag.
	for _, c := range comments {
		first.Add(c, true)
	}
	assert.Equal(t, stripNew(second), stripNew(first))
	assert.True(t, first["1"].Replies["2"].New)
}

/*
TestBuild_ReplyOfReplyStaysOneLevel verifies a grandchild lands in its
immediate parent's node, not in the root's replies.
*/
func TestBuild_ReplyOfReplyStaysOneLevel(t *testing.T) {
	tree, _ := comment.Build([]*comment.Comment{
		mk("root", nil, 0),
		mk("child", pointer.To("root"), 1),
		mk("grandchild", pointer.To("child"), 2),
	}, nil)

	assert.Len(t, tree["root"].Replies, 1)
	assert.Contains(t, tree["root"].Replies, "child")
	assert.NotContains(t, tree["root"].Replies, "grandchild")
	assert.Contains(t, tree["child"].Replies, "grandchild")
	assert.Equal(t, []string{"root"}, tree.RootIDs())
}

/*
TestBuild_TiesBrokenByID verifies same-instant comments are ordered by id, so
a parent sharing its reply's timestamp is still indexed first when its id sorts first.
*/
func TestBuild_TiesBrokenByID(t *testing.T) {
	tree, orphans := comment.Build([]*comment.Comment{
		mk("b", pointer.To("a"), 0),
		mk("a", nil, 0),
	}, nil)

	assert.Empty(t, orphans)
	assert.Contains(t, tree["a"].Replies, "b")
}

/*
TestBuild_DoesNotMutateInput verifies the builder works on copies.
*/
func TestBuild_DoesNotMutateInput(t *testing.T) {
	comments := []*comment.Comment{mk("2", pointer.To("1"), 1), mk("1", nil, 0)}

	tree, _ := comment.Build(comments, nil)
	tree.Add(mk("3", pointer.To("1"), 2), true)

	assert.Equal(t, "2", comments[0].ID, "input order untouched")
	assert.False(t, comments[0].New)
}

/*
TestTree_AddPreservesReplies verifies that refreshing a node keeps its replies.
*/
func TestTree_AddPreservesReplies(t *testing.T) {
	tree, _ := comment.Build([]*comment.Comment{mk("1", nil, 0), mk("2", pointer.To("1"), 1)}, nil)

	edited := mk("1", nil, 0)
	edited.Content = "edited"
	require.True(t, tree.Add(edited, false))

	assert.Equal(t, "edited", tree["1"].Comment.Content)
	assert.Contains(t, tree["1"].Replies, "2")
}

/*
TestTree_AddNewReply verifies the incremental path used for fresh comments.
*/
func TestTree_AddNewReply(t *testing.T) {
	tree, _ := comment.Build([]*comment.Comment{mk("1", nil, 0)}, nil)

	assert.True(t, tree.Add(mk("2", pointer.To("1"), 5), true))
	assert.True(t, tree["1"].Replies["2"].New)
	assert.True(t, tree["2"].New)

	assert.False(t, tree.Add(mk("4", pointer.To("missing"), 6), true))
	assert.NotContains(t, tree, "4")
}

/*
TestBuild_Concurrent verifies the builder can run in parallel on shared input.
*/
func TestBuild_Concurrent(t *testing.T) {
	comments := []*comment.Comment{mk("1", nil, 0), mk("2", pointer.To("1"), 1), mk("3", nil, 2)}
	expected, _ := comment.Build(comments, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, _ := comment.Build(comments, nil)
			assert.Equal(t, expected, tree)
		}()
	}
	wg.Wait()
}

func TestBuild_Empty(t *testing.T) {
	tree, orphans := comment.Build(nil, nil)
	assert.Empty(t, tree)
	assert.Empty(t, orphans)
	assert.Empty(t, tree.RootIDs())
}

func TestBuild_SkipsNilEntries(t *testing.T) {
	comments := []*comment.Comment{mk("1", nil, 0), nil, mk("2", pointer.To("1"), 1), nil}

	var tree comment.Tree
	var orphans []*comment.Comment
	require.NotPanics(t, func() {
		tree, orphans = comment.Build(comments, nil)
	})

	assert.Empty(t, orphans)
	assert.Len(t, tree, 2)
	assert.Equal(t, []string{"1"}, tree.RootIDs())
	assert.Contains(t, tree["1"].Replies, "2")
	assert.Len(t, comments, 4, "input must keep its nil entries")
}
