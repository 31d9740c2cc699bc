// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package vote

import (
	"context"
	"sync"
	"time"

	"github.com/polutek/tingtong/internal/platform/dberr"
)

// CommentCounters is the slice of the comment store the in-memory ledger
// needs. comment.MemoryRepository implements it.
type CommentCounters interface {
	EnsureLive(ctx context.Context, commentID string) error
	SetVoteCounts(ctx context.Context, commentID string, upvotes, downvotes int) error
}

type voteKey struct {
	commentID string
	userID    string
}

// MemoryRepository is an in-process [Repository].
//
// Transactions are serialized under one mutex, which stands in for the row
// locks of the PostgreSQL store. Writes are staged and applied only when fn
// succeeds, so a failed transaction leaves no trace. A duplicate pair insert
// still fails with dberr.ErrConflict so the ledger's race handling behaves
// the same.
type MemoryRepository struct {
	mu       sync.Mutex
	votes    map[voteKey]*Vote
	comments CommentCounters
	now      func() time.Time
}

// NewMemoryRepository creates an empty ledger over comments.
func NewMemoryRepository(comments CommentCounters) *MemoryRepository {
	return &MemoryRepository{
		votes:    make(map[voteKey]*Vote),
		comments: comments,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Transact implements [Repository].
func (s *MemoryRepository) Transact(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:  s,
		staged: make(map[voteKey]*Vote),
		counts: make(map[string]Counts),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

// ListByUser implements [Repository].
func (s *MemoryRepository) ListByUser(_ context.Context, userID string, commentIDs []string) (map[string]Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	votes := make(map[string]Type, len(commentIDs))
	for _, commentID := range commentIDs {
		if vote, found := s.votes[voteKey{commentID, userID}]; found {
			votes[commentID] = vote.Type
		}
	}
	return votes, nil
}

// Len returns the number of vote rows.
func (s *MemoryRepository) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.votes)
}

// memoryTx operates on the store while Transact holds its mutex.
//
// staged holds the pending row of each touched pair; a nil entry is a
// pending delete.
type memoryTx struct {
	store  *MemoryRepository
	staged map[voteKey]*Vote
	counts map[string]Counts
}

// row returns the pair's row as this transaction sees it.
func (t *memoryTx) row(key voteKey) (*Vote, bool) {
	if vote, touched := t.staged[key]; touched {
		return vote, vote != nil
	}
	vote, found := t.store.votes[key]
	return vote, found
}

func (t *memoryTx) commit(ctx context.Context) error {
	for commentID, counts := range t.counts {
		if err := t.store.comments.SetVoteCounts(ctx, commentID, counts.Upvotes, counts.Downvotes); err != nil {
			return err
		}
	}
	for key, vote := range t.staged {
		if vote == nil {
			delete(t.store.votes, key)
			continue
		}
		t.store.votes[key] = vote
	}
	return nil
}

func (t *memoryTx) LockComment(ctx context.Context, commentID string) error {
	return t.store.comments.EnsureLive(ctx, commentID)
}

func (t *memoryTx) Find(_ context.Context, commentID, userID string) (*Type, error) {
	vote, found := t.row(voteKey{commentID, userID})
	if !found {
		return nil, nil
	}
	voteType := vote.Type
	return &voteType, nil
}

func (t *memoryTx) Insert(_ context.Context, commentID, userID string, voteType Type) error {
	key := voteKey{commentID, userID}
	if _, exists := t.row(key); exists {
		return dberr.ErrConflict
	}

	now := t.store.now()
	t.staged[key] = &Vote{CommentID: commentID, UserID: userID, Type: voteType, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (t *memoryTx) Update(_ context.Context, commentID, userID string, voteType Type) error {
	key := voteKey{commentID, userID}
	vote, found := t.row(key)
	if !found {
		return dberr.ErrNotFound
	}

	updated := *vote
	updated.Type = voteType
	updated.UpdatedAt = t.store.now()
	t.staged[key] = &updated
	return nil
}

func (t *memoryTx) Delete(_ context.Context, commentID, userID string) error {
	t.staged[voteKey{commentID, userID}] = nil
	return nil
}

func (t *memoryTx) Count(_ context.Context, commentID string) (Counts, error) {
	var counts Counts
	tally := func(vote *Vote) {
		switch vote.Type {
		case Upvote:
			counts.Upvotes++
		case Downvote:
			counts.Downvotes++
		}
	}

	for key, vote := range t.store.votes {
		if _, touched := t.staged[key]; key.commentID == commentID && !touched {
			tally(vote)
		}
	}
	for key, vote := range t.staged {
		if key.commentID == commentID && vote != nil {
			tally(vote)
		}
	}
	return counts, nil
}

func (t *memoryTx) WriteCounts(_ context.Context, commentID string, counts Counts) error {
	t.counts[commentID] = counts
	return nil
}
