// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package vote

import "context"

// # Ledger Data Access

// Repository is the persistence contract of the ledger.
//
// A cast is a read-modify-write, so every step of it runs on a [Tx] handed out
// by Transact. Implementations must make the steps of one Transact atomic and
// must report a duplicate (comment, user) insert as dberr.ErrConflict.
type Repository interface {

	/*
		Transact runs fn in one transaction. Any error from fn aborts it and
		is returned as-is.
	*/
	Transact(ctx context.Context, fn func(tx Tx) error) error

	/*
		ListByUser returns the user's votes among commentIDs, keyed by comment id.
	*/
	ListByUser(context context.Context, userID string, commentIDs []string) (map[string]Type, error)
}

// Tx is the set of ledger operations available inside a transaction.
type Tx interface {

	// LockComment pins a live comment for the rest of the transaction.
	// It returns a NOT_FOUND error if the comment is missing or soft-deleted.
	LockComment(ctx context.Context, commentID string) error

	// Find returns the caller's vote type, or nil if none.
	Find(ctx context.Context, commentID, userID string) (*Type, error)

	Insert(ctx context.Context, commentID, userID string, voteType Type) error
	Update(ctx context.Context, commentID, userID string, voteType Type) error
	Delete(ctx context.Context, commentID, userID string) error

	// Count tallies the vote rows of a comment.
	Count(ctx context.Context, commentID string) (Counts, error)

	// WriteCounts stores counts in the comment's denormalized columns.
	WriteCounts(ctx context.Context, commentID string, counts Counts) error
}
