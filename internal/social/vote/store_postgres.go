// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polutek/tingtong/internal/platform/database/schema"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/internal/platform/postgres"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed vote ledger store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Transact runs fn in a READ COMMITTED transaction.

Description: Row locks taken by [Tx.LockComment] and [Tx.Find] serialize
concurrent casts on the same pair; a cast that still loses the race on the
unique (userid, commentid) key aborts with dberr.ErrConflict.
*/
func (repository *PostgresRepository) Transact(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, repository.pool, func(tx pgx.Tx) error {
		return fn(&postgresTx{tx: tx})
	})
}

/*
ListByUser returns the user's votes among a set of comments.

Parameters:
  - context: context.Context
  - userID: string
  - commentIDs: []string

Returns:
  - map[string]Type: Vote type keyed by comment id
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) ListByUser(context context.Context, userID string, commentIDs []string) (map[string]Type, error) {
	votes := make(map[string]Type, len(commentIDs))
	if len(commentIDs) == 0 {
		return votes, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM %s
		WHERE %s = $1 AND %s = ANY($2::uuid[])`,
		schema.SocialCommentVote.CommentID, schema.SocialCommentVote.VoteType,
		schema.SocialCommentVote.Table,
		schema.SocialCommentVote.UserID, schema.SocialCommentVote.CommentID,
	)

	rows, err := repository.pool.Query(context, query, userID, commentIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "list_user_votes")
	}
	defer rows.Close()

	for rows.Next() {
		var commentID string
		var voteType Type
		if err := rows.Scan(&commentID, &voteType); err != nil {
			return nil, dberr.Wrap(err, "scan_user_vote")
		}
		votes[commentID] = voteType
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_user_votes")
	}

	return votes, nil
}

// # Transaction Steps

type postgresTx struct {
	tx pgx.Tx
}

// LockComment takes FOR NO KEY UPDATE rather than FOR SHARE: the same
// transaction rewrites the comment's counters, and two share locks upgrading
// to update locks would deadlock.
func (t *postgresTx) LockComment(ctx context.Context, commentID string) error {
	query := fmt.Sprintf(`
		SELECT 1 FROM %s
		WHERE %s = $1 AND %s IS NULL
		FOR NO KEY UPDATE`,
		schema.SocialComment.Table, schema.SocialComment.ID, schema.SocialComment.DeletedAt,
	)

	var one int
	return dberr.Wrap(t.tx.QueryRow(ctx, query, commentID).Scan(&one), "lock_comment_for_vote")
}

func (t *postgresTx) Find(ctx context.Context, commentID, userID string) (*Type, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = $2
		FOR UPDATE`,
		schema.SocialCommentVote.VoteType, schema.SocialCommentVote.Table,
		schema.SocialCommentVote.CommentID, schema.SocialCommentVote.UserID,
	)

	var voteType Type
	err := t.tx.QueryRow(ctx, query, commentID, userID).Scan(&voteType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.Wrap(err, "find_comment_vote")
	}
	return &voteType, nil
}

func (t *postgresTx) Insert(ctx context.Context, commentID, userID string, voteType Type) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, NOW(), NOW())`,
		schema.SocialCommentVote.Table,
		schema.SocialCommentVote.CommentID, schema.SocialCommentVote.UserID, schema.SocialCommentVote.VoteType,
		schema.SocialCommentVote.CreatedAt, schema.SocialCommentVote.UpdatedAt,
	)

	_, err := t.tx.Exec(ctx, query, commentID, userID, voteType)
	return dberr.Wrap(err, "insert_comment_vote")
}

func (t *postgresTx) Update(ctx context.Context, commentID, userID string, voteType Type) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $3, %s = NOW()
		WHERE %s = $1 AND %s = $2`,
		schema.SocialCommentVote.Table,
		schema.SocialCommentVote.VoteType, schema.SocialCommentVote.UpdatedAt,
		schema.SocialCommentVote.CommentID, schema.SocialCommentVote.UserID,
	)

	_, err := t.tx.Exec(ctx, query, commentID, userID, voteType)
	return dberr.Wrap(err, "update_comment_vote")
}

func (t *postgresTx) Delete(ctx context.Context, commentID, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.SocialCommentVote.Table,
		schema.SocialCommentVote.CommentID, schema.SocialCommentVote.UserID,
	)

	_, err := t.tx.Exec(ctx, query, commentID, userID)
	return dberr.Wrap(err, "delete_comment_vote")
}

func (t *postgresTx) Count(ctx context.Context, commentID string) (Counts, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE %s = 'upvote'),
			COUNT(*) FILTER (WHERE %s = 'downvote')
		FROM %s
		WHERE %s = $1`,
		schema.SocialCommentVote.VoteType, schema.SocialCommentVote.VoteType,
		schema.SocialCommentVote.Table, schema.SocialCommentVote.CommentID,
	)

	var counts Counts
	err := t.tx.QueryRow(ctx, query, commentID).Scan(&counts.Upvotes, &counts.Downvotes)
	return counts, dberr.Wrap(err, "count_comment_votes")
}

func (t *postgresTx) WriteCounts(ctx context.Context, commentID string, counts Counts) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		schema.SocialComment.Table,
		schema.SocialComment.Upvotes, schema.SocialComment.Downvotes, schema.SocialComment.ID,
	)

	_, err := t.tx.Exec(ctx, query, commentID, counts.Upvotes, counts.Downvotes)
	return dberr.Wrap(err, "write_comment_vote_counts")
}
