// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reconcile

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/polutek/tingtong/internal/platform/database/schema"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/internal/platform/postgres"
)

// PostgresRepairer recomputes counters with set-based statements.
type PostgresRepairer struct {
	db postgres.Beginner
}

// NewPostgresRepairer constructs a [Repairer] over db (a pool or a transaction).
func NewPostgresRepairer(db postgres.Beginner) *PostgresRepairer {
	return &PostgresRepairer{db: db}
}

/*
Repair rewrites the counters of every comment whose snapshot drifted.

Description: repliescount counts every direct child, soft-deleted ones
included, matching the increment-only rule applied when replies are created.

The run is one READ COMMITTED transaction of three statements:
 1. Find drifted comments.
 2. Lock them FOR NO KEY UPDATE in id order, the lock a vote cast and a reply
    insert take on the same row.
 3. Recount from a snapshot taken after the locks are held and write back.

A cast that committed before step 2 is visible to step 3. A cast that starts
later waits for the lock and recounts on its own, so the counters it writes
are never overwritten with older values.
*/
func (repairer *PostgresRepairer) Repair(ctx context.Context) (int, error) {
	repaired := 0

	err := postgres.WithTx(ctx, repairer.db, func(tx pgx.Tx) error {
		ids, err := driftedIDs(ctx, tx)
		if err != nil || len(ids) == 0 {
			return err
		}

		if err := lockComments(ctx, tx, ids); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, rewriteQuery(), ids)
		if err != nil {
			return dberr.Wrap(err, "reconcile_comment_counters")
		}
		repaired = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return repaired, nil
}

func driftedIDs(ctx context.Context, tx pgx.Tx) ([]string, error) {
	query := countedCTE("") + fmt.Sprintf(`
		SELECT target.%[1]s::text
		FROM %[2]s target
		JOIN counted ON counted.id = target.%[1]s
		WHERE %[3]s`,
		schema.SocialComment.ID, schema.SocialComment.Table, drifted(),
	)

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "find_drifted_comments")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dberr.Wrap(err, "scan_drifted_comment")
	}
	return ids, nil
}

func lockComments(ctx context.Context, tx pgx.Tx, ids []string) error {
	query := fmt.Sprintf(`
		SELECT %[1]s FROM %[2]s
		WHERE %[1]s = ANY($1::uuid[])
		ORDER BY %[1]s
		FOR NO KEY UPDATE`,
		schema.SocialComment.ID, schema.SocialComment.Table,
	)

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return dberr.Wrap(err, "lock_drifted_comments")
	}
	rows.Close()
	return dberr.Wrap(rows.Err(), "lock_drifted_comments")
}

func rewriteQuery() string {
	comment := schema.SocialComment
	return countedCTE("$1::uuid[]") + fmt.Sprintf(`
		UPDATE %[1]s target
		SET %[3]s = counted.up, %[4]s = counted.down, %[2]s = counted.total
		FROM counted
		WHERE target.%[5]s = counted.id
		  AND %[6]s`,
		comment.Table, comment.RepliesCount, comment.Upvotes, comment.Downvotes, comment.ID,
		drifted(),
	)
}

// countedCTE tallies votes and direct replies per comment. A non-empty scope
// is an SQL array expression restricting the tally to those ids.
func countedCTE(scope string) string {
	comment, vote := schema.SocialComment, schema.SocialCommentVote

	voteScope, replyScope, commentScope := "", "", ""
	if scope != "" {
		voteScope = fmt.Sprintf("WHERE %s = ANY(%s)", vote.CommentID, scope)
		replyScope = fmt.Sprintf("AND %s = ANY(%s)", comment.ParentID, scope)
		commentScope = fmt.Sprintf("WHERE c.%s = ANY(%s)", comment.ID, scope)
	}

	return fmt.Sprintf(`
		WITH votes AS (
			SELECT %[5]s AS id,
			       COUNT(*) FILTER (WHERE %[6]s = 'upvote')   AS up,
			       COUNT(*) FILTER (WHERE %[6]s = 'downvote') AS down
			FROM %[4]s
			%[7]s
			GROUP BY %[5]s
		),
		replies AS (
			SELECT %[3]s AS id, COUNT(*) AS total
			FROM %[1]s
			WHERE %[3]s IS NOT NULL %[8]s
			GROUP BY %[3]s
		),
		counted AS (
			SELECT c.%[2]s AS id,
			       COALESCE(v.up, 0)::int    AS up,
			       COALESCE(v.down, 0)::int  AS down,
			       COALESCE(r.total, 0)::int AS total
			FROM %[1]s c
			LEFT JOIN votes v ON v.id = c.%[2]s
			LEFT JOIN replies r ON r.id = c.%[2]s
			%[9]s
		)`,
		comment.Table, comment.ID, comment.ParentID,
		vote.Table, vote.CommentID, vote.VoteType,
		voteScope, replyScope, commentScope,
	)
}

// drifted is the predicate comparing target's cached counters with counted.
func drifted() string {
	comment := schema.SocialComment
	return fmt.Sprintf(`(target.%s, target.%s, target.%s)
		      IS DISTINCT FROM (counted.up, counted.down, counted.total)`,
		comment.Upvotes, comment.Downvotes, comment.RepliesCount,
	)
}
