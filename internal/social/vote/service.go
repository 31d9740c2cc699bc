// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package vote

import (
	"context"
	"log/slog"

	"github.com/polutek/tingtong/internal/platform/apperr"
	"github.com/polutek/tingtong/internal/platform/ctxutil"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/internal/platform/metrics"
	"github.com/polutek/tingtong/internal/platform/ratelimit"
	"github.com/polutek/tingtong/internal/platform/validate"
	"github.com/polutek/tingtong/pkg/slice"
)

// ErrCommentNotFound is returned when voting on a missing or deleted comment.
var ErrCommentNotFound = apperr.NotFound("Comment")

// # Service Layer

// Ledger applies vote casts and answers the viewer's votes for comment reads.
type Ledger struct {
	repo    Repository
	guard   *ratelimit.Guard
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLedger constructs a [Ledger]. guard and m may be nil.
func NewLedger(repo Repository, guard *ratelimit.Guard, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	return &Ledger{repo: repo, guard: guard, metrics: m, logger: logger}
}

/*
Cast toggles the caller's vote on a comment.

Description: The transition and the counter recomputation run in one
transaction. Losing the insert race on the (user, comment) key is not an
error: the cast is retried once from a fresh read and, if it loses again,
the state left by the winner is returned.

Parameters:
  - userID: string (authenticated caller)
  - commentID: string (UUID)
  - rawType: string ("upvote" or "downvote")

Returns:
  - *Result: The caller's new status and the comment's fresh counts
  - error: ErrValidation (missing or malformed id, unknown type), ErrNotFound,
    ErrRateLimited or storage failures
*/
func (ledger *Ledger) Cast(ctx context.Context, userID, commentID, rawType string) (*Result, error) {
	if err := validateIDs(userID, commentID); err != nil {
		return nil, err
	}
	voteType, err := ParseType(rawType)
	if err != nil {
		return nil, err
	}

	if err := ledger.guard.Check(ctx, userID); err != nil {
		return nil, err
	}

	logger := ctxutil.LoggerOr(ctx, ledger.logger)

	result, action, err := ledger.apply(ctx, userID, commentID, voteType)
	if dberr.IsConflict(err) {
		ledger.metrics.VoteRace(metrics.RaceRetried)
		logger.Info("vote_race_retried", slog.String("comment_id", commentID))

		result, action, err = ledger.apply(ctx, userID, commentID, voteType)
		if dberr.IsConflict(err) {
			ledger.metrics.VoteRace(metrics.RaceAbsorbed)
			logger.Warn("vote_race_absorbed", slog.String("comment_id", commentID))

			return ledger.snapshot(ctx, userID, commentID)
		}
	}
	if err != nil {
		return nil, err
	}

	ledger.metrics.VoteTransition(transitionLabel(action))
	logger.Info("vote_cast",
		slog.String("comment_id", commentID),
		slog.String("vote_type", string(voteType)),
		slog.String("new_status", string(result.NewStatus)),
	)

	return result, nil
}

// UserVotes reports the user's votes among commentIDs as plain strings.
// Malformed ids cannot carry a vote and are skipped.
func (ledger *Ledger) UserVotes(ctx context.Context, userID string, commentIDs []string) (map[string]string, error) {
	commentIDs = slice.Filter(commentIDs, validate.IsUUID)
	if !validate.IsUUID(userID) || len(commentIDs) == 0 {
		return map[string]string{}, nil
	}

	votes, err := ledger.repo.ListByUser(ctx, userID, commentIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(votes))
	for commentID, voteType := range votes {
		out[commentID] = string(voteType)
	}
	return out, nil
}

// # Transaction Bodies

// apply runs one attempt of the cast: lock, read, transition, recount.
func (ledger *Ledger) apply(ctx context.Context, userID, commentID string, voteType Type) (*Result, Action, error) {
	var result *Result
	var action Action

	err := ledger.repo.Transact(ctx, func(tx Tx) error {
		if err := lockComment(ctx, tx, commentID); err != nil {
			return err
		}

		current, err := tx.Find(ctx, commentID, userID)
		if err != nil {
			return err
		}

		transition := Decide(current, voteType)
		switch transition.Action {
		case ActionCreate:
			err = tx.Insert(ctx, commentID, userID, *transition.Next)
		case ActionDelete:
			err = tx.Delete(ctx, commentID, userID)
		case ActionSwitch:
			err = tx.Update(ctx, commentID, userID, *transition.Next)
		}
		if err != nil {
			return err
		}

		counts, err := recount(ctx, tx, commentID)
		if err != nil {
			return err
		}

		action = transition.Action
		result = &Result{
			NewStatus:      StatusOf(transition.Next),
			UpvotesCount:   counts.Upvotes,
			DownvotesCount: counts.Downvotes,
		}
		return nil
	})

	return result, action, err
}

// snapshot reads the caller's current status and the comment's counts.
func (ledger *Ledger) snapshot(ctx context.Context, userID, commentID string) (*Result, error) {
	var result *Result

	err := ledger.repo.Transact(ctx, func(tx Tx) error {
		if err := lockComment(ctx, tx, commentID); err != nil {
			return err
		}

		current, err := tx.Find(ctx, commentID, userID)
		if err != nil {
			return err
		}

		counts, err := recount(ctx, tx, commentID)
		if err != nil {
			return err
		}

		result = &Result{
			NewStatus:      StatusOf(current),
			UpvotesCount:   counts.Upvotes,
			DownvotesCount: counts.Downvotes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// # Helpers

// validateIDs requires both ids and, once present, their UUID form.
func validateIDs(userID, commentID string) error {
	validator := &validate.Validator{}
	validator.Required("user_id", userID).Required("comment_id", commentID)
	if validator.HasErrors() {
		return validator.Err()
	}
	return validator.UUID("user_id", userID).UUID("comment_id", commentID).Err()
}

func lockComment(ctx context.Context, tx Tx, commentID string) error {
	err := tx.LockComment(ctx, commentID)
	if dberr.IsNotFound(err) {
		return ErrCommentNotFound
	}
	return err
}

// recount tallies the vote rows and writes them back to the comment.
func recount(ctx context.Context, tx Tx, commentID string) (Counts, error) {
	counts, err := tx.Count(ctx, commentID)
	if err != nil {
		return Counts{}, err
	}
	if err := tx.WriteCounts(ctx, commentID, counts); err != nil {
		return Counts{}, err
	}
	return counts, nil
}

func transitionLabel(action Action) string {
	switch action {
	case ActionCreate:
		return metrics.TransitionCreated
	case ActionDelete:
		return metrics.TransitionRemoved
	default:
		return metrics.TransitionSwitched
	}
}
