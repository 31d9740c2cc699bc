// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package vote_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polutek/tingtong/internal/platform/apperr"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/internal/platform/metrics"
	"github.com/polutek/tingtong/internal/platform/ratelimit"
	"github.com/polutek/tingtong/internal/social/comment"
	"github.com/polutek/tingtong/internal/social/vote"
)

const (
	commentID = "0190b5d2-0000-7000-8000-0000000000c1"
	deletedID = "0190b5d2-0000-7000-8000-0000000000c2"
	missingID = "0190b5d2-0000-7000-8000-0000000000c3"
	bob       = "0190b5d2-0000-7000-8000-00000000000b"
	carol     = "0190b5d2-0000-7000-8000-00000000000c"
)

var discard = slog.New(slog.DiscardHandler)

type ledgerFixture struct {
	comments *comment.MemoryRepository
	votes    *vote.MemoryRepository
	metrics  *metrics.Metrics
	ledger   *vote.Ledger
}

func newLedgerFixture(t *testing.T, wrap func(vote.Repository) vote.Repository, guard *ratelimit.Guard) *ledgerFixture {
	t.Helper()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	deleted := created.Add(time.Hour)

	comments := comment.NewMemoryRepository()
	comments.Insert(comment.Comment{ID: commentID, EntityID: "E1", UserID: "author", Content: "hi", CreatedAt: created})
	comments.Insert(comment.Comment{ID: deletedID, EntityID: "E1", UserID: "author", Content: "gone", CreatedAt: created, DeletedAt: &deleted})

	f := &ledgerFixture{
		comments: comments,
		votes:    vote.NewMemoryRepository(comments),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}

	var repo vote.Repository = f.votes
	if wrap != nil {
		repo = wrap(f.votes)
	}
	f.ledger = vote.NewLedger(repo, guard, f.metrics, discard)
	return f
}

// stored returns the denormalized counters of the seeded comment.
func (f *ledgerFixture) stored(t *testing.T) (int, int) {
	t.Helper()
	c, err := f.comments.FindByID(context.Background(), commentID)
	require.NoError(t, err)
	return c.UpvotesCount, c.DownvotesCount
}

func (f *ledgerFixture) cast(t *testing.T, userID string, voteType vote.Type) *vote.Result {
	t.Helper()
	result, err := f.ledger.Cast(context.Background(), userID, commentID, string(voteType))
	require.NoError(t, err)
	return result
}

func TestCast_ToggleRoundTrip(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)

	result := f.cast(t, bob, vote.Upvote)
	assert.Equal(t, vote.Result{NewStatus: vote.StatusUpvoted, UpvotesCount: 1}, *result)

	result = f.cast(t, bob, vote.Upvote)
	assert.Equal(t, vote.Result{NewStatus: vote.StatusNone}, *result)

	up, down := f.stored(t)
	assert.Zero(t, up)
	assert.Zero(t, down)
	assert.Zero(t, f.votes.Len())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VoteTransitions.WithLabelValues(metrics.TransitionCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VoteTransitions.WithLabelValues(metrics.TransitionRemoved)))
}

func TestCast_SwitchDoesNotDoubleCount(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	f.cast(t, carol, vote.Upvote)
	f.cast(t, bob, vote.Upvote)

	result := f.cast(t, bob, vote.Downvote)
	assert.Equal(t, vote.Result{NewStatus: vote.StatusDownvoted, UpvotesCount: 1, DownvotesCount: 1}, *result)

	up, down := f.stored(t)
	assert.Equal(t, 1, up)
	assert.Equal(t, 1, down)
	assert.Equal(t, 2, f.votes.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VoteTransitions.WithLabelValues(metrics.TransitionSwitched)))
}

func TestCast_Rejections(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.ledger.Cast(ctx, bob, commentID, "like")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	for _, id := range []string{deletedID, missingID} {
		_, err := f.ledger.Cast(ctx, bob, id, "upvote")
		assert.True(t, apperr.HasCode(err, apperr.CodeNotFound), id)
	}

	badIDs := []struct {
		name      string
		userID    string
		commentID string
	}{
		{"missing user", "", commentID},
		{"blank user", "  ", commentID},
		{"malformed user", "bob", commentID},
		{"missing comment", bob, ""},
		{"malformed comment", bob, "not-a-uuid"},
	}
	for _, tt := range badIDs {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.ledger.Cast(ctx, tt.userID, tt.commentID, "upvote")
			assert.Nil(t, result)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "got %v", err)
		})
	}

	assert.Zero(t, f.votes.Len())
	up, down := f.stored(t)
	assert.Zero(t, up)
	assert.Zero(t, down)
}

func TestCast_RateLimited(t *testing.T) {
	guard := ratelimit.NewGuard(ratelimit.NewLocalLimiter(1, time.Minute), discard)
	f := newLedgerFixture(t, nil, guard)

	f.cast(t, bob, vote.Upvote)
	_, err := f.ledger.Cast(context.Background(), bob, commentID, "upvote")
	assert.True(t, apperr.HasCode(err, apperr.CodeRateLimited))
}

func TestCast_ConcurrentSameUser(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voteType := vote.Upvote
			if i%3 == 0 {
				voteType = vote.Downvote
			}
			_, err := f.ledger.Cast(context.Background(), bob, commentID, string(voteType))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, f.votes.Len(), 1)
	up, down := f.stored(t)
	assert.Equal(t, f.votes.Len(), up+down)
}

func TestCast_ConcurrentManyUsers(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voteType := vote.Upvote
			if i%4 == 0 {
				voteType = vote.Downvote
			}
			_, err := f.ledger.Cast(context.Background(), fmt.Sprintf("0190b5d2-0000-7000-8000-%012d", i+100), commentID, string(voteType))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	up, down := f.stored(t)
	assert.Equal(t, 30, up)
	assert.Equal(t, 10, down)
}

// # Lost Insert Races

// racingRepository makes the first inserts lose a unique-key race. When
// winner is set, the request that won commits its row right after the loss.
type racingRepository struct {
	*vote.MemoryRepository
	losses int
	winner *vote.Type
}

type raceWin struct {
	commentID string
	userID    string
}

func (r *racingRepository) Transact(ctx context.Context, fn func(tx vote.Tx) error) error {
	var won *raceWin
	err := r.MemoryRepository.Transact(ctx, func(tx vote.Tx) error {
		return fn(&racingTx{Tx: tx, repo: r, won: &won})
	})
	if won == nil {
		return err
	}

	commitErr := r.MemoryRepository.Transact(ctx, func(tx vote.Tx) error {
		if err := tx.Insert(ctx, won.commentID, won.userID, *r.winner); err != nil {
			return err
		}
		counts, err := tx.Count(ctx, won.commentID)
		if err != nil {
			return err
		}
		return tx.WriteCounts(ctx, won.commentID, counts)
	})
	if commitErr != nil {
		return commitErr
	}
	return err
}

type racingTx struct {
	vote.Tx
	repo *racingRepository
	won  **raceWin
}

func (t *racingTx) Insert(ctx context.Context, commentID, userID string, voteType vote.Type) error {
	if t.repo.losses == 0 {
		return t.Tx.Insert(ctx, commentID, userID, voteType)
	}

	t.repo.losses--
	if t.repo.winner != nil {
		*t.won = &raceWin{commentID: commentID, userID: userID}
	}
	return dberr.ErrConflict
}

func TestCast_RetriesLostRace(t *testing.T) {
	winner := vote.Downvote
	f := newLedgerFixture(t, func(inner vote.Repository) vote.Repository {
		return &racingRepository{MemoryRepository: inner.(*vote.MemoryRepository), losses: 1, winner: &winner}
	}, nil)

	// A concurrent downvote by the same user commits first; the retried
	// upvote then switches it.
	result := f.cast(t, bob, vote.Upvote)
	assert.Equal(t, vote.Result{NewStatus: vote.StatusUpvoted, UpvotesCount: 1}, *result)
	assert.Equal(t, 1, f.votes.Len())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VoteRaces.WithLabelValues(metrics.RaceRetried)))
	assert.Zero(t, testutil.ToFloat64(f.metrics.VoteRaces.WithLabelValues(metrics.RaceAbsorbed)))
}

func TestCast_AbsorbsSecondLoss(t *testing.T) {
	f := newLedgerFixture(t, func(inner vote.Repository) vote.Repository {
		return &racingRepository{MemoryRepository: inner.(*vote.MemoryRepository), losses: 2}
	}, nil)

	result, err := f.ledger.Cast(context.Background(), bob, commentID, "upvote")
	require.NoError(t, err)
	assert.Equal(t, vote.Result{NewStatus: vote.StatusNone}, *result)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VoteRaces.WithLabelValues(metrics.RaceRetried)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VoteRaces.WithLabelValues(metrics.RaceAbsorbed)))
}

func TestTransact_RollsBackOnError(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	f.cast(t, carol, vote.Upvote)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.votes.Transact(ctx, func(tx vote.Tx) error {
		require.NoError(t, tx.Insert(ctx, commentID, bob, vote.Downvote))
		require.NoError(t, tx.Update(ctx, commentID, carol, vote.Downvote))
		require.NoError(t, tx.WriteCounts(ctx, commentID, vote.Counts{Downvotes: 2}))

		counts, err := tx.Count(ctx, commentID)
		require.NoError(t, err)
		assert.Equal(t, vote.Counts{Downvotes: 2}, counts, "writes are visible inside the transaction")
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 1, f.votes.Len())
	votes, err := f.votes.ListByUser(ctx, carol, []string{commentID})
	require.NoError(t, err)
	assert.Equal(t, map[string]vote.Type{commentID: vote.Upvote}, votes)

	up, down := f.stored(t)
	assert.Equal(t, 1, up)
	assert.Zero(t, down)
}

func TestTransact_DeleteThenInsertInOneTransaction(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	f.cast(t, bob, vote.Upvote)
	ctx := context.Background()

	require.NoError(t, f.votes.Transact(ctx, func(tx vote.Tx) error {
		require.NoError(t, tx.Delete(ctx, commentID, bob))
		current, err := tx.Find(ctx, commentID, bob)
		require.NoError(t, err)
		assert.Nil(t, current)
		return tx.Insert(ctx, commentID, bob, vote.Downvote)
	}))

	votes, err := f.votes.ListByUser(ctx, bob, []string{commentID})
	require.NoError(t, err)
	assert.Equal(t, map[string]vote.Type{commentID: vote.Downvote}, votes)
}

func TestUserVotes(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	f.cast(t, bob, vote.Downvote)

	votes, err := f.ledger.UserVotes(context.Background(), bob, []string{commentID, deletedID})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{commentID: "downvote"}, votes)

	votes, err = f.ledger.UserVotes(context.Background(), "stranger", []string{commentID})
	require.NoError(t, err)
	assert.Empty(t, votes)

	votes, err = f.ledger.UserVotes(context.Background(), bob, []string{"not-a-uuid", commentID})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{commentID: "downvote"}, votes)
}

// The ledger plugs into comment reads as their vote lookup.
func TestUserVotes_FillsCurrentUserVote(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	f.cast(t, bob, vote.Upvote)

	service := comment.NewService(f.comments, discard, comment.WithVoteLookup(f.ledger))
	seen, err := service.Get(context.Background(), commentID, bob)
	require.NoError(t, err)
	require.NotNil(t, seen.CurrentUserVote)
	assert.Equal(t, "upvote", *seen.CurrentUserVote)
	assert.Equal(t, 1, seen.UpvotesCount)
}
