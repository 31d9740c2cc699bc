// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

//go:build integration

package reconcile_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/polutek/tingtong/internal/platform/migration"
	pgstore "github.com/polutek/tingtong/internal/platform/postgres"
	"github.com/polutek/tingtong/internal/social/comment"
	"github.com/polutek/tingtong/internal/social/notification"
	"github.com/polutek/tingtong/internal/social/reconcile"
	"github.com/polutek/tingtong/internal/social/vote"
	"github.com/polutek/tingtong/pkg/pagination"
)

const (
	alice = "0190b5d2-0000-7000-8000-00000000000a"
	bob   = "0190b5d2-0000-7000-8000-00000000000b"
)

// startPostgres boots a disposable PostgreSQL, applies the migrations and
// returns a pool on it.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tingtong"),
		tcpostgres.WithUsername("tingtong"),
		tcpostgres.WithPassword("tingtong"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrations, err := filepath.Abs("../../../data/migrations")
	require.NoError(t, err)
	require.NoError(t, migration.RunUp(dsn, migrations, discard))

	pool, err := pgstore.NewPool(ctx, dsn, discard)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

type stack struct {
	pool          *pgxpool.Pool
	comments      *comment.Service
	ledger        *vote.Ledger
	notifications *notification.Service
}

func newStack(t *testing.T) *stack {
	pool := startPostgres(t)

	notifications := notification.NewService(notification.NewPostgresRepository(pool), discard)
	ledger := vote.NewLedger(vote.NewPostgresRepository(pool), nil, nil, discard)
	comments := comment.NewService(comment.NewPostgresRepository(pool), discard,
		comment.WithVoteLookup(ledger),
		comment.WithReplyNotifier(notifications),
	)

	return &stack{pool: pool, comments: comments, ledger: ledger, notifications: notifications}
}

func TestPostgres_ThreadVotesAndRepair(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	root, err := s.comments.Create(ctx, alice, "video-1", comment.CreateInput{Content: "root"})
	require.NoError(t, err)
	reply, err := s.comments.Create(ctx, bob, "video-1", comment.CreateInput{Content: "reply", ParentID: &root.ID})
	require.NoError(t, err)

	// # Reply counter and notification

	loaded, err := s.comments.Get(ctx, root.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.RepliesCount)

	unread, err := s.notifications.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	// # Vote ledger transitions

	result, err := s.ledger.Cast(ctx, bob, root.ID, "upvote")
	require.NoError(t, err)
	assert.Equal(t, vote.StatusUpvoted, result.NewStatus)
	assert.Equal(t, 1, result.UpvotesCount)

	result, err = s.ledger.Cast(ctx, bob, root.ID, "downvote")
	require.NoError(t, err)
	assert.Equal(t, vote.StatusDownvoted, result.NewStatus)
	assert.Equal(t, 0, result.UpvotesCount)
	assert.Equal(t, 1, result.DownvotesCount)

	result, err = s.ledger.Cast(ctx, bob, root.ID, "downvote")
	require.NoError(t, err)
	assert.Equal(t, vote.StatusNone, result.NewStatus)
	assert.Equal(t, 0, result.DownvotesCount)

	// # Soft delete keeps the thread

	require.NoError(t, s.comments.Delete(ctx, comment.Actor{UserID: bob}, reply.ID))
	thread, err := s.comments.EntityThread(ctx, "video-1", "")
	require.NoError(t, err)
	require.Len(t, thread.RootIDs, 1)
	assert.Len(t, thread.Tree[root.ID].Replies, 1)

	// # Reconciliation repairs drift and is idempotent

	_, err = s.pool.Exec(ctx, `UPDATE social.comment SET upvotes = 7, repliescount = 0 WHERE id = $1`, root.ID)
	require.NoError(t, err)

	repairer := reconcile.NewPostgresRepairer(s.pool)
	repaired, err := repairer.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	loaded, err = s.comments.Get(ctx, root.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.UpvotesCount)
	assert.Equal(t, 1, loaded.RepliesCount, "soft-deleted replies still count")

	repaired, err = repairer.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestPostgres_ConcurrentVotes(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	root, err := s.comments.Create(ctx, alice, "video-2", comment.CreateInput{Content: "hot take"})
	require.NoError(t, err)

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters*2)

	for i := range voters {
		userID := fmt.Sprintf("0190b5d2-0000-7000-8000-%012d", i+100)
		for range 2 {
			// The same user racing twice must end in one consistent state.
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.ledger.Cast(ctx, userID, root.ID, "upvote"); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var rows, cached int
	require.NoError(t, s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM social.commentvote WHERE commentid = $1), upvotes FROM social.comment WHERE id = $1`,
		root.ID,
	).Scan(&rows, &cached))
	assert.Equal(t, rows, cached, "cached counter matches the ledger")

	repaired, err := reconcile.NewPostgresRepairer(s.pool).Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestPostgres_RootPagination(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	for i := range 5 {
		_, err := s.comments.Create(ctx, alice, "video-3", comment.CreateInput{Content: fmt.Sprintf("comment %d", i)})
		require.NoError(t, err)
	}

	var seen []string
	params := pagination.Params{Limit: 2}
	for {
		page, next, err := s.comments.ListRoots(ctx, "video-3", params, "")
		require.NoError(t, err)
		for _, c := range page {
			seen = append(seen, c.Content)
		}
		if next == nil {
			break
		}
		params.Cursor = *next
	}

	assert.Equal(t, []string{"comment 4", "comment 3", "comment 2", "comment 1", "comment 0"}, seen)
}

func TestPostgres_RepliesAndDescendants(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	root, err := s.comments.Create(ctx, alice, "video-4", comment.CreateInput{Content: "root"})
	require.NoError(t, err)

	var replyIDs []string
	for i := range 3 {
		reply, err := s.comments.Create(ctx, bob, "video-4", comment.CreateInput{Content: fmt.Sprintf("reply %d", i), ParentID: &root.ID})
		require.NoError(t, err)
		replyIDs = append(replyIDs, reply.ID)
	}
	nested, err := s.comments.Create(ctx, alice, "video-4", comment.CreateInput{Content: "nested", ParentID: &replyIDs[0]})
	require.NoError(t, err)

	// # Replies are paged newest first

	var seen []string
	params := pagination.Params{Limit: 2}
	for {
		page, next, err := s.comments.ListReplies(ctx, root.ID, params, "")
		require.NoError(t, err)
		for _, c := range page {
			seen = append(seen, c.Content)
		}
		if next == nil {
			break
		}
		params.Cursor = *next
	}
	assert.Equal(t, []string{"reply 2", "reply 1", "reply 0"}, seen)

	// # The thread page reaches replies of replies

	thread, _, err := s.comments.ThreadPage(ctx, "video-4", pagination.Params{Limit: 10}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{root.ID}, thread.RootIDs)
	assert.Len(t, thread.Tree[root.ID].Replies, 3)
	require.Contains(t, thread.Tree, replyIDs[0])
	assert.Contains(t, thread.Tree[replyIDs[0]].Replies, nested.ID)

	// # Edits and deletes go through the same projection

	updated, err := s.comments.Update(ctx, comment.Actor{UserID: alice}, nested.ID, comment.UpdateInput{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	require.NoError(t, s.comments.Delete(ctx, comment.Actor{UserID: alice}, nested.ID))
	require.NoError(t, s.comments.Delete(ctx, comment.Actor{UserID: alice}, nested.ID))
}

func TestPostgres_RepairDuringCasts(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	root, err := s.comments.Create(ctx, alice, "video-5", comment.CreateInput{Content: "busy"})
	require.NoError(t, err)

	_, err = s.pool.Exec(ctx, `UPDATE social.comment SET upvotes = 99 WHERE id = $1`, root.ID)
	require.NoError(t, err)

	repairer := reconcile.NewPostgresRepairer(s.pool)
	const voters = 30

	var wg sync.WaitGroup
	errs := make(chan error, voters+10)

	for i := range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := fmt.Sprintf("0190b5d2-0000-7000-8000-%012d", i+200)
			if _, err := s.ledger.Cast(ctx, userID, root.ID, "upvote"); err != nil {
				errs <- err
			}
		}()
	}
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repairer.Repair(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var cached int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT upvotes FROM social.comment WHERE id = $1`, root.ID).Scan(&cached))
	assert.Equal(t, voters, cached, "a repair never leaves stale counters behind")

	repaired, err := repairer.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}
