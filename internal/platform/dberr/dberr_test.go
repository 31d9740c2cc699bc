// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polutek/tingtong/internal/platform/apperr"
	"github.com/polutek/tingtong/internal/platform/dberr"
)

/*
TestWrap_Classification verifies that pgx errors map onto the right AppError.
*/
func TestWrap_Classification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no_rows", pgx.ErrNoRows, http.StatusNotFound},
		{"wrapped_no_rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), http.StatusNotFound},
		{"unique_violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, http.StatusConflict},
		{"foreign_key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, http.StatusUnprocessableEntity},
		{"check_violation", &pgconn.PgError{Code: pgerrcode.CheckViolation}, http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "test_action")

			ae := apperr.As(wrapped)
			require.NotNil(t, ae)
			assert.Equal(t, tt.status, ae.HTTPStatus)
		})
	}
}

/*
TestWrap_Nil verifies that a nil error passes through.
*/
func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, dberr.Wrap(nil, "noop"))
}

/*
TestWrap_ConflictKeepsCause verifies that the unique violation is still inspectable.
*/
func TestWrap_ConflictKeepsCause(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "commentvote_pkey"}

	wrapped := dberr.Wrap(pgErr, "insert_comment_vote")

	// 1. Classified as conflict
	assert.True(t, dberr.IsConflict(wrapped))
	assert.False(t, dberr.IsNotFound(wrapped))

	// 2. The driver error is still reachable for logging
	var target *pgconn.PgError
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "commentvote_pkey", target.ConstraintName)

	// 3. The shared sentinel was not mutated
	assert.Nil(t, dberr.ErrConflict.Cause)
}

/*
TestWrap_InternalLabelsAction verifies that unknown errors carry the failing action.
*/
func TestWrap_InternalLabelsAction(t *testing.T) {
	wrapped := dberr.Wrap(errors.New("timeout"), "count_comment_votes")

	ae := apperr.As(wrapped)
	require.NotNil(t, ae)
	require.Error(t, ae.Cause)
	assert.Contains(t, ae.Cause.Error(), "count_comment_votes")
}
