// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package vote keeps the vote ledger: at most one vote per user and comment,
toggled by repeated casts.

# Transition Table

	current   cast T   next    side effect
	none      T        T       create vote
	T         T        none    delete vote
	other     T        T       update vote type

The decision is the pure function [Decide]; the [Ledger] runs it inside one
storage transaction together with the counter recomputation, so the
denormalized upvotes/downvotes on the comment always equal the number of
vote rows at commit time.
*/
package vote

import (
	"time"

	"github.com/polutek/tingtong/internal/platform/validate"
)

// # Core Entities

// Type is the direction of a vote.
type Type string

const (
	Upvote   Type = "upvote"
	Downvote Type = "downvote"
)

// Status is the caller's vote after a cast.
type Status string

const (
	StatusUpvoted   Status = "upvoted"
	StatusDownvoted Status = "downvoted"
	StatusNone      Status = "none"
)

// FieldVoteType names the request field in validation errors.
const FieldVoteType = "vote_type"

// Vote is one row of the ledger, keyed by (CommentID, UserID).
type Vote struct {
	CommentID string    `json:"comment_id"`
	UserID    string    `json:"user_id"`
	Type      Type      `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Counts is the tally of vote rows of a comment.
type Counts struct {
	Upvotes   int
	Downvotes int
}

// Result is the response of a cast.
type Result struct {
	NewStatus      Status `json:"new_status"`
	UpvotesCount   int    `json:"upvotes_count"`
	DownvotesCount int    `json:"downvotes_count"`
}

// CastInput is the request body of a cast.
type CastInput struct {
	VoteType string `json:"vote_type"`
}

// ParseType validates a raw vote type.
func ParseType(raw string) (Type, error) {
	validator := &validate.Validator{}
	if err := validator.OneOf(FieldVoteType, raw, string(Upvote), string(Downvote)).Err(); err != nil {
		return "", err
	}
	return Type(raw), nil
}

// StatusOf maps the caller's stored vote (nil for none) to a [Status].
func StatusOf(current *Type) Status {
	if current == nil {
		return StatusNone
	}
	switch *current {
	case Upvote:
		return StatusUpvoted
	case Downvote:
		return StatusDownvoted
	}
	return StatusNone
}

// # Transitions

// Action is the side effect a cast has on the ledger.
type Action string

const (
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
	ActionSwitch Action = "switch"
)

// Transition is the outcome of [Decide].
type Transition struct {
	Action Action
	Next   *Type // nil when the vote is removed
}

// Decide applies the toggle rule to the caller's current vote.
func Decide(current *Type, cast Type) Transition {
	next := cast
	switch {
	case current == nil:
		return Transition{Action: ActionCreate, Next: &next}
	case *current == cast:
		return Transition{Action: ActionDelete}
	default:
		return Transition{Action: ActionSwitch, Next: &next}
	}
}
