// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"

	"github.com/polutek/tingtong/pkg/pagination"
)

// # Comment Data Access

// Repository defines the data access contract for comments.
//
// Reads include soft-deleted rows; presentation blanks them. Keyset pages
// return up to limit rows ordered by (created_at DESC, id DESC), starting
// strictly after the given position when one is set.
type Repository interface {

	/*
		ListByEntity returns every comment of an entity, flat and unordered.

		Returns:
		  - []*Comment: Roots and replies, soft-deleted included
		  - error: Database retrieval failures
	*/
	ListByEntity(context context.Context, entityID string) ([]*Comment, error)

	/*
		ListRoots returns a keyset page of top-level comments of an entity.

		Parameters:
		  - after: *pagination.Position (nil for the first page)
		  - limit: int (callers pass limit+1 to probe for a next page)
	*/
	ListRoots(context context.Context, entityID string, after *pagination.Position, limit int) ([]*Comment, error)

	/*
		ListReplies returns a keyset page of the direct replies of a comment.
	*/
	ListReplies(context context.Context, parentID string, after *pagination.Position, limit int) ([]*Comment, error)

	/*
		ListDescendants returns every comment below the given roots, at any depth.
	*/
	ListDescendants(context context.Context, rootIDs []string) ([]*Comment, error)

	/*
		FindByID retrieves a comment, soft-deleted or not.

		Returns:
		  - error: dberr.ErrNotFound if missing
	*/
	FindByID(context context.Context, id string) (*Comment, error)

	/*
		Create persists a new comment.

		Description: For a reply, the parent's replies counter is incremented in
		the same transaction. The parent must still be live; otherwise
		[ErrParentGone] is returned and nothing is written.
	*/
	Create(context context.Context, comment *Comment) error

	/*
		UpdateContent replaces the content of a live comment and refreshes updated_at.

		Returns:
		  - error: dberr.ErrNotFound if missing or soft-deleted
	*/
	UpdateContent(context context.Context, id, content string) (*Comment, error)

	/*
		SoftDelete marks a comment deleted. Deleting twice is not an error.
	*/
	SoftDelete(context context.Context, id string) error
}
