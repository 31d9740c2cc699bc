// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package comment manages threaded discussions attached to content entities.

Any piece of content (a feed video, an article, a gallery) is an "entity"
identified by an opaque string. Comments belong to exactly one entity and may
reply to another comment of the same entity.

# Core Responsibility

  - Lifecycle: create, edit and soft-delete comments with their counters.
  - Threading: the tree builder ([Build]) turns a flat, unordered list into
    top-level nodes carrying their replies.
  - Presentation: content rendering, deleted placeholders and the viewer's
    own vote on every comment returned.
  - Live updates: new comments are published to a [Broker] and relayed over
    WebSocket.

Votes themselves live in package vote; this package only reads the
denormalized counters and asks a [VoteLookup] for the viewer's votes.
*/
package comment

import (
	"time"

	"github.com/polutek/tingtong/pkg/pagination"
)

// # Core Entities

// Comment is a single message in an entity's thread.
type Comment struct {
	ID              string     `json:"id"` // UUIDv7
	EntityID        string     `json:"entity_id"`
	UserID          string     `json:"user_id"`
	ParentID        *string    `json:"parent_id"`
	Content         string     `json:"content"`
	ContentHTML     string     `json:"content_html"` // Derived on read, never stored
	RepliesCount    int        `json:"replies_count"`
	UpvotesCount    int        `json:"upvotes_count"`
	DownvotesCount  int        `json:"downvotes_count"`
	CurrentUserVote *string    `json:"current_user_vote"` // Viewer's vote, nil for none or anonymous
	IsDeleted       bool       `json:"is_deleted"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-"`

	// New marks a reply inserted into a tree as freshly created. Transient.
	New bool `json:"new,omitempty"`
}

// IsRoot reports whether the comment is top-level.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// Position returns the keyset sort key of the comment.
func (c *Comment) Position() pagination.Position {
	return pagination.Position{CreatedAt: c.CreatedAt, ID: c.ID}
}

// CommentID returns the id, for use with [pagination.Window].
func CommentID(c *Comment) string {
	return c.ID
}

// # Inputs

// CreateInput is the payload for a new comment.
type CreateInput struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

// UpdateInput is the payload for an edit.
type UpdateInput struct {
	Content string `json:"content"`
}

// Actor identifies the caller performing a mutation.
type Actor struct {
	UserID      string
	CanModerate bool
}

// # Views

// View selects the shape of an entity page.
type View string

const (
	ViewTree View = "tree"
	ViewFlat View = "flat"
)

// ThreadPage is a page of top-level comments with every descendant of those
// roots already threaded by [Build].
type ThreadPage struct {
	Tree    Tree     `json:"tree"`
	RootIDs []string `json:"root_ids"` // Page order: newest first
}

// # Events

// EventCommentCreated is the only event type currently published.
const EventCommentCreated = "comment_created"

// Event is a message relayed to live stream subscribers.
type Event struct {
	Type    string   `json:"type"`
	Comment *Comment `json:"comment"`
}

// # Limits & Field Identifiers

const (
	// MaxContentLength is counted in runes after sanitization.
	MaxContentLength = 1000
	// MaxEntityIDLength bounds the opaque entity identifier.
	MaxEntityIDLength = 128
	// DefaultRepliesLimit is the page size of the replies endpoint.
	DefaultRepliesLimit = 10
)

const (
	FieldContent  = "content"
	FieldParentID = "parent_id"
	FieldEntityID = "entity_id"
	FieldCursor   = "cursor"
	FieldView     = "view"
)
