// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package notification stores in-app notifications for users.

The only producer today is the comment service: replying to someone else's
comment leaves a "comment_reply" notification for the parent's author.
Delivery beyond the in-app list (push, email) is out of scope.
*/
package notification

import (
	"time"

	"github.com/polutek/tingtong/pkg/pagination"
)

// TypeCommentReply marks a reply to the recipient's comment.
const TypeCommentReply = "comment_reply"

// Notification is one entry of a user's inbox.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`  // Recipient
	ActorID   string     `json:"actor_id"` // Who caused it
	Type      string     `json:"type"`
	EntityID  string     `json:"entity_id"`
	CommentID string     `json:"comment_id"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Position returns the keyset sort key of the notification.
func (n *Notification) Position() pagination.Position {
	return pagination.Position{CreatedAt: n.CreatedAt, ID: n.ID}
}

func notificationID(n *Notification) string {
	return n.ID
}

// UnreadCount is the body of the unread counter endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}

const fieldCursor = "cursor"
