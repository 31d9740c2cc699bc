// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notification

import (
	"context"

	"github.com/polutek/tingtong/pkg/pagination"
)

// Repository defines the data access contract for notifications.
type Repository interface {
	Create(context context.Context, notification *Notification) error

	/*
		ListByUser returns a keyset page of the user's notifications, newest first.

		Parameters:
		  - after: *pagination.Position (nil for the first page)
		  - limit: int (callers pass limit+1 to probe for a next page)
	*/
	ListByUser(context context.Context, userID string, after *pagination.Position, limit int) ([]*Notification, error)

	// FindByID returns dberr.ErrNotFound if missing.
	FindByID(context context.Context, id string) (*Notification, error)

	CountUnread(context context.Context, userID string) (int, error)

	/*
		MarkRead flags one of the user's notifications read. Marking twice keeps
		the first read timestamp.

		Returns:
		  - error: dberr.ErrNotFound if missing or owned by someone else
	*/
	MarkRead(context context.Context, id, userID string) (*Notification, error)

	// MarkAllRead flags every unread notification of the user and returns how many changed.
	MarkAllRead(context context.Context, userID string) (int, error)
}
