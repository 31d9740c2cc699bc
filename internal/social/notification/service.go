// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notification

import (
	"context"
	"log/slog"

	"github.com/polutek/tingtong/internal/platform/apperr"
	"github.com/polutek/tingtong/internal/platform/ctxutil"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/internal/platform/validate"
	"github.com/polutek/tingtong/pkg/pagination"
	"github.com/polutek/tingtong/pkg/uuid"
)

// ErrNotificationNotFound hides notifications owned by someone else.
var ErrNotificationNotFound = apperr.NotFound("Notification")

// Service manages users' notification inboxes.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a notification [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

/*
NotifyReply records that actorID replied to recipientID's comment.

Description: Satisfies the comment service's reply hook. Self-replies are
ignored here as well so the rule holds for any caller.
*/
func (service *Service) NotifyReply(ctx context.Context, recipientID, actorID, entityID, commentID string) error {
	if recipientID == actorID {
		return nil
	}

	notification := &Notification{
		ID:        uuid.New(),
		UserID:    recipientID,
		ActorID:   actorID,
		Type:      TypeCommentReply,
		EntityID:  entityID,
		CommentID: commentID,
	}
	if err := service.repo.Create(ctx, notification); err != nil {
		return err
	}

	ctxutil.LoggerOr(ctx, service.logger).Debug("notification_created",
		slog.String("notification_id", notification.ID),
		slog.String("type", notification.Type),
	)
	return nil
}

/*
List returns a page of the user's notifications, newest first.

Returns:
  - []*Notification: The page
  - *string: Cursor of the next page, nil on the last page
  - error: ErrValidation for a foreign or unknown cursor
*/
func (service *Service) List(ctx context.Context, userID string, params pagination.Params) ([]*Notification, *string, error) {
	after, err := service.resolveCursor(ctx, userID, params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	notifications, err := service.repo.ListByUser(ctx, userID, after, params.Probe())
	if err != nil {
		return nil, nil, err
	}

	page, next := pagination.Window(notifications, params.Limit, notificationID)
	return page, next, nil
}

// UnreadCount returns how many of the user's notifications are unread.
func (service *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return service.repo.CountUnread(ctx, userID)
}

// MarkRead flags one of the user's notifications read.
func (service *Service) MarkRead(ctx context.Context, userID, id string) (*Notification, error) {
	if !validate.IsUUID(id) {
		return nil, ErrNotificationNotFound
	}

	notification, err := service.repo.MarkRead(ctx, id, userID)
	if dberr.IsNotFound(err) {
		return nil, ErrNotificationNotFound
	}
	return notification, err
}

// MarkAllRead flags every unread notification of the user.
func (service *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	changed, err := service.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	ctxutil.LoggerOr(ctx, service.logger).Info("notifications_marked_read", slog.Int("count", changed))
	return changed, nil
}

func (service *Service) resolveCursor(ctx context.Context, userID, cursor string) (*pagination.Position, error) {
	if cursor == "" {
		return nil, nil
	}

	invalid := apperr.InvalidArgument(fieldCursor, "Cursor does not belong to this list")
	if !validate.IsUUID(cursor) {
		return nil, invalid
	}

	anchor, err := service.repo.FindByID(ctx, cursor)
	if dberr.IsNotFound(err) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if anchor.UserID != userID {
		return nil, invalid
	}

	position := anchor.Position()
	return &position, nil
}
