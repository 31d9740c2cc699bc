// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notification

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polutek/tingtong/internal/platform/database/schema"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/pkg/pagination"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed notification store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// notificationColumns is the projection scanned by [scanNotification].
var notificationColumns = fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
	schema.SocialNotification.ID, schema.SocialNotification.UserID, schema.SocialNotification.ActorID,
	schema.SocialNotification.Type, schema.SocialNotification.EntityID, schema.SocialNotification.CommentID,
	schema.SocialNotification.IsRead, schema.SocialNotification.CreatedAt, schema.SocialNotification.ReadAt,
)

/*
Create inserts a notification.

Parameters:
  - context: context.Context
  - notification: *Notification (ID set by the caller)

Returns:
  - error: Insertion failures
*/
func (repository *PostgresRepository) Create(context context.Context, notification *Notification) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING %s`,
		schema.SocialNotification.Table,
		schema.SocialNotification.ID, schema.SocialNotification.UserID, schema.SocialNotification.ActorID,
		schema.SocialNotification.Type, schema.SocialNotification.EntityID, schema.SocialNotification.CommentID,
		schema.SocialNotification.CreatedAt,
		schema.SocialNotification.CreatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		notification.ID,
		notification.UserID,
		notification.ActorID,
		notification.Type,
		notification.EntityID,
		notification.CommentID,
	).Scan(&notification.CreatedAt)

	return dberr.Wrap(err, "create_notification")
}

/*
ListByUser returns a keyset page of a user's notifications.
*/
func (repository *PostgresRepository) ListByUser(context context.Context, userID string, after *pagination.Position, limit int) ([]*Notification, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if after == nil {
		query := fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE %s = $1
			ORDER BY %s DESC, %s DESC
			LIMIT $2`,
			notificationColumns, schema.SocialNotification.Table,
			schema.SocialNotification.UserID,
			schema.SocialNotification.CreatedAt, schema.SocialNotification.ID,
		)
		rows, err = repository.pool.Query(context, query, userID, limit)
	} else {
		query := fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE %s = $1 AND (%s, %s) < ($2, $3)
			ORDER BY %s DESC, %s DESC
			LIMIT $4`,
			notificationColumns, schema.SocialNotification.Table,
			schema.SocialNotification.UserID,
			schema.SocialNotification.CreatedAt, schema.SocialNotification.ID,
			schema.SocialNotification.CreatedAt, schema.SocialNotification.ID,
		)
		rows, err = repository.pool.Query(context, query, userID, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, dberr.Wrap(err, "list_notifications")
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_notification")
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_notifications")
	}

	return notifications, nil
}

// FindByID retrieves a notification by primary key.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		notificationColumns, schema.SocialNotification.Table, schema.SocialNotification.ID)

	notification, err := scanNotification(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "get_notification_by_id")
	}
	return notification, nil
}

// CountUnread walks the partial index notification_unread_idx.
func (repository *PostgresRepository) CountUnread(context context.Context, userID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1 AND NOT %s`,
		schema.SocialNotification.Table, schema.SocialNotification.UserID, schema.SocialNotification.IsRead)

	var count int
	err := repository.pool.QueryRow(context, query, userID).Scan(&count)
	return count, dberr.Wrap(err, "count_unread_notifications")
}

/*
MarkRead flags a notification read, scoped to its owner.
*/
func (repository *PostgresRepository) MarkRead(context context.Context, id, userID string) (*Notification, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = TRUE, %s = COALESCE(%s, NOW())
		WHERE %s = $1 AND %s = $2
		RETURNING %s`,
		schema.SocialNotification.Table,
		schema.SocialNotification.IsRead, schema.SocialNotification.ReadAt, schema.SocialNotification.ReadAt,
		schema.SocialNotification.ID, schema.SocialNotification.UserID,
		notificationColumns,
	)

	notification, err := scanNotification(repository.pool.QueryRow(context, query, id, userID))
	if err != nil {
		return nil, dberr.Wrap(err, "mark_notification_read")
	}
	return notification, nil
}

// MarkAllRead flags every unread notification of a user.
func (repository *PostgresRepository) MarkAllRead(context context.Context, userID string) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = TRUE, %s = NOW()
		WHERE %s = $1 AND NOT %s`,
		schema.SocialNotification.Table,
		schema.SocialNotification.IsRead, schema.SocialNotification.ReadAt,
		schema.SocialNotification.UserID, schema.SocialNotification.IsRead,
	)

	tag, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return 0, dberr.Wrap(err, "mark_all_notifications_read")
	}
	return int(tag.RowsAffected()), nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	notification := &Notification{}
	err := row.Scan(
		&notification.ID, &notification.UserID, &notification.ActorID,
		&notification.Type, &notification.EntityID, &notification.CommentID,
		&notification.IsRead, &notification.CreatedAt, &notification.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return notification, nil
}
