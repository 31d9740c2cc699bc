// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polutek/tingtong/internal/platform/database/schema"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/internal/platform/postgres"
	"github.com/polutek/tingtong/pkg/pagination"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed comment store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// projection lists the columns scanned by [scanComment], each prefixed with
// alias when one is given.
func projection(alias string) string {
	t := schema.SocialComment
	columns := []string{
		t.ID, t.EntityID, t.UserID, t.ParentID, t.Content, t.RepliesCount,
		t.Upvotes, t.Downvotes, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
	if alias != "" {
		for i, column := range columns {
			columns[i] = alias + "." + column
		}
	}
	return strings.Join(columns, ", ")
}

var commentColumns = projection("")

// # Comment Retrieval

/*
ListByEntity returns the flat thread of an entity.

Parameters:
  - context: context.Context
  - entityID: string

Returns:
  - []*Comment: Every comment of the entity
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) ListByEntity(context context.Context, entityID string) ([]*Comment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1`,
		commentColumns, schema.SocialComment.Table, schema.SocialComment.EntityID,
	)

	rows, err := repository.db.Query(context, query, entityID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_comments_by_entity")
	}
	return collectComments(rows, "scan_entity_comment")
}

/*
ListRoots returns a keyset page of top-level comments.

Description: The cursor row comparison (createdat, id) < ($2, $3) walks the
partial index comment_entity_roots_idx.
*/
func (repository *PostgresRepository) ListRoots(context context.Context, entityID string, after *pagination.Position, limit int) ([]*Comment, error) {
	t := schema.SocialComment
	filter := fmt.Sprintf("%s = $1 AND %s IS NULL", t.EntityID, t.ParentID)

	rows, err := repository.page(context, filter, entityID, after, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_root_comments")
	}
	return collectComments(rows, "scan_root_comment")
}

/*
ListReplies returns a keyset page of direct replies.
*/
func (repository *PostgresRepository) ListReplies(context context.Context, parentID string, after *pagination.Position, limit int) ([]*Comment, error) {
	filter := fmt.Sprintf("%s = $1", schema.SocialComment.ParentID)

	rows, err := repository.page(context, filter, parentID, after, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_replies")
	}
	return collectComments(rows, "scan_reply")
}

// page runs a newest-first keyset query. filter binds key as $1.
func (repository *PostgresRepository) page(context context.Context, filter, key string, after *pagination.Position, limit int) (pgx.Rows, error) {
	t := schema.SocialComment

	if after == nil {
		query := fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE %s
			ORDER BY %s DESC, %s DESC
			LIMIT $2`,
			commentColumns, t.Table, filter, t.CreatedAt, t.ID,
		)
		return repository.db.Query(context, query, key, limit)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		  AND (%s, %s) < ($2, $3)
		ORDER BY %s DESC, %s DESC
		LIMIT $4`,
		commentColumns, t.Table, filter,
		t.CreatedAt, t.ID,
		t.CreatedAt, t.ID,
	)
	return repository.db.Query(context, query, key, after.CreatedAt, after.ID, limit)
}

/*
ListDescendants walks the reply graph below rootIDs with a recursive CTE.
*/
func (repository *PostgresRepository) ListDescendants(context context.Context, rootIDs []string) ([]*Comment, error) {
	if len(rootIDs) == 0 {
		return nil, nil
	}

	t := schema.SocialComment
	query := fmt.Sprintf(`
		WITH RECURSIVE descendants AS (
			SELECT %s
			FROM %s
			WHERE %s = ANY($1::uuid[])
			UNION ALL
			SELECT %s
			FROM %s c
			JOIN descendants d ON c.%s = d.%s
		)
		SELECT %s FROM descendants`,
		commentColumns, t.Table, t.ParentID,
		projection("c"), t.Table, t.ParentID, t.ID,
		commentColumns,
	)

	rows, err := repository.db.Query(context, query, rootIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "list_comment_descendants")
	}
	return collectComments(rows, "scan_descendant")
}

/*
FindByID retrieves a single comment by primary key.

Returns:
  - *Comment: Hydrated entity (soft-deleted included)
  - error: dberr.ErrNotFound if missing
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		commentColumns, schema.SocialComment.Table, schema.SocialComment.ID,
	)

	comment, err := scanComment(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "get_comment_by_id")
	}
	return comment, nil
}

// # Comment Mutation

/*
Create inserts the comment and bumps the parent's reply counter atomically.
*/
func (repository *PostgresRepository) Create(ctx context.Context, comment *Comment) error {
	t := schema.SocialComment

	return postgres.WithTx(ctx, repository.db, func(tx pgx.Tx) error {
		if comment.ParentID != nil {
			bumpParent := fmt.Sprintf(`
				UPDATE %s
				SET %s = %s + 1
				WHERE %s = $1 AND %s = $2 AND %s IS NULL`,
				t.Table, t.RepliesCount, t.RepliesCount,
				t.ID, t.EntityID, t.DeletedAt,
			)
			tag, err := tx.Exec(ctx, bumpParent, *comment.ParentID, comment.EntityID)
			if err != nil {
				return dberr.Wrap(err, "increment_replies_count")
			}
			if tag.RowsAffected() == 0 {
				return ErrParentGone
			}
		}

		insert := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING %s, %s`,
			t.Table, t.ID, t.EntityID, t.UserID, t.ParentID, t.Content, t.CreatedAt, t.UpdatedAt,
			t.CreatedAt, t.UpdatedAt,
		)
		err := tx.QueryRow(ctx, insert,
			comment.ID, comment.EntityID, comment.UserID, comment.ParentID, comment.Content,
		).Scan(&comment.CreatedAt, &comment.UpdatedAt)

		return dberr.Wrap(err, "create_comment")
	})
}

/*
UpdateContent edits a live comment.
*/
func (repository *PostgresRepository) UpdateContent(context context.Context, id, content string) (*Comment, error) {
	t := schema.SocialComment
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NOW()
		WHERE %s = $1 AND %s IS NULL
		RETURNING %s`,
		t.Table, t.Content, t.UpdatedAt, t.ID, t.DeletedAt, commentColumns,
	)

	comment, err := scanComment(repository.db.QueryRow(context, query, id, content))
	if err != nil {
		return nil, dberr.Wrap(err, "update_comment")
	}
	return comment, nil
}

/*
SoftDelete flags a comment deleted, keeping the first deletion timestamp.
*/
func (repository *PostgresRepository) SoftDelete(context context.Context, id string) error {
	t := schema.SocialComment
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = COALESCE(%s, NOW()), %s = NOW()
		WHERE %s = $1`,
		t.Table, t.DeletedAt, t.DeletedAt, t.UpdatedAt, t.ID,
	)

	tag, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "soft_delete_comment")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// # Scanning

func scanComment(row pgx.Row) (*Comment, error) {
	comment := &Comment{}
	err := row.Scan(
		&comment.ID, &comment.EntityID, &comment.UserID, &comment.ParentID, &comment.Content, &comment.RepliesCount,
		&comment.UpvotesCount, &comment.DownvotesCount, &comment.CreatedAt, &comment.UpdatedAt, &comment.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	comment.IsDeleted = comment.DeletedAt != nil
	return comment, nil
}

func collectComments(rows pgx.Rows, action string) ([]*Comment, error) {
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, dberr.Wrap(err, action)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, action)
	}
	return comments, nil
}
