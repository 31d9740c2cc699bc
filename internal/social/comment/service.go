// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"log/slog"
	"slices"

	"github.com/polutek/tingtong/internal/platform/apperr"
	"github.com/polutek/tingtong/internal/platform/ctxutil"
	"github.com/polutek/tingtong/internal/platform/dberr"
	"github.com/polutek/tingtong/internal/platform/metrics"
	"github.com/polutek/tingtong/internal/platform/ratelimit"
	"github.com/polutek/tingtong/internal/platform/richtext"
	"github.com/polutek/tingtong/internal/platform/validate"
	"github.com/polutek/tingtong/pkg/pagination"
	"github.com/polutek/tingtong/pkg/slice"
	"github.com/polutek/tingtong/pkg/uuid"
)

// # Errors

var (
	// ErrCommentNotFound is returned for unknown ids and, on mutation, deleted comments.
	ErrCommentNotFound = apperr.NotFound("Comment")

	// ErrParentGone rejects a reply to a missing, deleted or foreign comment.
	ErrParentGone = apperr.InvalidArgument(FieldParentID, "Parent comment does not exist or was deleted")

	// ErrUnknownCursor rejects a cursor that does not name an item of the list.
	ErrUnknownCursor = apperr.InvalidArgument(FieldCursor, "Cursor does not belong to this list")
)

// # Collaborators

// VoteLookup reports the viewer's votes ("upvote"/"downvote") keyed by comment id.
type VoteLookup interface {
	UserVotes(ctx context.Context, userID string, commentIDs []string) (map[string]string, error)
}

// ReplyNotifier records that actorID replied to a comment written by recipientID.
type ReplyNotifier interface {
	NotifyReply(ctx context.Context, recipientID, actorID, entityID, commentID string) error
}

// # Service Layer

// Service orchestrates business rules for comments.
type Service struct {
	repo     Repository
	votes    VoteLookup
	notifier ReplyNotifier
	broker   Broker
	guard    *ratelimit.Guard
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures optional collaborators of a [Service].
type Option func(*Service)

// WithVoteLookup fills current_user_vote on returned comments.
func WithVoteLookup(votes VoteLookup) Option {
	return func(service *Service) { service.votes = votes }
}

// WithReplyNotifier stores a notification for the parent's author on replies.
func WithReplyNotifier(notifier ReplyNotifier) Option {
	return func(service *Service) { service.notifier = notifier }
}

// WithBroker publishes created comments for live streams.
func WithBroker(broker Broker) Option {
	return func(service *Service) { service.broker = broker }
}

// WithGuard applies the per-user action budget to comment creation.
func WithGuard(guard *ratelimit.Guard) Option {
	return func(service *Service) { service.guard = guard }
}

// WithMetrics counts orphaned replies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(service *Service) { service.metrics = m }
}

// NewService constructs a new comment [Service].
func NewService(repo Repository, logger *slog.Logger, options ...Option) *Service {
	service := &Service{repo: repo, logger: logger}
	for _, option := range options {
		option(service)
	}
	return service
}

// # Reading

/*
ListRoots returns a page of top-level comments of an entity, newest first.

Returns:
  - []*Comment: Presented comments
  - *string: Cursor of the next page, nil on the last page
  - error: Validation or retrieval failures
*/
func (service *Service) ListRoots(ctx context.Context, entityID string, params pagination.Params, viewerID string) ([]*Comment, *string, error) {
	roots, next, err := service.rootsPage(ctx, entityID, params)
	if err != nil {
		return nil, nil, err
	}

	if err := service.present(ctx, viewerID, roots...); err != nil {
		return nil, nil, err
	}
	return roots, next, nil
}

/*
ThreadPage returns a page of top-level comments threaded with every descendant.

Description: The page is cut on roots only; all replies below the page's roots
are loaded and threaded by [Build], so a root never arrives without its replies.
*/
func (service *Service) ThreadPage(ctx context.Context, entityID string, params pagination.Params, viewerID string) (*ThreadPage, *string, error) {
	roots, next, err := service.rootsPage(ctx, entityID, params)
	if err != nil {
		return nil, nil, err
	}

	rootIDs := slice.Map(roots, CommentID)

	descendants, err := service.repo.ListDescendants(ctx, rootIDs)
	if err != nil {
		return nil, nil, err
	}

	tree, err := service.buildTree(ctx, viewerID, slices.Concat(roots, descendants))
	if err != nil {
		return nil, nil, err
	}

	return &ThreadPage{Tree: tree, RootIDs: rootIDs}, next, nil
}

/*
EntityThread builds the whole thread of an entity.

Returns:
  - *ThreadPage: Every comment threaded, roots newest first
*/
func (service *Service) EntityThread(ctx context.Context, entityID, viewerID string) (*ThreadPage, error) {
	if err := validateEntityID(entityID); err != nil {
		return nil, err
	}

	comments, err := service.repo.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	tree, err := service.buildTree(ctx, viewerID, comments)
	if err != nil {
		return nil, err
	}

	rootIDs := tree.RootIDs()
	slices.Reverse(rootIDs)
	return &ThreadPage{Tree: tree, RootIDs: rootIDs}, nil
}

/*
Get retrieves a single comment. Deleted comments are returned blanked.
*/
func (service *Service) Get(ctx context.Context, id, viewerID string) (*Comment, error) {
	comment, err := service.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := service.present(ctx, viewerID, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

/*
ListReplies returns a page of the direct replies of a comment, newest first.
*/
func (service *Service) ListReplies(ctx context.Context, parentID string, params pagination.Params, viewerID string) ([]*Comment, *string, error) {
	if _, err := service.find(ctx, parentID); err != nil {
		return nil, nil, err
	}

	after, err := service.resolveCursor(ctx, params.Cursor, func(c *Comment) bool {
		return c.ParentID != nil && *c.ParentID == parentID
	})
	if err != nil {
		return nil, nil, err
	}

	replies, err := service.repo.ListReplies(ctx, parentID, after, params.Probe())
	if err != nil {
		return nil, nil, err
	}

	page, next := pagination.Window(replies, params.Limit, CommentID)
	if err := service.present(ctx, viewerID, page...); err != nil {
		return nil, nil, err
	}
	return page, next, nil
}

// # Mutation

/*
Create validates, stores and announces a new comment or reply.

Description: Content is sanitized before validation. A reply must target a
live comment of the same entity. After the write, the parent's author is
notified and the comment is published to live streams; failures of either
are logged and never fail the request.

Returns:
  - *Comment: The presented comment
  - error: Validation, rate limit or persistence failures
*/
func (service *Service) Create(ctx context.Context, userID, entityID string, input CreateInput) (*Comment, error) {
	content := richtext.Sanitize(input.Content)
	if input.ParentID != nil && *input.ParentID == "" {
		input.ParentID = nil
	}

	validator := &validate.Validator{}
	validator.Required(FieldEntityID, entityID).MaxLen(FieldEntityID, entityID, MaxEntityIDLength)
	validateContent(validator, content)
	validator.OptionalUUID(FieldParentID, input.ParentID)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.guard.Check(ctx, userID); err != nil {
		return nil, err
	}

	var parent *Comment
	if input.ParentID != nil {
		found, err := service.repo.FindByID(ctx, *input.ParentID)
		if dberr.IsNotFound(err) {
			return nil, ErrParentGone
		}
		if err != nil {
			return nil, err
		}
		if found.IsDeleted || found.EntityID != entityID {
			return nil, ErrParentGone
		}
		parent = found
	}

	comment := &Comment{
		ID:       uuid.New(),
		EntityID: entityID,
		UserID:   userID,
		ParentID: input.ParentID,
		Content:  content,
	}

	if err := service.repo.Create(ctx, comment); err != nil {
		return nil, err
	}

	logger := ctxutil.LoggerOr(ctx, service.logger)
	logger.Info("comment_created",
		slog.String("comment_id", comment.ID),
		slog.String("entity_id", entityID),
		slog.Bool("is_reply", parent != nil),
	)

	if parent != nil && parent.UserID != userID && service.notifier != nil {
		if err := service.notifier.NotifyReply(ctx, parent.UserID, userID, entityID, comment.ID); err != nil {
			logger.Error("reply_notification_failed",
				slog.String("comment_id", comment.ID),
				slog.Any("error", err),
			)
		}
	}

	if err := service.present(ctx, "", comment); err != nil {
		return nil, err
	}

	service.publish(ctx, comment)
	return comment, nil
}

/*
Update replaces the content of the caller's own live comment.
*/
func (service *Service) Update(ctx context.Context, actor Actor, id string, input UpdateInput) (*Comment, error) {
	content := richtext.Sanitize(input.Content)

	validator := &validate.Validator{}
	validateContent(validator, content)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	existing, err := service.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted {
		return nil, ErrCommentNotFound
	}
	if existing.UserID != actor.UserID {
		return nil, apperr.Forbidden("You can only edit your own comments")
	}

	updated, err := service.repo.UpdateContent(ctx, id, content)
	if dberr.IsNotFound(err) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}

	ctxutil.LoggerOr(ctx, service.logger).Info("comment_updated", slog.String("comment_id", id))

	if err := service.present(ctx, actor.UserID, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

/*
Delete soft-deletes a comment. Owners and moderators may delete; deleting an
already deleted comment succeeds without change.
*/
func (service *Service) Delete(ctx context.Context, actor Actor, id string) error {
	existing, err := service.find(ctx, id)
	if err != nil {
		return err
	}

	if existing.UserID != actor.UserID && !actor.CanModerate {
		return apperr.Forbidden("You can only delete your own comments")
	}

	if existing.IsDeleted {
		return nil
	}

	if err := service.repo.SoftDelete(ctx, id); err != nil {
		if dberr.IsNotFound(err) {
			return ErrCommentNotFound
		}
		return err
	}

	ctxutil.LoggerOr(ctx, service.logger).Info("comment_deleted",
		slog.String("comment_id", id),
		slog.Bool("by_moderator", existing.UserID != actor.UserID),
	)
	return nil
}

// # Streaming

// Subscribe exposes the entity's live events. It fails if no broker is configured.
func (service *Service) Subscribe(ctx context.Context, entityID string) (<-chan Event, func(), error) {
	if err := validateEntityID(entityID); err != nil {
		return nil, nil, err
	}
	if service.broker == nil {
		return nil, nil, apperr.ServiceUnavailable("Live comments are not available")
	}
	return service.broker.Subscribe(ctx, entityID)
}

func (service *Service) publish(ctx context.Context, comment *Comment) {
	if service.broker == nil {
		return
	}

	// Publish after the request is answered must not be cancelled with it.
	publishCtx := context.WithoutCancel(ctx)
	if err := service.broker.Publish(publishCtx, comment.EntityID, Event{Type: EventCommentCreated, Comment: comment}); err != nil {
		ctxutil.LoggerOr(ctx, service.logger).Warn("comment_publish_failed",
			slog.String("comment_id", comment.ID),
			slog.Any("error", err),
		)
	}
}

// # Helpers

// rootsPage validates the request and cuts one keyset page of roots.
func (service *Service) rootsPage(ctx context.Context, entityID string, params pagination.Params) ([]*Comment, *string, error) {
	if err := validateEntityID(entityID); err != nil {
		return nil, nil, err
	}

	after, err := service.resolveCursor(ctx, params.Cursor, func(c *Comment) bool {
		return c.IsRoot() && c.EntityID == entityID
	})
	if err != nil {
		return nil, nil, err
	}

	roots, err := service.repo.ListRoots(ctx, entityID, after, params.Probe())
	if err != nil {
		return nil, nil, err
	}

	page, next := pagination.Window(roots, params.Limit, CommentID)
	return page, next, nil
}

// resolveCursor turns an opaque cursor into a keyset position.
func (service *Service) resolveCursor(ctx context.Context, cursor string, belongs func(*Comment) bool) (*pagination.Position, error) {
	if cursor == "" {
		return nil, nil
	}
	if !validate.IsUUID(cursor) {
		return nil, apperr.InvalidArgument(FieldCursor, "Must be a valid UUID")
	}

	anchor, err := service.repo.FindByID(ctx, cursor)
	if dberr.IsNotFound(err) {
		return nil, ErrUnknownCursor
	}
	if err != nil {
		return nil, err
	}
	if !belongs(anchor) {
		return nil, ErrUnknownCursor
	}

	position := anchor.Position()
	return &position, nil
}

// find loads a comment by id, mapping absence to [ErrCommentNotFound].
func (service *Service) find(ctx context.Context, id string) (*Comment, error) {
	if !validate.IsUUID(id) {
		return nil, ErrCommentNotFound
	}

	comment, err := service.repo.FindByID(ctx, id)
	if dberr.IsNotFound(err) {
		return nil, ErrCommentNotFound
	}
	return comment, err
}

// buildTree presents comments and threads them, counting orphans.
func (service *Service) buildTree(ctx context.Context, viewerID string, comments []*Comment) (Tree, error) {
	if err := service.present(ctx, viewerID, comments...); err != nil {
		return nil, err
	}

	tree, orphans := Build(comments, ctxutil.LoggerOr(ctx, service.logger))
	service.metrics.OrphanedReply(len(orphans))
	return tree, nil
}

// present prepares comments for output in place: deleted comments lose their
// content, live ones gain content_html, and the viewer's votes are attached.
func (service *Service) present(ctx context.Context, viewerID string, comments ...*Comment) error {
	for _, comment := range comments {
		comment.IsDeleted = comment.DeletedAt != nil
		if comment.IsDeleted {
			comment.Content = ""
			comment.ContentHTML = ""
			continue
		}
		comment.ContentHTML = richtext.Render(comment.Content)
	}

	if viewerID == "" || service.votes == nil || len(comments) == 0 {
		return nil
	}

	votes, err := service.votes.UserVotes(ctx, viewerID, slice.Map(comments, CommentID))
	if err != nil {
		return err
	}

	for _, comment := range comments {
		if voteType, found := votes[comment.ID]; found {
			value := voteType
			comment.CurrentUserVote = &value
		}
	}
	return nil
}

func validateEntityID(entityID string) error {
	validator := &validate.Validator{}
	validator.Required(FieldEntityID, entityID).MaxLen(FieldEntityID, entityID, MaxEntityIDLength)
	return validator.Err()
}

func validateContent(validator *validate.Validator, content string) {
	validator.Required(FieldContent, content).MaxLen(FieldContent, content, MaxContentLength)
}
