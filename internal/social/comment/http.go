// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polutek/tingtong/internal/platform/apperr"
	"github.com/polutek/tingtong/internal/platform/middleware"
	requestutil "github.com/polutek/tingtong/internal/platform/request"
	"github.com/polutek/tingtong/internal/platform/respond"
	"github.com/polutek/tingtong/internal/platform/sec"
	"github.com/polutek/tingtong/pkg/pagination"
)

// # Handler Implementation

// Handler implements the HTTP layer for comment operations.
type Handler struct {
	service *Service
	origins OriginChecker
}

// OriginChecker decides whether a WebSocket handshake Origin is acceptable.
type OriginChecker func(origin string) bool

// NewHandler constructs a new comment [Handler].
func NewHandler(service *Service, origins OriginChecker) *Handler {
	return &Handler{service: service, origins: origins}
}

// Register mounts the comment endpoints on router (the /api/v1 group).
//
// Comment routes share the /comments prefix with the vote endpoint, so they
// are registered on the parent router instead of being mounted as a sub-router.
func (handler *Handler) Register(router chi.Router) {

	// ## Entity Threads
	router.Get("/entities/{entityID}/comments", handler.listEntityComments)
	router.Get("/entities/{entityID}/comments/tree", handler.entityTree)
	router.With(middleware.RequireAuth).Post("/entities/{entityID}/comments", handler.createComment)

	// ## Single Comments
	router.Get("/comments/{commentID}", handler.getComment)
	router.Get("/comments/{commentID}/replies", handler.listReplies)
	router.With(middleware.RequireAuth).Patch("/comments/{commentID}", handler.updateComment)
	router.With(middleware.RequireAuth).Delete("/comments/{commentID}", handler.deleteComment)
}

// RegisterStream mounts the long-lived WebSocket endpoint.
//
// It must be registered outside the request timeout middleware.
func (handler *Handler) RegisterStream(router chi.Router) {
	router.Get("/entities/{entityID}/comments/stream", handler.stream)
}

// # Thread Endpoints

/*
GET /api/v1/entities/{entityID}/comments.

Description: Retrieves a page of top-level comments, newest first.

Request:
  - cursor: string (id of the last comment of the previous page)
  - limit: int (default 20, max 100)
  - view: "tree" (default, roots threaded with all their replies) or "flat"

Response:
  - 200: ThreadPage or []Comment with meta.next_cursor
  - 400: ErrValidation: Bad cursor or view
*/
func (handler *Handler) listEntityComments(writer http.ResponseWriter, request *http.Request) {
	entityID := requestutil.Param(request, "entityID")
	params := pagination.FromRequest(request, pagination.DefaultLimit)
	viewerID := viewer(request)

	switch View(request.URL.Query().Get("view")) {
	case "", ViewTree:
		page, next, err := handler.service.ThreadPage(request.Context(), entityID, params, viewerID)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.Paginated(writer, page, pagination.NewMeta(params.Limit, next))

	case ViewFlat:
		roots, next, err := handler.service.ListRoots(request.Context(), entityID, params, viewerID)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.Paginated(writer, nonNil(roots), pagination.NewMeta(params.Limit, next))

	default:
		respond.Error(writer, request, apperr.InvalidArgument(FieldView, "Must be one of: tree, flat"))
	}
}

/*
GET /api/v1/entities/{entityID}/comments/tree.

Description: Builds the whole thread of an entity in one response.

Response:
  - 200: ThreadPage
*/
func (handler *Handler) entityTree(writer http.ResponseWriter, request *http.Request) {
	thread, err := handler.service.EntityThread(request.Context(), requestutil.Param(request, "entityID"), viewer(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, thread)
}

/*
POST /api/v1/entities/{entityID}/comments.

Request (Body):
  - content: string (1..1000 characters)
  - parent_id: string (optional, UUID of a live comment of the same entity)

Response:
  - 201: Comment: Created object
  - 400: ErrValidation: Invalid content or parent
  - 401: ErrUnauthorized: Authentication required
  - 429: ErrRateLimited: Action budget exhausted
*/
func (handler *Handler) createComment(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	comment, err := handler.service.Create(request.Context(), userID, requestutil.Param(request, "entityID"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, comment)
}

// # Comment Endpoints

/*
GET /api/v1/comments/{commentID}.

Response:
  - 200: Comment
  - 400: ErrValidation: Malformed id
  - 404: ErrNotFound
*/
func (handler *Handler) getComment(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.UUIDParam(request, "commentID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	comment, err := handler.service.Get(request.Context(), commentID, viewer(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, comment)
}

/*
GET /api/v1/comments/{commentID}/replies.

Request:
  - cursor, limit (default 10, max 100)

Response:
  - 200: []Comment with meta.next_cursor
*/
func (handler *Handler) listReplies(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.UUIDParam(request, "commentID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request, DefaultRepliesLimit)
	replies, next, err := handler.service.ListReplies(request.Context(), commentID, params, viewer(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, nonNil(replies), pagination.NewMeta(params.Limit, next))
}

/*
PATCH /api/v1/comments/{commentID}.

Request (Body):
  - content: string

Response:
  - 200: Comment
  - 403: ErrForbidden: Not the author
  - 404: ErrNotFound: Missing or deleted
*/
func (handler *Handler) updateComment(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.UUIDParam(request, "commentID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input UpdateInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	comment, err := handler.service.Update(request.Context(), actor, commentID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, comment)
}

/*
DELETE /api/v1/comments/{commentID}.

Response:
  - 204: Deleted (or already deleted)
  - 403: ErrForbidden: Neither author nor moderator
  - 404: ErrNotFound
*/
func (handler *Handler) deleteComment(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.UUIDParam(request, "commentID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	actor, err := actorFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), actor, commentID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Helpers

// viewer returns the caller's id, or "" for anonymous readers.
func viewer(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	return ""
}

func actorFrom(request *http.Request) (Actor, error) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		return Actor{}, err
	}
	return Actor{
		UserID:      claims.UserID,
		CanModerate: sec.UserRole(claims.Role).CanModerate(),
	}, nil
}

// nonNil makes empty pages encode as [] rather than null.
func nonNil(comments []*Comment) []*Comment {
	if comments == nil {
		return []*Comment{}
	}
	return comments
}
