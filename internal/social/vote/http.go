// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package vote

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polutek/tingtong/internal/platform/middleware"
	requestutil "github.com/polutek/tingtong/internal/platform/request"
	"github.com/polutek/tingtong/internal/platform/respond"
)

// Handler implements the HTTP layer for the vote ledger.
type Handler struct {
	ledger *Ledger
}

// NewHandler constructs a new vote [Handler].
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// Register mounts the vote endpoint on router (the /api/v1 group).
func (handler *Handler) Register(router chi.Router) {
	router.With(middleware.RequireAuth).Post("/comments/{commentID}/vote", handler.castVote)
}

/*
POST /api/v1/comments/{commentID}/vote.

Description: Toggles the caller's vote. Casting the same type twice removes
the vote; casting the other type switches it.

Request (Body):
  - vote_type: string ("upvote" or "downvote")

Response:
  - 200: Result: {new_status, upvotes_count, downvotes_count}
  - 400: ErrValidation: Unknown vote type or malformed id
  - 401: ErrUnauthorized: Authentication required
  - 404: ErrNotFound: Comment missing or deleted
  - 429: ErrRateLimited: Action budget exhausted
*/
func (handler *Handler) castVote(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.UUIDParam(request, "commentID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CastInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.ledger.Cast(request.Context(), userID, commentID, input.VoteType)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}
