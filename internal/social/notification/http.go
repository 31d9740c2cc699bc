// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/polutek/tingtong/internal/platform/middleware"
	requestutil "github.com/polutek/tingtong/internal/platform/request"
	"github.com/polutek/tingtong/internal/platform/respond"
	"github.com/polutek/tingtong/pkg/pagination"
)

// Handler implements the HTTP layer for notifications.
type Handler struct {
	service *Service
}

// NewHandler constructs a notification [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a router to be mounted at /notifications. Every route
// requires authentication.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Get("/unread-count", handler.unreadCount)
	router.Post("/read-all", handler.markAllRead)
	router.Post("/{notificationID}/read", handler.markRead)

	return router
}

/*
GET /api/v1/notifications.

Request:
  - cursor: string (id of the last notification of the previous page)
  - limit: int (default 20, max 100)

Response:
  - 200: []Notification with meta.next_cursor
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request, pagination.DefaultLimit)
	notifications, next, err := handler.service.List(request.Context(), userID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if notifications == nil {
		notifications = []*Notification{}
	}
	respond.Paginated(writer, notifications, pagination.NewMeta(params.Limit, next))
}

/*
GET /api/v1/notifications/unread-count.

Response:
  - 200: {count}
*/
func (handler *Handler) unreadCount(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.service.UnreadCount(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, UnreadCount{Count: count})
}

/*
POST /api/v1/notifications/{notificationID}/read.

Response:
  - 200: Notification
  - 404: ErrNotFound: Missing or owned by someone else
*/
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	notification, err := handler.service.MarkRead(request.Context(), userID, requestutil.Param(request, "notificationID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, notification)
}

// POST /api/v1/notifications/read-all.
func (handler *Handler) markAllRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	changed, err := handler.service.MarkAllRead(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, UnreadCount{Count: changed})
}
