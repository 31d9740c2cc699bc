// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polutek/tingtong/internal/platform/constants"
	"github.com/polutek/tingtong/internal/platform/ctxutil"
	requestutil "github.com/polutek/tingtong/internal/platform/request"
	"github.com/polutek/tingtong/internal/platform/respond"
)

// pongWait is how long a client may stay silent before it is considered gone.
const pongWait = constants.StreamPingInterval * 2

/*
GET /api/v1/entities/{entityID}/comments/stream.

Description: Upgrades to a WebSocket and relays every comment created on the
entity as a JSON frame {"type":"comment_created","comment":{...}}. The server
pings idle connections and closes the socket when the client stops answering.

Response:
  - 101: Switching Protocols
  - 400: ErrValidation: Bad entity id
  - 503: ErrServiceUnavailable: No broker configured
*/
func (handler *Handler) stream(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithCancel(request.Context())
	defer cancel()

	events, unsubscribe, err := handler.service.Subscribe(ctx, requestutil.Param(request, "entityID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer unsubscribe()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     handler.checkOrigin,
	}

	// Upgrade writes its own HTTP error on failure.
	connection, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		return
	}
	defer connection.Close()

	logger := ctxutil.LoggerOr(ctx, handler.service.logger)
	logger.Debug("comment_stream_opened")

	// The client never sends data frames; reading drives pong handling and
	// notices when the peer goes away.
	go func() {
		defer cancel()

		connection.SetReadLimit(512)
		_ = connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(string) error {
			return connection.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(constants.StreamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("comment_stream_closed")
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			_ = connection.SetWriteDeadline(time.Now().Add(constants.StreamWriteTimeout))
			if err := connection.WriteJSON(event); err != nil {
				logger.Debug("comment_stream_write_failed", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(constants.StreamWriteTimeout)
			if err := connection.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (handler *Handler) checkOrigin(request *http.Request) bool {
	origin := request.Header.Get(constants.HeaderOrigin)
	if origin == "" || handler.origins == nil {
		return true
	}
	return handler.origins(origin)
}
