// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notification_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polutek/tingtong/internal/platform/ctxutil"
	"github.com/polutek/tingtong/internal/platform/sec"
	"github.com/polutek/tingtong/internal/social/notification"
)

func serve(t *testing.T, router http.Handler, method, path, userID string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(method, path, nil)
	if userID != "" {
		request = request.WithContext(ctxutil.WithAuthUser(request.Context(), &sec.AuthClaims{UserID: userID}))
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestHTTP_Notifications(t *testing.T) {
	service, _ := newService()
	require.NoError(t, service.NotifyReply(context.Background(), alice, bob, "E1", "c1"))
	router := notification.NewHandler(service).Routes()

	assert.Equal(t, http.StatusUnauthorized, serve(t, router, http.MethodGet, "/", "").Code)

	recorder := serve(t, router, http.MethodGet, "/unread-count", alice)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":{"count":1}}`, recorder.Body.String())

	recorder = serve(t, router, http.MethodGet, "/?limit=5", alice)
	require.Equal(t, http.StatusOK, recorder.Code)
	var page struct {
		Data []notification.Notification `json:"data"`
		Meta struct {
			Limit      int     `json:"limit"`
			NextCursor *string `json:"next_cursor"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, 5, page.Meta.Limit)
	assert.Nil(t, page.Meta.NextCursor)

	id := page.Data[0].ID
	assert.Equal(t, http.StatusNotFound, serve(t, router, http.MethodPost, "/"+id+"/read", bob).Code)
	assert.Equal(t, http.StatusOK, serve(t, router, http.MethodPost, "/"+id+"/read", alice).Code)

	recorder = serve(t, router, http.MethodGet, "/", bob)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":[],"meta":{"limit":20,"next_cursor":null}}`, recorder.Body.String())

	recorder = serve(t, router, http.MethodPost, "/read-all", alice)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":{"count":0}}`, recorder.Body.String())
}
