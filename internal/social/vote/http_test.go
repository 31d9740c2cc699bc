// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package vote_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polutek/tingtong/internal/platform/ctxutil"
	"github.com/polutek/tingtong/internal/platform/sec"
	"github.com/polutek/tingtong/internal/social/vote"
)

func serveVote(t *testing.T, router http.Handler, id, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(http.MethodPost, "/comments/"+id+"/vote", strings.NewReader(body))
	if userID != "" {
		request = request.WithContext(ctxutil.WithAuthUser(request.Context(), &sec.AuthClaims{UserID: userID, Role: "member"}))
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestHTTP_CastVote(t *testing.T) {
	f := newLedgerFixture(t, nil, nil)
	router := chi.NewRouter()
	vote.NewHandler(f.ledger).Register(router)

	recorder := serveVote(t, router, commentID, "", `{"vote_type":"upvote"}`)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = serveVote(t, router, commentID, bob, `{"vote_type":"upvote"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.JSONEq(t, `{"data":{"new_status":"upvoted","upvotes_count":1,"downvotes_count":0}}`, recorder.Body.String())

	recorder = serveVote(t, router, commentID, bob, `{"vote_type":"downvote"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	var envelope struct {
		Data vote.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, vote.Result{NewStatus: vote.StatusDownvoted, DownvotesCount: 1}, envelope.Data)

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{"unknown type", commentID, `{"vote_type":"meh"}`, http.StatusBadRequest},
		{"bad json", commentID, `{`, http.StatusBadRequest},
		{"malformed id", "nope", `{"vote_type":"upvote"}`, http.StatusBadRequest},
		{"deleted comment", deletedID, `{"vote_type":"upvote"}`, http.StatusNotFound},
		{"missing comment", missingID, `{"vote_type":"upvote"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, serveVote(t, router, tt.id, bob, tt.body).Code)
		})
	}
}
