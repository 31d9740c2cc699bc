// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polutek/tingtong/pkg/pagination"
)

/*
TestFromRequest_Clamping verifies limit parsing and clamping rules.
*/
func TestFromRequest_Clamping(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		limit  int
		cursor string
	}{
		{"defaults", "", 20, ""},
		{"explicit", "?limit=5&cursor=abc", 5, "abc"},
		{"negative", "?limit=-3", 20, ""},
		{"garbage", "?limit=ten", 20, ""},
		{"too_large", "?limit=1000", pagination.MaxLimit, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/comments"+tt.query, nil)
			params := pagination.FromRequest(request, pagination.DefaultLimit)

			assert.Equal(t, tt.limit, params.Limit)
			assert.Equal(t, tt.cursor, params.Cursor)
			assert.Equal(t, tt.limit+1, params.Probe())
		})
	}
}

/*
TestWindow verifies that the probe row becomes the next cursor.
*/
func TestWindow(t *testing.T) {
	identity := func(s string) string { return s }

	// 1. Probe found an extra row
	page, next := pagination.Window([]string{"a", "b", "c"}, 2, identity)
	assert.Equal(t, []string{"a", "b"}, page)
	require.NotNil(t, next)
	assert.Equal(t, "b", *next)

	// 2. Exactly one page
	page, next = pagination.Window([]string{"a", "b"}, 2, identity)
	assert.Equal(t, []string{"a", "b"}, page)
	assert.Nil(t, next)

	// 3. Empty result
	page, next = pagination.Window([]string{}, 2, identity)
	assert.Empty(t, page)
	assert.Nil(t, next)
}

/*
TestPosition_Before verifies the (created_at DESC, id DESC) successor rule.
*/
func TestPosition_Before(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	position := pagination.Position{CreatedAt: base, ID: "m"}

	assert.True(t, position.Before(base.Add(-time.Second), "z"), "older item follows")
	assert.False(t, position.Before(base.Add(time.Second), "a"), "newer item precedes")
	assert.True(t, position.Before(base, "a"), "same instant, smaller id follows")
	assert.False(t, position.Before(base, "m"), "the cursor item itself is excluded")
	assert.False(t, position.Before(base, "z"), "same instant, larger id precedes")
}
