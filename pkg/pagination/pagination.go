// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// Comment threads grow while people read them, so lists are paged with an
// opaque keyset cursor instead of page numbers: the cursor is the id of the
// last item already delivered, and the next page starts strictly after it.
// Stores fetch limit+1 rows and [Window] turns the extra row into "there is
// a next page".
package pagination

import (
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20
	// MaxLimit is the upper bound for items per page to prevent system abuse.
	MaxLimit = 100
)

// Params holds the parsed cursor and limit from a request's query string.
type Params struct {
	Cursor string
	Limit  int
}

// Probe returns how many rows a store should fetch to detect a next page.
func (p Params) Probe() int {
	return p.Limit + 1
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	Limit      int     `json:"limit"`
	NextCursor *string `json:"next_cursor"`
}

// NewMeta constructs pagination metadata for a response.
func NewMeta(limit int, nextCursor *string) Meta {
	return Meta{Limit: limit, NextCursor: nextCursor}
}

// FromRequest parses "cursor" and "limit" query parameters from an HTTP request.
//
// # Clamping
//
// Invalid or non-positive limits fall back to defaultLimit; limits above
// [MaxLimit] are clamped to it.
func FromRequest(r *http.Request, defaultLimit int) Params {
	limit := parseIntParam(r, "limit", defaultLimit)

	if limit < 1 {
		limit = defaultLimit
	}

	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	}
}

// Window trims a probe result of up to limit+1 items to a page.
//
// It returns the page and, when the probe found more items, the cursor of the
// last item on the page.
func Window[T any](items []T, limit int, id func(T) string) ([]T, *string) {
	if limit < 1 || len(items) <= limit {
		return items, nil
	}

	page := items[:limit]
	next := id(page[len(page)-1])
	return page, &next
}

// parseIntParam parses a single integer query parameter with a fallback default.
func parseIntParam(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}

	return n
}

// Position is a resolved keyset cursor: the sort key of the last delivered item.
//
// Lists are ordered by (created_at DESC, id DESC); the next page holds the
// items strictly after Position in that order.
type Position struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether an item sorting at (createdAt, id) comes after p in
// (created_at DESC, id DESC) order, i.e. belongs to the next page.
func (p Position) Before(createdAt time.Time, id string) bool {
	if !createdAt.Equal(p.CreatedAt) {
		return createdAt.Before(p.CreatedAt)
	}
	return id < p.ID
}
