// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer provides generic helpers for optional values.

Nullable columns (parent id, deleted_at, the viewer's vote) are modelled as
pointers throughout the domain, and these helpers keep call sites short.
*/
package pointer

// To returns a pointer to the provided value.
func To[T any](v T) *T {
	return &v
}

// Clone returns a pointer to a copy of *p, or nil for nil.
//
// Stores hand out copies of their records; cloning the optional fields keeps
// callers from mutating shared state through them.
func Clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
