// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package slice complements the standard [slices] package with the two
projections the services keep writing by hand: pulling ids out of records
and dropping malformed ids before a query.
*/
package slice

// Map returns transform applied to every element, preserving order.
//
// A nil input yields nil and an empty non-nil input yields an empty non-nil
// slice, so JSON encoding of the result keeps the null/[] distinction.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}
	return result
}

// Filter returns the elements for which keep reports true, preserving order.
// The input is never modified.
func Filter[T any](input []T, keep func(T) bool) []T {
	if input == nil {
		return nil
	}

	result := make([]T, 0, len(input))
	for _, v := range input {
		if keep(v) {
			result = append(result, v)
		}
	}
	return result
}
