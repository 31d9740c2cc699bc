// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the social schema.
//
// Stores that build SQL with fmt.Sprintf reference these values instead of
// repeating string literals, so a column rename is a one-line change.
package schema
