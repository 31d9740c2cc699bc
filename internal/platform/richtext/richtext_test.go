// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package richtext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polutek/tingtong/internal/platform/richtext"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  hello  ", "hello"},
		{"strips tags", "<b>bold</b> move", "bold move"},
		{"drops script bodies", "hi<script>alert(1)</script>", "hi"},
		{"keeps comparison text", "1 < 2 & 3 > 1", "1 < 2 & 3 > 1"},
		{"normalizes to NFC", "cafe\u0301", "caf\u00e9"},
		{"whitespace only becomes empty", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, richtext.Sanitize(tt.in))
		})
	}
}

func TestRender(t *testing.T) {
	assert.Equal(t, "", richtext.Render(""))
	assert.Contains(t, richtext.Render("**great** episode"), "<strong>great</strong>")

	rendered := richtext.Render("<script>alert(1)</script>")
	assert.NotContains(t, rendered, "<script")

	link := richtext.Render("[x](javascript:alert(1))")
	assert.NotContains(t, link, "javascript:")

	external := richtext.Render("see https://tingtong.app")
	assert.Contains(t, external, "nofollow")
	assert.Contains(t, external, "noreferrer")
}
