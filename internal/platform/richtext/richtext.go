// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package richtext turns user-submitted comment text into safe stored text and
safe display HTML.

Pipeline:

  - [Sanitize] runs once on write. It normalizes to Unicode NFC, strips every
    HTML tag with bluemonday's strict policy and trims surrounding whitespace.
    The result is plain text and is what the database stores.
  - [Render] runs on every read. It converts the stored text from Markdown
    (GitHub flavour) to HTML with goldmark and passes the result through
    bluemonday's UGC policy.
*/
package richtext

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/unicode/norm"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldhtml.WithHardWraps(),
		),
	)

	// Both policies are safe for concurrent use once configured.
	stripPolicy   = bluemonday.StrictPolicy()
	displayPolicy = newDisplayPolicy()
)

func newDisplayPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
	return policy
}

// Sanitize returns the plain-text form of raw that is safe to store.
//
// The strict policy escapes the text it keeps, so entities are decoded back:
// a comment saying "1 < 2" is stored as written, not as "1 &lt; 2".
func Sanitize(raw string) string {
	normalized := norm.NFC.String(raw)
	stripped := stripPolicy.Sanitize(normalized)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// Render converts stored comment text to display HTML.
//
// An empty input renders to an empty string. Rendering failures fall back to
// the escaped text so a comment is never shown as raw markup.
func Render(text string) string {
	if text == "" {
		return ""
	}

	var buffer bytes.Buffer
	if err := markdown.Convert([]byte(text), &buffer); err != nil {
		return html.EscapeString(text)
	}

	return strings.TrimSpace(displayPolicy.Sanitize(buffer.String()))
}
