// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// convertHTML turns an HTML file into Markdown. The title is taken from
// the <title> element when present, otherwise from the first Markdown
// heading in the converted output.
func convertHTML(path string) (*types.ConvertedDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	markdown, err := mdConverter.ConvertString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptInput, filepath.Base(path), err)
	}

	title := htmlTitle(string(raw))
	if title == "" {
		title = firstHeading(markdown)
	}

	return &types.ConvertedDocument{
		Path:     path,
		Title:    title,
		Markdown: normalizeWhitespace(markdown),
	}, nil
}

// htmlTitle pulls the content of the first <title> element. Crude string
// scanning is enough here; a missing title falls back to headings.
func htmlTitle(html string) string {
	lower := strings.ToLower(html)
	start := strings.Index(lower, "<title")
	if start < 0 {
		return ""
	}
	open := strings.Index(lower[start:], ">")
	if open < 0 {
		return ""
	}
	rest := html[start+open+1:]
	end := strings.Index(strings.ToLower(rest), "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// firstHeading returns the text of the first Markdown heading line.
func firstHeading(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
	}
	return ""
}
