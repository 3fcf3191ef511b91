// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// convertText handles formats that are already text (md, markdown, txt).
// Only whitespace normalization is applied. The title comes from the
// first Markdown heading when one exists.
func convertText(path string) (*types.ConvertedDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	markdown := normalizeWhitespace(string(raw))
	return &types.ConvertedDocument{
		Path:     path,
		Title:    firstHeading(markdown),
		Markdown: markdown,
	}, nil
}
