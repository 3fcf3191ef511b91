// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert normalizes convertible documents (docx, odt, pdf, html,
// md, txt) into Markdown for the generation context. Each format has its
// own extractor; conversion failures demote the artifact to unsupported
// instead of aborting the run.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// Typed conversion failures. The pipeline treats them all the same way
// (demote to unsupported, continue) but reports them differently.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrCorruptInput      = errors.New("corrupt document")
	ErrToolUnavailable   = errors.New("conversion tool unavailable")
	ErrTooLarge          = errors.New("document exceeds size limit")
)

// Converter turns one document artifact into structured text.
type Converter struct {
	cfg types.ConvertConfig
	pdf pdfExtractor
}

// New creates a Converter. The pdftotext binary is resolved lazily on
// first PDF conversion.
func New(cfg types.ConvertConfig) *Converter {
	return &Converter{cfg: cfg, pdf: &pdftotext{exec: defaultExec}}
}

// Convert extracts Markdown from the document at path. figuresDir
// receives embedded images pulled out of container formats (docx);
// it may be empty to skip embedded-image extraction.
func (c *Converter) Convert(path, figuresDir string) (*types.ConvertedDocument, error) {
	if c.cfg.MaxFileSize > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > c.cfg.MaxFileSize {
			return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)",
				ErrTooLarge, filepath.Base(path), info.Size(), c.cfg.MaxFileSize)
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".docx":
		return convertDocx(path, figuresDir)
	case ".odt":
		return convertODT(path)
	case ".html", ".htm":
		return convertHTML(path)
	case ".md", ".markdown", ".txt":
		return convertText(path)
	case ".pdf":
		return c.convertPDF(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// BatchOutcome pairs one input artifact with its conversion result.
type BatchOutcome struct {
	Artifact types.Artifact
	Doc      *types.ConvertedDocument
	Err      error
}

// ConvertBatch converts independent document artifacts concurrently,
// bounded by the configured concurrency limit. Conversions share no
// mutable state, so a failure in one never affects the others. Outcomes
// are returned in input order; per-file status lines go to w.
func (c *Converter) ConvertBatch(ctx context.Context, artifacts []types.Artifact, figuresDir string, w io.Writer) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(artifacts))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i, a := range artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = BatchOutcome{Artifact: a, Err: err}
				return nil
			}

			doc, err := c.Convert(a.Path, figuresDir)
			outcomes[i] = BatchOutcome{Artifact: a, Doc: doc, Err: err}

			mu.Lock()
			defer mu.Unlock()
			base := filepath.Base(a.Path)
			if err != nil {
				fmt.Fprintf(w, "failed:    %s (%v)\n", base, err)
			} else {
				fmt.Fprintf(w, "converted: %s\n", base)
			}
			return nil
		})
	}
	g.Wait()

	return outcomes
}

// normalizeWhitespace collapses runs of blank lines and trims trailing
// spaces, the only cleanup applied to passthrough formats.
func normalizeWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
