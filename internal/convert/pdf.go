// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

const binPdftotext = "pdftotext"

// pdfExtractor abstracts PDF text extraction for testing.
type pdfExtractor interface {
	Extract(path string) (string, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunPiped(name string, args []string, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunPiped(name string, args []string, stdout io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %s", err, msg)
		}
		return err
	}
	return nil
}

var defaultExec executor = &osExecutor{}

// pdftotext shells out to the poppler pdftotext binary with layout
// preservation. Missing binary is a tooling failure, not a document one.
type pdftotext struct {
	exec executor
}

func (p *pdftotext) Extract(path string) (string, error) {
	if _, err := p.exec.LookPath(binPdftotext); err != nil {
		return "", fmt.Errorf("%w: %s not on PATH", ErrToolUnavailable, binPdftotext)
	}

	var out bytes.Buffer
	// "-" writes extracted text to stdout.
	if err := p.exec.RunPiped(binPdftotext, []string{"-layout", path, "-"}, &out); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptInput, filepath.Base(path), err)
	}
	return out.String(), nil
}

func (c *Converter) convertPDF(path string) (*types.ConvertedDocument, error) {
	text, err := c.pdf.Extract(path)
	if err != nil {
		return nil, err
	}

	markdown := normalizeWhitespace(text)
	if markdown == "" {
		return nil, fmt.Errorf("%w: %s: no extractable text", ErrCorruptInput, filepath.Base(path))
	}

	return &types.ConvertedDocument{
		Path:     path,
		Title:    pdfTitle(markdown),
		Markdown: markdown,
	}, nil
}

// pdfTitle guesses a title from the first non-empty line of extracted
// text, truncated to keep absurdly long lines out of metadata.
func pdfTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > 120 {
			trimmed = trimmed[:120]
		}
		return trimmed
	}
	return ""
}
