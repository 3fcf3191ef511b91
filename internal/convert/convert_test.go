// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// writeZip builds a minimal ZIP archive with the given entries.
func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, data := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

const docxBody = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Study of Widgets</w:t></w:r></w:p>
    <w:p><w:r><w:t>First paragraph of text.</w:t></w:r></w:p>
    <w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Methods</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestConvertDocx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.docx")
	writeZip(t, path, map[string][]byte{
		"word/document.xml":   []byte(docxBody),
		"word/media/fig1.png": []byte("\x89PNG\r\n\x1a\nimagedata"),
	})

	figuresDir := filepath.Join(dir, "figures")
	doc, err := convertDocx(path, figuresDir)
	require.NoError(t, err)

	assert.Equal(t, "Study of Widgets", doc.Title)
	assert.Contains(t, doc.Markdown, "# Study of Widgets")
	assert.Contains(t, doc.Markdown, "## Methods")
	assert.Contains(t, doc.Markdown, "First paragraph of text.")

	require.Len(t, doc.EmbeddedImages, 1)
	assert.FileExists(t, doc.EmbeddedImages[0])
	assert.Equal(t, "fig1.png", filepath.Base(doc.EmbeddedImages[0]))
}

func TestConvertDocx_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip archive"), 0o644))

	_, err := convertDocx(path, "")
	assert.ErrorIs(t, err, ErrCorruptInput)
}

const odtContent = `<?xml version="1.0"?>
<office:document-content
    xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
    xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
  <office:body><office:text>
    <text:h text:outline-level="1">Widget Survey</text:h>
    <text:p>Opening remarks.</text:p>
    <text:h text:outline-level="2">Background</text:h>
    <text:p>More detail.</text:p>
  </office:text></office:body>
</office:document-content>`

func TestConvertODT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.odt")
	writeZip(t, path, map[string][]byte{
		"content.xml": []byte(odtContent),
	})

	doc, err := convertODT(path)
	require.NoError(t, err)

	assert.Equal(t, "Widget Survey", doc.Title)
	assert.Contains(t, doc.Markdown, "# Widget Survey")
	assert.Contains(t, doc.Markdown, "## Background")
	assert.Contains(t, doc.Markdown, "Opening remarks.")
}

func TestConvertODT_MissingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.odt")
	writeZip(t, path, map[string][]byte{"mimetype": []byte("application/vnd.oasis.opendocument.text")})

	_, err := convertODT(path)
	assert.ErrorIs(t, err, ErrCorruptInput)
}

func TestConvertHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	html := `<html><head><title>Widget Findings</title></head>
<body><h1>Widget Findings</h1><p>Some body text.</p></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	doc, err := convertHTML(path)
	require.NoError(t, err)

	assert.Equal(t, "Widget Findings", doc.Title)
	assert.Contains(t, doc.Markdown, "Widget Findings")
	assert.Contains(t, doc.Markdown, "Some body text.")
}

func TestConvertText_TitleFromHeading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readme.md")
	content := "# Project Alpha\n\n\n\nBody line.\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, err := convertText(path)
	require.NoError(t, err)

	assert.Equal(t, "Project Alpha", doc.Title)
	// Blank-line runs collapse to one.
	assert.Equal(t, "# Project Alpha\n\nBody line.", doc.Markdown)
}

// fakeExec scripts LookPath and RunPiped behavior.
type fakeExec struct {
	lookPathErr error
	runErr      error
	stdout      string
	calls       []string
}

func (f *fakeExec) LookPath(file string) (string, error) {
	if f.lookPathErr != nil {
		return "", f.lookPathErr
	}
	return "/usr/bin/" + file, nil
}

func (f *fakeExec) RunPiped(name string, args []string, stdout io.Writer) error {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if f.runErr != nil {
		return f.runErr
	}
	_, err := io.WriteString(stdout, f.stdout)
	return err
}

func TestConvertPDF(t *testing.T) {
	c := New(types.ConvertConfig{Concurrency: 1})
	c.pdf = &pdftotext{exec: &fakeExec{stdout: "Deep Results\n\nExtracted body text.\n"}}

	doc, err := c.Convert("paper.pdf", "")
	require.NoError(t, err)

	assert.Equal(t, "Deep Results", doc.Title)
	assert.Contains(t, doc.Markdown, "Extracted body text.")
}

func TestConvertPDF_ToolMissing(t *testing.T) {
	c := New(types.ConvertConfig{Concurrency: 1})
	c.pdf = &pdftotext{exec: &fakeExec{lookPathErr: errors.New("not found")}}

	_, err := c.Convert("paper.pdf", "")
	assert.ErrorIs(t, err, ErrToolUnavailable)
}

func TestConvertPDF_EmptyOutput(t *testing.T) {
	c := New(types.ConvertConfig{Concurrency: 1})
	c.pdf = &pdftotext{exec: &fakeExec{stdout: "   \n  \n"}}

	_, err := c.Convert("scan.pdf", "")
	assert.ErrorIs(t, err, ErrCorruptInput)
}

func TestConvert_RejectsOversizedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.md")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), 256), 0o644))

	c := New(types.ConvertConfig{MaxFileSize: 64, Concurrency: 1})
	_, err := c.Convert(path, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)

	// Under the cap the same file converts.
	c = New(types.ConvertConfig{MaxFileSize: 1024, Concurrency: 1})
	_, err = c.Convert(path, "")
	assert.NoError(t, err)
}

func TestConvert_UnsupportedExtension(t *testing.T) {
	c := New(types.ConvertConfig{Concurrency: 1})
	_, err := c.Convert("archive.tar.gz", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestConvertBatch_OutcomesInInputOrder(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "ok.md")
	require.NoError(t, os.WriteFile(good, []byte("# Good\n\ntext"), 0o644))

	bad := filepath.Join(dir, "bad.docx")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	artifacts := []types.Artifact{
		{Path: bad, Category: types.CategoryDocument},
		{Path: good, Category: types.CategoryDocument},
	}

	c := New(types.ConvertConfig{Concurrency: 2})
	var buf bytes.Buffer
	outcomes := c.ConvertBatch(context.Background(), artifacts, "", &buf)

	require.Len(t, outcomes, 2)
	assert.Equal(t, bad, outcomes[0].Artifact.Path)
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, good, outcomes[1].Artifact.Path)
	require.NoError(t, outcomes[1].Err)
	assert.Equal(t, "Good", outcomes[1].Doc.Title)

	out := buf.String()
	assert.Contains(t, out, "failed:    bad.docx")
	assert.Contains(t, out, "converted: ok.md")
}

func TestConvertBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(types.ConvertConfig{Concurrency: 1})
	outcomes := c.ConvertBatch(ctx, []types.Artifact{{Path: "x.md"}}, "", io.Discard)

	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
}
