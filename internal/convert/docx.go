// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// convertDocx parses a .docx file by reading word/document.xml from the
// ZIP archive. Headings become Markdown headings based on paragraph
// style. Embedded images under word/media/ are copied into figuresDir
// when one is given.
func convertDocx(path, figuresDir string) (*types.ConvertedDocument, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptInput, filepath.Base(path), err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("%w: word/document.xml not found in %s", ErrCorruptInput, filepath.Base(path))
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	title, markdown, err := docxToMarkdown(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptInput, filepath.Base(path), err)
	}

	doc := &types.ConvertedDocument{
		Path:     path,
		Title:    title,
		Markdown: markdown,
	}

	if figuresDir != "" {
		doc.EmbeddedImages = extractDocxImages(&r.Reader, figuresDir)
	}

	return doc, nil
}

// docxToMarkdown streams document.xml tokens, mapping styled paragraphs
// to Markdown headings and plain paragraphs to body text.
func docxToMarkdown(r io.Reader) (title, markdown string, err error) {
	decoder := xml.NewDecoder(r)

	var b strings.Builder
	var currentText strings.Builder
	var inParagraph bool
	var paragraphStyle string

	for {
		tok, tokErr := decoder.Token()
		if tokErr != nil {
			if tokErr != io.EOF {
				return "", "", tokErr
			}
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				currentText.Reset()
				paragraphStyle = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						paragraphStyle = attr.Value
					}
				}
			}

		case xml.CharData:
			if inParagraph {
				currentText.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				text := strings.TrimSpace(currentText.String())
				if text == "" {
					continue
				}

				level := headingLevel(paragraphStyle)
				if level > 0 {
					if title == "" {
						title = text
					}
					b.WriteString(strings.Repeat("#", level) + " " + text + "\n\n")
				} else {
					b.WriteString(text + "\n\n")
				}
			}
		}
	}

	return title, strings.TrimSpace(b.String()), nil
}

// headingLevel extracts the heading level from a paragraph style name,
// e.g. "Heading1" → 1, "Title" → 1, "Subtitle" → 2.
func headingLevel(style string) int {
	lower := strings.ToLower(style)

	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}

	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

// extractDocxImages copies image files from the archive's word/media/
// directory into figuresDir and returns their new paths. Extraction
// failures skip the file; a docx with no usable images is normal.
func extractDocxImages(r *zip.Reader, figuresDir string) []string {
	var extracted []string
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, "word/media/") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !isImageExt(ext) {
			continue
		}

		outPath := filepath.Join(figuresDir, filepath.Base(f.Name))
		if err := copyZipEntry(f, outPath); err != nil {
			continue
		}
		extracted = append(extracted, outPath)
	}
	return extracted
}

func isImageExt(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif", ".svg", ".webp":
		return true
	}
	return false
}

func copyZipEntry(f *zip.File, outPath string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
