// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// convertODT parses an .odt file by reading content.xml from the ZIP
// archive. OpenDocument headings carry an explicit outline-level
// attribute, so the mapping to Markdown is direct.
func convertODT(path string) (*types.ConvertedDocument, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptInput, filepath.Base(path), err)
	}
	defer r.Close()

	var contentFile *zip.File
	for _, f := range r.File {
		if f.Name == "content.xml" {
			contentFile = f
			break
		}
	}
	if contentFile == nil {
		return nil, fmt.Errorf("%w: content.xml not found in %s", ErrCorruptInput, filepath.Base(path))
	}

	rc, err := contentFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening content.xml: %w", err)
	}
	defer rc.Close()

	title, markdown, err := odtToMarkdown(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptInput, filepath.Base(path), err)
	}

	return &types.ConvertedDocument{
		Path:     path,
		Title:    title,
		Markdown: markdown,
	}, nil
}

func odtToMarkdown(r io.Reader) (title, markdown string, err error) {
	decoder := xml.NewDecoder(r)

	var b strings.Builder
	var currentText strings.Builder
	var inHeading, inParagraph bool
	var headingLevel int

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
			switch t.Name.Local {
			case "h":
				inHeading = true
				currentText.Reset()
				headingLevel = 1
				for _, attr := range t.Attr {
					if attr.Name.Local == "outline-level" {
						if lvl, convErr := strconv.Atoi(attr.Value); convErr == nil && lvl >= 1 && lvl <= 6 {
							headingLevel = lvl
						}
					}
				}
			case "p":
				inParagraph = true
				currentText.Reset()
			}

		case xml.CharData:
			if inHeading || inParagraph {
				currentText.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "h":
				if inHeading {
					inHeading = false
					text := strings.TrimSpace(currentText.String())
					if text == "" {
						continue
					}
					if title == "" {
						title = text
					}
					b.WriteString(strings.Repeat("#", headingLevel) + " " + text + "\n\n")
				}
			case "p":
				if inParagraph {
					inParagraph = false
					text := strings.TrimSpace(currentText.String())
					if text == "" {
						continue
					}
					b.WriteString(text + "\n\n")
				}
			}
		}
	}

	return title, strings.TrimSpace(b.String()), nil
}
