// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compile renders the drafted document into a LaTeX project and
// compiles it to PDF with the configured toolchain.
package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

const (
	MainTexFile = "main.tex"
	BibFile     = "references.bib"
)

// Document is the renderable assembly of a run: the drafted body, its
// verified bibliography, and presentation metadata.
type Document struct {
	Title         string
	DocumentClass string
	Body          string

	// Bibliography holds the verified, first-use-ordered entries.
	Bibliography []types.BibliographyEntry

	// FlaggedKeys marks citations kept despite failing verification.
	// They render with an "unverified" note rather than silently passing
	// as supported.
	FlaggedKeys []string
}

// RenderProject writes main.tex and references.bib into dir and returns
// the main file path.
func RenderProject(doc Document, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating project directory: %w", err)
	}

	mainPath := filepath.Join(dir, MainTexFile)
	if err := os.WriteFile(mainPath, []byte(renderMain(doc)), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", MainTexFile, err)
	}

	bibPath := filepath.Join(dir, BibFile)
	if err := os.WriteFile(bibPath, []byte(GenerateBibTeX(doc.Bibliography)), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", BibFile, err)
	}

	return mainPath, nil
}

func renderMain(doc Document) string {
	class := doc.DocumentClass
	if class == "" {
		class = "article"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\\documentclass{%s}\n", class)
	b.WriteString("\\usepackage{graphicx}\n")
	b.WriteString("\\usepackage{cite}\n")
	if len(doc.FlaggedKeys) > 0 {
		b.WriteString("\\usepackage{xcolor}\n")
	}
	b.WriteString("\n")

	if doc.Title != "" {
		fmt.Fprintf(&b, "\\title{%s}\n", escapeLaTeX(doc.Title))
		b.WriteString("\\date{}\n")
	}

	b.WriteString("\\begin{document}\n")
	if doc.Title != "" {
		b.WriteString("\\maketitle\n")
	}

	if len(doc.FlaggedKeys) > 0 {
		fmt.Fprintf(&b, "\\noindent\\textcolor{red}{Unverified citations retained: %s}\n\n",
			escapeLaTeX(strings.Join(doc.FlaggedKeys, ", ")))
	}

	b.WriteString(strings.TrimSpace(doc.Body))
	b.WriteString("\n\n")

	if len(doc.Bibliography) > 0 {
		b.WriteString("\\bibliographystyle{plain}\n")
		fmt.Fprintf(&b, "\\bibliography{%s}\n", strings.TrimSuffix(BibFile, ".bib"))
	}
	b.WriteString("\\end{document}\n")
	return b.String()
}

// GenerateBibTeX produces BibTeX content from bibliography entries,
// preserving their order.
func GenerateBibTeX(entries []types.BibliographyEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "@article{%s,\n", e.Key)
		fmt.Fprintf(&b, "  title = {%s},\n", escapeLaTeX(e.Title))
		if len(e.Authors) > 0 {
			fmt.Fprintf(&b, "  author = {%s},\n", escapeLaTeX(strings.Join(e.Authors, " and ")))
		}
		if e.Year > 0 {
			fmt.Fprintf(&b, "  year = {%d},\n", e.Year)
		}
		if e.SourceID != "" {
			fmt.Fprintf(&b, "  note = {%s},\n", escapeLaTeX(e.SourceID))
		}
		fmt.Fprintf(&b, "}\n\n")
	}
	return b.String()
}

// escapeLaTeX escapes characters that break LaTeX in metadata fields.
// Body text comes from the model already in LaTeX and is left alone.
func escapeLaTeX(s string) string {
	replacer := strings.NewReplacer(
		"&", "\\&",
		"%", "\\%",
		"$", "\\$",
		"#", "\\#",
		"_", "\\_",
	)
	return replacer.Replace(s)
}
