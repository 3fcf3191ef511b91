// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"bytes"
	"text/template"
)

// SourceRef is one citable source offered to the model: the citation key
// it must use and the evidence it may lean on.
type SourceRef struct {
	Key     string
	Title   string
	Excerpt string
}

// OutlineInput feeds the outline prompt.
type OutlineInput struct {
	Query     string
	Documents []string
	Sources   []SourceRef
	Feedback  []string
}

// DraftInput feeds the draft prompt.
type DraftInput struct {
	Query    string
	Outline  string
	Context  string
	Sources  []SourceRef
	Feedback []string
}

var outlineTmpl = template.Must(template.New("outline").Parse(`Produce a section outline for the requested document.

Request:
{{.Query}}
{{if .Documents}}
Supplied reference documents:
{{range .Documents}}- {{.}}
{{end}}{{end}}{{if .Sources}}
Available sources (cite by key only):
{{range .Sources}}- [{{.Key}}] {{.Title}}
{{end}}{{end}}{{if .Feedback}}
Problems with the previous attempt, fix all of them:
{{range .Feedback}}- {{.}}
{{end}}{{end}}
Respond with a numbered outline, one section per line, no prose before or after.
`))

var draftTmpl = template.Must(template.New("draft").Parse(`Write the body of the document in LaTeX following this outline exactly.

Request:
{{.Query}}

Outline:
{{.Outline}}
{{if .Context}}
Background material extracted from the supplied documents:
{{.Context}}
{{end}}{{if .Sources}}
Available sources. Cite with \cite{key} and use only these keys:
{{range .Sources}}- [{{.Key}}] {{.Title}}: {{.Excerpt}}
{{end}}{{end}}{{if .Feedback}}
Problems with the previous attempt, fix all of them:
{{range .Feedback}}- {{.}}
{{end}}{{end}}
Respond with LaTeX section content only. No preamble, no \documentclass, no \begin{document}.
Reference figures with \includegraphics where the outline calls for one.
`))

// RenderOutlinePrompt builds the user prompt for the outline stage.
func RenderOutlinePrompt(in OutlineInput) (string, error) {
	var buf bytes.Buffer
	if err := outlineTmpl.Execute(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderDraftPrompt builds the user prompt for the draft stage.
func RenderDraftPrompt(in DraftInput) (string, error) {
	var buf bytes.Buffer
	if err := draftTmpl.Execute(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}
