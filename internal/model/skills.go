// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"fmt"
	"strings"
)

// DocumentType tags the output format the request asks for. It selects
// the skill once, at request classification; stage code never matches on
// request strings after that.
type DocumentType string

const (
	DocPaper  DocumentType = "paper"
	DocSlides DocumentType = "slides"
	DocPoster DocumentType = "poster"
	DocReport DocumentType = "report"
	DocGrant  DocumentType = "grant"
)

// Skill is the prompt contract for one document type: the system prompt
// both generation stages share and the LaTeX document class the compiler
// should expect.
type Skill struct {
	Type          DocumentType
	SystemPrompt  string
	DocumentClass string
}

var registry = map[DocumentType]Skill{
	DocPaper: {
		Type:          DocPaper,
		DocumentClass: "article",
		SystemPrompt: "You are an academic writing assistant producing a scientific paper in LaTeX. " +
			"Structure: abstract, introduction, methods, results, discussion, conclusion. " +
			"Cite sources inline with \\cite{key} using only the provided citation keys.",
	},
	DocSlides: {
		Type:          DocSlides,
		DocumentClass: "beamer",
		SystemPrompt: "You are an academic writing assistant producing a Beamer slide deck in LaTeX. " +
			"One frame per idea, short bullet points, no long paragraphs. " +
			"Cite sources inline with \\cite{key} using only the provided citation keys.",
	},
	DocPoster: {
		Type:          DocPoster,
		DocumentClass: "article",
		SystemPrompt: "You are an academic writing assistant producing a conference poster in LaTeX. " +
			"Large self-contained blocks: motivation, approach, key results, takeaways. " +
			"Cite sources inline with \\cite{key} using only the provided citation keys.",
	},
	DocReport: {
		Type:          DocReport,
		DocumentClass: "report",
		SystemPrompt: "You are an academic writing assistant producing a technical report in LaTeX. " +
			"Chapters with an executive summary first. " +
			"Cite sources inline with \\cite{key} using only the provided citation keys.",
	},
	DocGrant: {
		Type:          DocGrant,
		DocumentClass: "article",
		SystemPrompt: "You are an academic writing assistant producing a grant proposal in LaTeX. " +
			"Structure: aims, significance, approach, timeline, expected outcomes. " +
			"Cite sources inline with \\cite{key} using only the provided citation keys.",
	},
}

// SkillFor returns the registered skill for a document type.
func SkillFor(t DocumentType) (Skill, error) {
	s, ok := registry[t]
	if !ok {
		return Skill{}, fmt.Errorf("no skill registered for document type %q", t)
	}
	return s, nil
}

// DetectDocumentType classifies the request text by its vocabulary.
// Defaults to paper when nothing more specific matches.
func DetectDocumentType(query string) DocumentType {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "slide") || strings.Contains(lower, "presentation") || strings.Contains(lower, "beamer"):
		return DocSlides
	case strings.Contains(lower, "poster"):
		return DocPoster
	case strings.Contains(lower, "grant") || strings.Contains(lower, "proposal"):
		return DocGrant
	case strings.Contains(lower, "report"):
		return DocReport
	}
	return DocPaper
}
