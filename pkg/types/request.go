// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the manuscript-engine
// pipeline: the Request/RunResult contract, classified input Artifacts,
// research evidence, citations, stage bookkeeping, progress events, and
// per-stage configuration.
package types

// Category assigns an input file to one area of the run workspace.
type Category string

const (
	// CategoryFigure covers image files placed under figures/.
	CategoryFigure Category = "figure"

	// CategoryData covers tabular and structured data files placed under data/.
	CategoryData Category = "data"

	// CategoryDocument covers convertible documents (docx, odt, pdf, html,
	// md, txt) placed under sources/ and fed through the converter.
	CategoryDocument Category = "document"

	// CategoryManuscript covers .tex inputs placed under drafts/ and fed
	// into the drafting context as-is.
	CategoryManuscript Category = "manuscript"

	// CategoryUnsupported covers everything the classifier cannot place.
	// Unsupported files are reported and left on disk, never fatal.
	CategoryUnsupported Category = "unsupported"
)

// Artifact is a classified input file. Artifacts are created by the
// classifier and never mutated afterwards; relocation into the run
// directory is the pipeline's job, recorded in StagedPath.
type Artifact struct {
	// Path is the original location of the file.
	Path string `json:"path" yaml:"path"`

	// Category is the workspace area the file belongs to.
	Category Category `json:"category" yaml:"category"`

	// StagedPath is the location inside the run directory after staging.
	// Empty until the pipeline copies the file.
	StagedPath string `json:"staged_path,omitempty" yaml:"staged_path,omitempty"`

	// Generated marks artifacts produced during the run (e.g. figures from
	// the image service) rather than supplied by the caller.
	Generated bool `json:"generated,omitempty" yaml:"generated,omitempty"`
}

// Request describes one document-generation run. It is immutable once the
// run starts.
type Request struct {
	// Query is the free-text generation request, e.g. "Create a Nature
	// paper on CRISPR off-target effects".
	Query string `json:"query" yaml:"query"`

	// Files lists input file paths in caller order. When empty the staging
	// directory is scanned instead.
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`

	// OutputDir overrides the default writing_outputs location.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// TrackTokenUsage includes model token totals in the final result.
	TrackTokenUsage bool `json:"track_token_usage,omitempty" yaml:"track_token_usage,omitempty"`
}

// ConvertedDocument holds the structured text extracted from a document
// Artifact. Discarded when conversion fails; the artifact is then demoted
// to CategoryUnsupported.
type ConvertedDocument struct {
	// Path is the source file the text came from.
	Path string `json:"path" yaml:"path"`

	// Title is the document title when the format carries one.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Markdown is the normalized text representation included in the
	// generation context.
	Markdown string `json:"markdown" yaml:"markdown"`

	// EmbeddedImages lists figure files extracted from the document
	// (e.g. word/media/ entries of a docx), already written to disk.
	EmbeddedImages []string `json:"embedded_images,omitempty" yaml:"embedded_images,omitempty"`
}
