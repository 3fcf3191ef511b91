// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StageName identifies one phase of the generation state machine. Stages
// run in the order listed; transitions are forward-only on success.
type StageName string

const (
	StageOutline         StageName = "outline"
	StageDraft           StageName = "draft"
	StageFigures         StageName = "figures"
	StageVerifyCitations StageName = "verify_citations"
	StageCompile         StageName = "compile"
	StageDone            StageName = "done"
	StageFailed          StageName = "failed"
)

// StageOrder lists the non-terminal stages in execution order.
var StageOrder = []StageName{
	StageOutline,
	StageDraft,
	StageFigures,
	StageVerifyCitations,
	StageCompile,
}

// StageStatus tracks a stage's lifecycle. A stage never returns to
// StagePending after reaching StageSucceeded.
type StageStatus string

const (
	StagePending        StageStatus = "pending"
	StageRunning        StageStatus = "running"
	StageSucceeded      StageStatus = "succeeded"
	StageFailedRetry    StageStatus = "failed-retryable"
	StageFailedFatal    StageStatus = "failed-fatal"
)

// Stage is the bookkeeping record for one state-machine step.
type Stage struct {
	// Name is the stage identifier.
	Name StageName `json:"name" yaml:"name"`

	// Status is the current lifecycle state.
	Status StageStatus `json:"status" yaml:"status"`

	// Retries counts re-entries after retryable failures.
	Retries int `json:"retries" yaml:"retries"`

	// Feedback accumulates failure detail appended to the stage input on
	// each retry (e.g. compiler diagnostics).
	Feedback []string `json:"feedback,omitempty" yaml:"feedback,omitempty"`

	// LastError holds the most recent failure message.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// EventType discriminates the two event kinds on the run stream.
type EventType string

const (
	// EventProgress reports stage entry or in-stage activity. Zero or more
	// per run, delivered in stage order.
	EventProgress EventType = "progress"

	// EventResult carries the final RunResult. Exactly one per run,
	// terminal.
	EventResult EventType = "result"
)

// Event is one element of the ordered stream a run delivers to its caller.
type Event struct {
	Type    EventType `json:"type" yaml:"type"`
	Stage   StageName `json:"stage,omitempty" yaml:"stage,omitempty"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`

	// Result is set on the terminal EventResult only.
	Result *RunResult `json:"result,omitempty" yaml:"result,omitempty"`
}

// TokenUsage accumulates model token totals across a run.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// Add accumulates another usage sample.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// RunFiles lists the principal output files of a run.
type RunFiles struct {
	// DraftSource is the LaTeX main file.
	DraftSource string `json:"draft_source" yaml:"draft_source"`

	// CompiledOutput is the PDF produced by the compiler, empty when
	// compilation did not complete.
	CompiledOutput string `json:"compiled_output,omitempty" yaml:"compiled_output,omitempty"`

	// Bibliography is the generated BibTeX file.
	Bibliography string `json:"bibliography,omitempty" yaml:"bibliography,omitempty"`
}

// RunResult is created once, at the terminal state of a run.
type RunResult struct {
	// Status is "success", "partial" (draft written, compile failed), or
	// "failed".
	Status string `json:"status" yaml:"status"`

	// RunDir is the per-run output directory.
	RunDir string `json:"run_dir" yaml:"run_dir"`

	// Files lists the principal outputs.
	Files RunFiles `json:"files" yaml:"files"`

	// Inputs lists the classified input artifacts with their staged
	// locations, unsupported ones included.
	Inputs []Artifact `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Figures lists figure artifacts referenced by the document, both
	// supplied and generated.
	Figures []Artifact `json:"figures,omitempty" yaml:"figures,omitempty"`

	// Citations is the aggregate citation list at terminal state.
	Citations []Citation `json:"citations,omitempty" yaml:"citations,omitempty"`

	// Omissions records degraded-mode gaps: skipped lookups, figures that
	// could not be generated, claims flagged unsupported-and-accepted.
	Omissions []string `json:"omissions,omitempty" yaml:"omissions,omitempty"`

	// PageCount is the page count of the compiled PDF, zero when absent.
	PageCount int `json:"page_count,omitempty" yaml:"page_count,omitempty"`

	// TokenUsage is present when the request asked for tracking.
	TokenUsage *TokenUsage `json:"token_usage,omitempty" yaml:"token_usage,omitempty"`

	// Errors lists terminal failure reasons for failed runs.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}
