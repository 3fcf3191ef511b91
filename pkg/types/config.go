// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "manuscript-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ResearchConfig holds settings for the literature lookup client.
type ResearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey enables the Semantic Scholar backend. Absent key does not
	// disable lookups by itself; Enabled does.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is sent to OpenAlex as the mailto parameter for polite pool
	// access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// Enabled turns literature lookup on. When false the run proceeds in
	// degraded mode with a warning and zero fresh citations.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxResults caps results per lookup (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MaxUnreachableRetries bounds retries when a backend is unreachable
	// before the client switches to degraded mode (default 2).
	MaxUnreachableRetries int `json:"max_unreachable_retries" yaml:"max_unreachable_retries"`
}

// ConvertConfig holds settings for document conversion.
type ConvertConfig struct {
	// MaxFileSize rejects documents larger than this many bytes
	// (default 50 MiB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// Concurrency bounds parallel conversions (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// ModelConfig holds settings for the language model client.
type ModelConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the response length per call (default 8192).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// FigureConfig holds settings for the figure generation adapter.
type FigureConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the authentication key for the image generation service.
	// Absent key skips figure generation with an omission note.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries bounds attempts per figure before the run proceeds
	// without it (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Concurrency bounds parallel figure generations (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// VerifyConfig holds settings for citation verification.
type VerifyConfig struct {
	// Threshold is the minimum entailment score for a source excerpt to
	// verify a claim (default 0.5).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// MaxRemediations bounds remediation rounds for an unsupported claim
	// before it is flagged in the output instead of blocking (default 2).
	MaxRemediations int `json:"max_remediations" yaml:"max_remediations"`

	// Concurrency bounds parallel verifications (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// CompileConfig holds settings for the LaTeX compiler.
type CompileConfig struct {
	// Engine is the compiler binary (default "pdflatex").
	Engine string `json:"engine" yaml:"engine"`

	// BibTool is the bibliography processor (default "bibtex").
	BibTool string `json:"bib_tool" yaml:"bib_tool"`

	// Passes is the number of compiler passes after the bibliography run,
	// needed for reference resolution (default 2).
	Passes int `json:"passes" yaml:"passes"`
}

// StageRetries bounds re-entries per stage after retryable failures.
type StageRetries struct {
	Outline int `json:"outline" yaml:"outline"`
	Draft   int `json:"draft" yaml:"draft"`
	Figures int `json:"figures" yaml:"figures"`
	Verify  int `json:"verify" yaml:"verify"`
	Compile int `json:"compile" yaml:"compile"`
}

// PipelineConfig groups all stage configurations for one run. It is
// threaded explicitly through the pipeline; components never read ambient
// environment state.
type PipelineConfig struct {
	Research ResearchConfig `json:"research" yaml:"research"`
	Convert  ConvertConfig  `json:"convert" yaml:"convert"`
	Model    ModelConfig    `json:"model" yaml:"model"`
	Figures  FigureConfig   `json:"figures" yaml:"figures"`
	Verify   VerifyConfig   `json:"verify" yaml:"verify"`
	Compile  CompileConfig  `json:"compile" yaml:"compile"`
	Retries  StageRetries   `json:"retries" yaml:"retries"`

	// OutputDir is the base directory for per-run output directories
	// (default "writing_outputs").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// StagingDir is the directory scanned for dropped input files when a
	// request carries no explicit file list (default "inbox").
	StagingDir string `json:"staging_dir" yaml:"staging_dir"`
}

// Defaults fills zero-valued fields with working defaults.
func (c *PipelineConfig) Defaults() {
	if c.Research.MaxResults <= 0 {
		c.Research.MaxResults = 10
	}
	if c.Research.MaxUnreachableRetries <= 0 {
		c.Research.MaxUnreachableRetries = 2
	}
	if c.Research.Timeout <= 0 {
		c.Research.Timeout = 30 * time.Second
	}
	if c.Research.UserAgent == "" {
		c.Research.UserAgent = "manuscript-engine/0.1"
	}
	if c.Convert.MaxFileSize <= 0 {
		c.Convert.MaxFileSize = 50 << 20
	}
	if c.Convert.Concurrency <= 0 {
		c.Convert.Concurrency = 4
	}
	if c.Model.MaxTokens <= 0 {
		c.Model.MaxTokens = 8192
	}
	if c.Model.MaxRetries <= 0 {
		c.Model.MaxRetries = 3
	}
	if c.Figures.MaxRetries <= 0 {
		c.Figures.MaxRetries = 2
	}
	if c.Figures.Concurrency <= 0 {
		c.Figures.Concurrency = 2
	}
	if c.Figures.Timeout <= 0 {
		c.Figures.Timeout = 60 * time.Second
	}
	if c.Verify.Threshold <= 0 {
		c.Verify.Threshold = 0.5
	}
	if c.Verify.MaxRemediations <= 0 {
		c.Verify.MaxRemediations = 2
	}
	if c.Verify.Concurrency <= 0 {
		c.Verify.Concurrency = 4
	}
	if c.Compile.Engine == "" {
		c.Compile.Engine = "pdflatex"
	}
	if c.Compile.BibTool == "" {
		c.Compile.BibTool = "bibtex"
	}
	if c.Compile.Passes <= 0 {
		c.Compile.Passes = 2
	}
	if c.Retries.Outline <= 0 {
		c.Retries.Outline = 2
	}
	if c.Retries.Draft <= 0 {
		c.Retries.Draft = 2
	}
	if c.Retries.Figures <= 0 {
		c.Retries.Figures = 1
	}
	if c.Retries.Verify <= 0 {
		c.Retries.Verify = 2
	}
	if c.Retries.Compile <= 0 {
		c.Retries.Compile = 3
	}
	if c.OutputDir == "" {
		c.OutputDir = "writing_outputs"
	}
	if c.StagingDir == "" {
		c.StagingDir = "inbox"
	}
}
