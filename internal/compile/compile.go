// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// ErrToolchainMissing means the LaTeX binaries are not installed. There
// is no recovery within a run.
var ErrToolchainMissing = errors.New("LaTeX toolchain not found")

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunInDir(ctx context.Context, dir, name string, args ...string) (string, error)
}

// osExecutor is the production executor backed by os/exec. Command
// output is captured for diagnostic parsing.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunInDir(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// Result summarizes a successful compile.
type Result struct {
	PDFPath   string
	PageCount int
}

// Compiler runs the LaTeX toolchain over a rendered project.
type Compiler struct {
	cfg      types.CompileConfig
	exec     executor
	validate func(path string) (int, error)
}

// NewCompiler builds a compiler from config.
func NewCompiler(cfg types.CompileConfig) *Compiler {
	return &Compiler{cfg: cfg, exec: &osExecutor{}, validate: validatePDF}
}

// Compile runs the engine, the bibliography tool, and the configured
// number of resolution passes over the project in dir, then validates
// the produced PDF.
//
// A missing toolchain is fatal. Diagnostics found in the compile log
// (LaTeX errors, unresolved references or citations) come back as a
// retryable error whose text feeds the next drafting round.
func (c *Compiler) Compile(ctx context.Context, dir string) (Result, error) {
	if _, err := c.exec.LookPath(c.cfg.Engine); err != nil {
		return Result{}, types.Fatal(fmt.Errorf("%w: %s not on PATH", ErrToolchainMissing, c.cfg.Engine))
	}

	engineArgs := []string{"-interaction=nonstopmode", "-halt-on-error", MainTexFile}

	// First pass writes the aux file the bibliography tool needs.
	log, runErr := c.exec.RunInDir(ctx, dir, c.cfg.Engine, engineArgs...)
	if diag := parseDiagnostics(log); diag != "" {
		return Result{}, types.Retryable(fmt.Errorf("compile diagnostics: %s", diag))
	}
	if runErr != nil {
		return Result{}, types.Retryable(fmt.Errorf("%s failed: %w", c.cfg.Engine, runErr))
	}

	if hasBibliography(dir) {
		if _, err := c.exec.LookPath(c.cfg.BibTool); err != nil {
			return Result{}, types.Fatal(fmt.Errorf("%w: %s not on PATH", ErrToolchainMissing, c.cfg.BibTool))
		}
		stem := strings.TrimSuffix(MainTexFile, ".tex")
		if bibLog, err := c.exec.RunInDir(ctx, dir, c.cfg.BibTool, stem); err != nil {
			return Result{}, types.Retryable(fmt.Errorf("%s failed: %s", c.cfg.BibTool, firstLine(bibLog)))
		}
	}

	// Resolution passes settle cross-references and citation labels.
	for i := 0; i < c.cfg.Passes; i++ {
		log, runErr = c.exec.RunInDir(ctx, dir, c.cfg.Engine, engineArgs...)
		if runErr != nil {
			diag := parseDiagnostics(log)
			if diag == "" {
				diag = firstLine(log)
			}
			return Result{}, types.Retryable(fmt.Errorf("%s failed: %s", c.cfg.Engine, diag))
		}
	}

	// Unresolved warnings surviving the final pass are draft defects.
	if diag := parseUnresolved(log); diag != "" {
		return Result{}, types.Retryable(fmt.Errorf("unresolved after final pass: %s", diag))
	}

	pdfPath := filepath.Join(dir, strings.TrimSuffix(MainTexFile, ".tex")+".pdf")
	pages, err := c.validate(pdfPath)
	if err != nil {
		return Result{}, types.Retryable(fmt.Errorf("validating output PDF: %w", err))
	}

	return Result{PDFPath: pdfPath, PageCount: pages}, nil
}

func hasBibliography(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, BibFile))
	return err == nil && info.Size() > 0
}

// validatePDF checks structural validity and returns the page count.
func validatePDF(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu validate: %w", err)
	}
	return pdfCtx.PageCount, nil
}

var (
	errorLinePattern  = regexp.MustCompile(`(?m)^! (.+)$`)
	unresolvedPattern = regexp.MustCompile(`LaTeX Warning: (Citation|Reference) ` + "`" + `([^']+)' (?:on page \d+ )?undefined`)
)

// parseDiagnostics extracts hard LaTeX errors from a compile log.
func parseDiagnostics(log string) string {
	var diags []string
	for _, m := range errorLinePattern.FindAllStringSubmatch(log, -1) {
		diags = append(diags, m[1])
	}
	if len(diags) > 3 {
		diags = diags[:3]
	}
	return strings.Join(diags, "; ")
}

// parseUnresolved extracts undefined citation and reference warnings.
func parseUnresolved(log string) string {
	seen := make(map[string]bool)
	var diags []string
	for _, m := range unresolvedPattern.FindAllStringSubmatch(log, -1) {
		d := fmt.Sprintf("undefined %s %s", strings.ToLower(m[1]), m[2])
		if !seen[d] {
			seen[d] = true
			diags = append(diags, d)
		}
	}
	return strings.Join(diags, "; ")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
