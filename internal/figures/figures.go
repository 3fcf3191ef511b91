// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package figures generates figure images from draft figure specs
// through an external image generation service. Failures never sink a
// run: a figure that cannot be produced is skipped and recorded as an
// omission.
package figures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// Typed generation failures. All three are retryable up to the
// configured bound; after that the figure is omitted.
var (
	ErrQuota           = errors.New("image service quota exhausted")
	ErrMalformedPrompt = errors.New("image service rejected prompt")
	ErrService         = errors.New("image service error")
)

// Spec describes one figure the draft asks for.
type Spec struct {
	// Name is the file stem, unique within the run (e.g. "fig_throughput").
	Name string

	// Prompt is the rendering instruction sent to the service.
	Prompt string
}

// Service abstracts the image generation backend.
type Service interface {
	// Render produces PNG bytes for a prompt.
	Render(ctx context.Context, prompt string) ([]byte, error)
}

// Outcome records the result for one spec: the generated artifact, or
// the reason it was omitted.
type Outcome struct {
	Spec     Spec
	Artifact types.Artifact
	Err      error
}

// Generator drives the service with retries and bounded concurrency.
type Generator struct {
	cfg types.FigureConfig
	svc Service
}

// NewGenerator wraps a service with retry and fan-out policy from config.
func NewGenerator(cfg types.FigureConfig, svc Service) *Generator {
	return &Generator{cfg: cfg, svc: svc}
}

// Generate renders each spec into figuresDir as <name>.png. Specs are
// independent and run concurrently; outcomes come back in spec order.
// Per-figure status lines go to w.
func (g *Generator) Generate(ctx context.Context, specs []Spec, figuresDir string, w io.Writer) []Outcome {
	outcomes := make([]Outcome, len(specs))

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)

	for i, spec := range specs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Spec: spec, Err: err}
				return nil
			}

			artifact, err := g.generateOne(ctx, spec, figuresDir)
			outcomes[i] = Outcome{Spec: spec, Artifact: artifact, Err: err}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(w, "failed:    %s (%v)\n", spec.Name, err)
			} else {
				fmt.Fprintf(w, "generated: %s\n", filepath.Base(artifact.Path))
			}
			return nil
		})
	}
	eg.Wait()

	return outcomes
}

// generateOne retries the service up to the configured bound, then
// writes the image. The returned artifact is marked Generated so the
// pipeline can tell produced figures from supplied ones.
func (g *Generator) generateOne(ctx context.Context, spec Spec, figuresDir string) (types.Artifact, error) {
	if spec.Prompt == "" {
		return types.Artifact{}, fmt.Errorf("%w: empty prompt for %s", ErrMalformedPrompt, spec.Name)
	}

	var data []byte
	var err error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Artifact{}, ctxErr
		}
		data, err = g.svc.Render(ctx, spec.Prompt)
		if err == nil {
			break
		}
	}
	if err != nil {
		return types.Artifact{}, err
	}

	if err := os.MkdirAll(figuresDir, 0o755); err != nil {
		return types.Artifact{}, fmt.Errorf("creating figures directory: %w", err)
	}
	path := filepath.Join(figuresDir, spec.Name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.Artifact{}, fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}

	return types.Artifact{
		Path:      path,
		Category:  types.CategoryFigure,
		Generated: true,
	}, nil
}
