// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives one document-generation run through the stage
// machine: outline, draft, figures, citation verification, compile. The
// caller consumes an ordered event stream; the run owns a per-run output
// directory and a citation ledger.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/manuscript-engine/internal/compile"
	"github.com/pdiddy/manuscript-engine/internal/convert"
	"github.com/pdiddy/manuscript-engine/internal/figures"
	"github.com/pdiddy/manuscript-engine/internal/ledger"
	"github.com/pdiddy/manuscript-engine/internal/model"
	"github.com/pdiddy/manuscript-engine/internal/research"
	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// compiler is the slice of the LaTeX compiler the pipeline needs.
type compiler interface {
	Compile(ctx context.Context, dir string) (compile.Result, error)
}

// Pipeline holds the long-lived collaborators shared across runs.
type Pipeline struct {
	cfg      types.PipelineConfig
	provider model.Provider
	figSvc   figures.Service
	comp     compiler
	now      func() time.Time

	// newResearch builds the lookup client for one run. Tests substitute
	// fake backends here.
	newResearch func(cfg types.ResearchConfig, cache research.Cache) *research.Client
}

// New assembles a pipeline. figSvc may be nil; figure generation then
// runs degraded and referenced figures are recorded as omissions.
func New(cfg types.PipelineConfig, provider model.Provider, figSvc figures.Service) *Pipeline {
	cfg.Defaults()
	return &Pipeline{
		cfg:         cfg,
		provider:    provider,
		figSvc:      figSvc,
		comp:        compile.NewCompiler(cfg.Compile),
		now:         time.Now,
		newResearch: research.NewClient,
	}
}

// runState is the mutable state of one run, threaded through the stages.
type runState struct {
	req   types.Request
	skill model.Skill

	dirs  runDirs
	store *ledger.Store
	res   *research.Client

	docs     []types.ConvertedDocument
	inputs   []types.Artifact
	figures  []types.Artifact
	sources  []types.ResearchResult
	srcByKey map[string]types.ResearchResult

	outline string
	draft   string

	registeredClaims map[string]bool // claim texts already bound to sources
	claimPairs       [][2]string     // (claimID, sourceID) registered this run

	files     types.RunFiles
	pageCount int
	compiled  bool

	usage     types.TokenUsage
	omissions []string
}

// Run starts a generation run and returns its event stream. The channel
// delivers zero or more progress events in stage order, then exactly one
// result event, then closes. Cancel the context to stop the run between
// events; partial outputs stay on disk.
func (p *Pipeline) Run(ctx context.Context, req types.Request) <-chan types.Event {
	events := make(chan types.Event)
	go func() {
		defer close(events)
		p.run(ctx, req, events)
	}()
	return events
}

func (p *Pipeline) run(ctx context.Context, req types.Request, events chan<- types.Event) {
	st := &runState{
		req:              req,
		srcByKey:         make(map[string]types.ResearchResult),
		registeredClaims: make(map[string]bool),
	}
	defer func() {
		if st.store != nil {
			st.store.Close()
		}
	}()

	stages := []struct {
		name    types.StageName
		retries int
		fn      func(ctx context.Context, st *runState, ew *eventWriter, feedback []string) error
	}{
		{types.StageOutline, p.cfg.Retries.Outline, p.stageOutline},
		{types.StageDraft, p.cfg.Retries.Draft, p.stageDraft},
		{types.StageFigures, p.cfg.Retries.Figures, p.stageFigures},
		{types.StageVerifyCitations, p.cfg.Retries.Verify, p.stageVerify},
		{types.StageCompile, p.cfg.Retries.Compile, p.stageCompile},
	}

	for _, s := range stages {
		rec := types.Stage{Name: s.name, Status: types.StagePending}

	attempts:
		for {
			msg := "starting"
			if rec.Retries > 0 {
				msg = fmt.Sprintf("retrying (attempt %d): %s", rec.Retries+1, rec.LastError)
			}
			if !progress(ctx, events, s.name, msg) {
				return
			}

			rec.Status = types.StageRunning
			err := s.fn(ctx, st, &eventWriter{ctx: ctx, events: events, stage: s.name}, rec.Feedback)
			if err == nil {
				rec.Status = types.StageSucceeded
				break attempts
			}
			if ctx.Err() != nil {
				return
			}

			rec.LastError = err.Error()
			switch types.ClassOf(err) {
			case types.ClassDegraded:
				st.omissions = append(st.omissions, err.Error())
				rec.Status = types.StageSucceeded
				break attempts

			case types.ClassRetryable:
				rec.Retries++
				rec.Feedback = append(rec.Feedback, err.Error())
				if rec.Retries > s.retries {
					rec.Status = types.StageFailedRetry
					p.finish(ctx, events, st, s.name, err)
					return
				}

			default:
				rec.Status = types.StageFailedFatal
				p.finish(ctx, events, st, s.name, err)
				return
			}
		}
	}

	p.finish(ctx, events, st, types.StageDone, nil)
}

// finish assembles the terminal result and emits the single result event.
func (p *Pipeline) finish(ctx context.Context, events chan<- types.Event, st *runState, terminal types.StageName, failure error) {
	result := &types.RunResult{
		RunDir:    st.dirs.Root,
		Files:     st.files,
		Inputs:    st.inputs,
		Figures:   st.figures,
		PageCount: st.pageCount,
		Omissions: st.omissions,
	}

	switch {
	case failure == nil && st.compiled:
		result.Status = "success"
	case st.files.DraftSource != "":
		result.Status = "partial"
	default:
		result.Status = "failed"
	}
	if failure != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", terminal, failure))
	}

	if st.store != nil {
		for _, status := range []types.VerificationStatus{
			types.CitationVerified, types.CitationUnsupported, types.CitationUnverified,
		} {
			if cs, err := st.store.ByStatus(status); err == nil {
				result.Citations = append(result.Citations, cs...)
			}
		}
		for _, c := range result.Citations {
			if c.Status == types.CitationUnsupported && c.Accepted {
				result.Omissions = append(result.Omissions,
					fmt.Sprintf("claim kept without support: %q [%s]", c.ClaimText, c.Key))
			}
		}
	}

	if st.req.TrackTokenUsage {
		usage := st.usage
		result.TokenUsage = &usage
	}

	if st.dirs.Root != "" {
		if err := writeManifest(st.dirs.Root, result); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	stage := terminal
	if failure != nil {
		stage = types.StageFailed
	}
	emit(ctx, events, types.Event{Type: types.EventResult, Stage: stage, Result: result})
}

// converter builds the document converter for one run.
func (p *Pipeline) converter() *convert.Converter {
	return convert.New(p.cfg.Convert)
}
