// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/manuscript-engine/internal/classify"
	"github.com/pdiddy/manuscript-engine/internal/compile"
	"github.com/pdiddy/manuscript-engine/internal/figures"
	"github.com/pdiddy/manuscript-engine/internal/ledger"
	"github.com/pdiddy/manuscript-engine/internal/model"
	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// contextCharBudget bounds the per-document excerpt fed into the draft
// prompt. Long sources still contribute their opening sections.
const contextCharBudget = 4000

// setup prepares the run workspace: classification, staging, document
// conversion, the citation ledger, and the research lookup. Runs once,
// on the first outline attempt. Setup failures other than workspace I/O
// degrade the run instead of aborting it.
func (p *Pipeline) setup(ctx context.Context, st *runState, ew *eventWriter) error {
	skill, err := model.SkillFor(model.DetectDocumentType(st.req.Query))
	if err != nil {
		return types.Fatal(err)
	}
	st.skill = skill

	var partition classify.Partition
	if len(st.req.Files) > 0 {
		partition = classify.Classify(st.req.Files)
	} else {
		var err error
		partition, err = classify.ScanDir(p.cfg.StagingDir)
		if err != nil {
			return types.Fatal(fmt.Errorf("scanning staging directory: %w", err))
		}
	}
	fmt.Fprintf(ew, "classified %d input files\n", partition.Count())

	outputDir := st.req.OutputDir
	if outputDir == "" {
		outputDir = p.cfg.OutputDir
	}
	dirs, err := newRunDirs(outputDir, st.req.Query, p.now())
	if err != nil {
		return types.Fatal(err)
	}
	st.dirs = dirs
	fmt.Fprintf(ew, "run directory: %s\n", dirs.Root)

	staged := stageArtifacts(dirs, partition.All(), ew)
	st.inputs = staged
	var documents []types.Artifact
	for _, a := range staged {
		switch a.Category {
		case types.CategoryFigure:
			st.figures = append(st.figures, a)
		case types.CategoryDocument:
			documents = append(documents, a)
		case types.CategoryManuscript:
			// Supplied .tex goes into the drafting context verbatim.
			data, err := os.ReadFile(a.Path)
			if err != nil {
				st.omissions = append(st.omissions,
					fmt.Sprintf("manuscript %s excluded: %v", filepath.Base(a.Path), err))
				continue
			}
			st.docs = append(st.docs, types.ConvertedDocument{
				Path:     a.Path,
				Markdown: string(data),
			})
		case types.CategoryUnsupported:
			fmt.Fprintf(ew, "unsupported: %s\n", filepath.Base(a.Path))
		}
	}

	store, err := ledger.Open(dirs.Root, p.cfg.Verify)
	if err != nil {
		return types.Fatal(fmt.Errorf("opening citation ledger: %w", err))
	}
	st.store = store
	st.res = p.newResearch(p.cfg.Research, store)

	if len(documents) > 0 {
		outcomes := p.converter().ConvertBatch(ctx, documents, dirs.Figures, ew)
		for _, o := range outcomes {
			if o.Err != nil {
				st.omissions = append(st.omissions,
					fmt.Sprintf("document %s excluded: %v", filepath.Base(o.Artifact.Path), o.Err))
				continue
			}
			st.docs = append(st.docs, *o.Doc)
			for _, img := range o.Doc.EmbeddedImages {
				st.figures = append(st.figures, types.Artifact{
					Path:       img,
					Category:   types.CategoryFigure,
					StagedPath: img,
				})
			}
		}
	}

	results, err := st.res.Lookup(ctx, st.req.Query, ew)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		st.omissions = append(st.omissions, fmt.Sprintf("research lookup skipped: %v", err))
	}
	for _, r := range results {
		if err := store.AddSource(r); err != nil {
			fmt.Fprintf(ew, "warning: recording source %s: %v\n", r.SourceID, err)
			continue
		}
		st.sources = append(st.sources, r)
		st.srcByKey[ledger.CitationKey(r)] = r
	}
	if len(st.sources) > 0 {
		fmt.Fprintf(ew, "research: %d sources\n", len(st.sources))
	}

	return nil
}

func (p *Pipeline) stageOutline(ctx context.Context, st *runState, ew *eventWriter, feedback []string) error {
	if st.dirs.Root == "" {
		if err := p.setup(ctx, st, ew); err != nil {
			return err
		}
	}

	var titles []string
	for _, d := range st.docs {
		title := d.Title
		if title == "" {
			title = filepath.Base(d.Path)
		}
		titles = append(titles, title)
	}

	prompt, err := model.RenderOutlinePrompt(model.OutlineInput{
		Query:     st.req.Query,
		Documents: titles,
		Sources:   st.sourceRefs(),
		Feedback:  feedback,
	})
	if err != nil {
		return types.Fatal(fmt.Errorf("rendering outline prompt: %w", err))
	}

	resp, err := p.provider.Generate(ctx, st.skill.SystemPrompt, prompt)
	if err != nil {
		return fmt.Errorf("generating outline: %w", err)
	}
	st.usage.Add(resp.Usage)

	if strings.TrimSpace(resp.Text) == "" {
		return types.Retryable(fmt.Errorf("model returned an empty outline"))
	}
	st.outline = resp.Text
	return nil
}

func (p *Pipeline) stageDraft(ctx context.Context, st *runState, ew *eventWriter, feedback []string) error {
	prompt, err := model.RenderDraftPrompt(model.DraftInput{
		Query:    st.req.Query,
		Outline:  st.outline,
		Context:  st.documentContext(),
		Sources:  st.sourceRefs(),
		Feedback: feedback,
	})
	if err != nil {
		return types.Fatal(fmt.Errorf("rendering draft prompt: %w", err))
	}

	resp, err := p.provider.Generate(ctx, st.skill.SystemPrompt, prompt)
	if err != nil {
		return fmt.Errorf("generating draft: %w", err)
	}
	st.usage.Add(resp.Usage)

	if strings.TrimSpace(resp.Text) == "" {
		return types.Retryable(fmt.Errorf("model returned an empty draft"))
	}
	st.draft = resp.Text
	return nil
}

func (p *Pipeline) stageFigures(ctx context.Context, st *runState, ew *eventWriter, feedback []string) error {
	existing := make(map[string]bool)
	for _, a := range st.figures {
		base := filepath.Base(a.Path)
		existing[strings.TrimSuffix(base, filepath.Ext(base))] = true
	}

	specs := extractFigureSpecs(st.draft, existing)
	if len(specs) == 0 {
		fmt.Fprintf(ew, "no figures to generate\n")
		return nil
	}

	if p.figSvc == nil {
		return types.Degraded(fmt.Errorf(
			"figure generation skipped: no image service configured (%d figures referenced)", len(specs)))
	}

	gen := figures.NewGenerator(p.cfg.Figures, p.figSvc)
	for _, o := range gen.Generate(ctx, specs, st.dirs.Figures, ew) {
		if o.Err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			st.omissions = append(st.omissions,
				fmt.Sprintf("figure %s omitted: %v", o.Spec.Name, o.Err))
			continue
		}
		st.figures = append(st.figures, o.Artifact)
	}
	return nil
}

func (p *Pipeline) stageVerify(ctx context.Context, st *runState, ew *eventWriter, feedback []string) error {
	return p.registerAndVerify(ctx, st, ew)
}

// registerAndVerify binds the current draft's cited claims to their
// candidate sources and verifies every binding. Claims already bound this
// run keep their verification state across draft revisions; only claims
// the draft introduces get fresh bindings. Unsupported claims that have
// remediation rounds left block compilation, so they come back retryable.
func (p *Pipeline) registerAndVerify(ctx context.Context, st *runState, ew *eventWriter) error {
	registered := 0
	for _, claim := range ledger.ExtractCitedClaims(st.draft) {
		if st.registeredClaims[claim.Text] {
			continue
		}
		st.registeredClaims[claim.Text] = true

		var cands []types.ResearchResult
		for _, key := range claim.Keys {
			src, ok := st.srcByKey[key]
			if !ok {
				st.omissions = append(st.omissions,
					fmt.Sprintf("citation key %q not among provided sources", key))
				continue
			}
			cands = append(cands, src)
		}
		if len(cands) == 0 {
			continue
		}
		citations, err := st.store.RegisterClaim(claim.Text, claim.Position, cands)
		if err != nil {
			return fmt.Errorf("registering claim: %w", err)
		}
		for _, c := range citations {
			st.claimPairs = append(st.claimPairs, [2]string{c.ClaimID, c.SourceID})
			registered++
		}
	}
	if registered > 0 {
		fmt.Fprintf(ew, "registered %d citation bindings\n", registered)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Verify.Concurrency)
	for _, pair := range st.claimPairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := st.store.VerifyAgainstSource(pair[0], pair[1])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("verifying citations: %w", err)
	}

	blocking, err := st.store.Blocking()
	if err != nil {
		return fmt.Errorf("listing unsupported claims: %w", err)
	}
	if len(blocking) > 0 {
		var keys []string
		for _, c := range blocking {
			keys = append(keys, c.Key)
		}
		return types.Retryable(fmt.Errorf("unsupported claims remain: %s", strings.Join(keys, ", ")))
	}
	return nil
}

func (p *Pipeline) stageCompile(ctx context.Context, st *runState, ew *eventWriter, feedback []string) error {
	// Compile retries carry diagnostics from the previous round; the
	// draft is revised against them before recompiling.
	if len(feedback) > 0 {
		prompt, err := model.RenderDraftPrompt(model.DraftInput{
			Query:    st.req.Query,
			Outline:  st.outline,
			Context:  st.draft,
			Sources:  st.sourceRefs(),
			Feedback: feedback,
		})
		if err != nil {
			return types.Fatal(fmt.Errorf("rendering revision prompt: %w", err))
		}
		resp, err := p.provider.Generate(ctx, st.skill.SystemPrompt, prompt)
		if err != nil {
			return fmt.Errorf("revising draft: %w", err)
		}
		st.usage.Add(resp.Usage)
		if strings.TrimSpace(resp.Text) != "" {
			st.draft = resp.Text
			// A revision can introduce new cited claims; those must pass
			// verification before the revised draft compiles.
			if err := p.registerAndVerify(ctx, st, ew); err != nil {
				return err
			}
		}
	}

	bib, err := st.store.Bibliography()
	if err != nil {
		return fmt.Errorf("building bibliography: %w", err)
	}

	var flagged []string
	if unsupported, err := st.store.ByStatus(types.CitationUnsupported); err == nil {
		for _, c := range unsupported {
			if c.Accepted {
				flagged = append(flagged, c.Key)
			}
		}
	}

	doc := compile.Document{
		Title:         st.req.Query,
		DocumentClass: st.skill.DocumentClass,
		Body:          st.draft,
		Bibliography:  bib,
		FlaggedKeys:   flagged,
	}
	mainPath, err := compile.RenderProject(doc, st.dirs.Drafts)
	if err != nil {
		return types.Fatal(err)
	}
	st.files.DraftSource = mainPath
	if len(bib) > 0 {
		st.files.Bibliography = filepath.Join(st.dirs.Drafts, compile.BibFile)
	}

	res, err := p.comp.Compile(ctx, st.dirs.Drafts)
	if err != nil {
		return err
	}

	st.files.CompiledOutput = res.PDFPath
	st.pageCount = res.PageCount
	st.compiled = true
	fmt.Fprintf(ew, "compiled %s (%d pages)\n", filepath.Base(res.PDFPath), res.PageCount)
	return nil
}

// sourceRefs exposes the run's sources as prompt references in lookup
// ranking order.
func (st *runState) sourceRefs() []model.SourceRef {
	var refs []model.SourceRef
	for _, r := range st.sources {
		refs = append(refs, model.SourceRef{
			Key:     ledger.CitationKey(r),
			Title:   r.Title,
			Excerpt: r.Excerpt,
		})
	}
	return refs
}

// documentContext concatenates converted document excerpts for the draft
// prompt.
func (st *runState) documentContext() string {
	var b strings.Builder
	for _, d := range st.docs {
		title := d.Title
		if title == "" {
			title = filepath.Base(d.Path)
		}
		text := d.Markdown
		if len(text) > contextCharBudget {
			text = text[:contextCharBudget]
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", title, text)
	}
	return strings.TrimSpace(b.String())
}
