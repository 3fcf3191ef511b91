// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// runDirs holds the workspace areas of one run directory.
type runDirs struct {
	Root    string
	Figures string
	Data    string
	Drafts  string
	Sources string
}

// newRunDirs creates the per-run directory <outputDir>/<timestamp>_<slug>
// with its workspace areas.
func newRunDirs(outputDir, query string, now time.Time) (runDirs, error) {
	name := now.Format("20060102_150405") + "_" + slug(query)
	root := filepath.Join(outputDir, name)

	d := runDirs{
		Root:    root,
		Figures: filepath.Join(root, "figures"),
		Data:    filepath.Join(root, "data"),
		Drafts:  filepath.Join(root, "drafts"),
		Sources: filepath.Join(root, "sources"),
	}
	for _, dir := range []string{d.Figures, d.Data, d.Drafts, d.Sources} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return runDirs{}, fmt.Errorf("creating run directory: %w", err)
		}
	}
	return d, nil
}

// areaFor maps a category to its workspace area. Unsupported artifacts
// stay where they are.
func (d runDirs) areaFor(c types.Category) string {
	switch c {
	case types.CategoryFigure:
		return d.Figures
	case types.CategoryData:
		return d.Data
	case types.CategoryManuscript:
		return d.Drafts
	case types.CategoryDocument:
		return d.Sources
	}
	return ""
}

// stageArtifacts copies classified inputs into their workspace areas and
// records the staged location on each artifact. Copy failures demote the
// artifact to unsupported rather than failing the run.
func stageArtifacts(d runDirs, artifacts []types.Artifact, w io.Writer) []types.Artifact {
	staged := make([]types.Artifact, len(artifacts))
	for i, a := range artifacts {
		staged[i] = a
		area := d.areaFor(a.Category)
		if area == "" {
			continue
		}

		dst := filepath.Join(area, filepath.Base(a.Path))
		if err := copyFile(a.Path, dst); err != nil {
			fmt.Fprintf(w, "warning: staging %s: %v\n", filepath.Base(a.Path), err)
			staged[i].Category = types.CategoryUnsupported
			continue
		}
		staged[i].StagedPath = dst
	}
	return staged
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// slug reduces a query to a short directory-safe description.
func slug(query string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(query) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "untitled"
	}
	return s
}
