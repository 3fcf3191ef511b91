// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/manuscript-engine/internal/figures"
)

var (
	includeGraphicsPattern = regexp.MustCompile(`\\includegraphics(?:\[[^\]]*\])?\{([^}]+)\}`)
	captionPattern         = regexp.MustCompile(`\\caption\{([^}]+)\}`)
)

// extractFigureSpecs finds figures the draft references but the run does
// not have yet. The caption inside the same figure environment becomes
// the rendering prompt; a figure with no caption falls back to its name.
func extractFigureSpecs(draft string, existing map[string]bool) []figures.Spec {
	matches := includeGraphicsPattern.FindAllStringSubmatchIndex(draft, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var specs []figures.Spec
	for i, m := range matches {
		ref := draft[m[2]:m[3]]
		name := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
		if name == "" || seen[name] || existing[name] {
			continue
		}
		seen[name] = true

		// The caption search stops at the figure's own boundary so a
		// captionless figure never borrows the next figure's caption.
		region := draft[m[1]:]
		if i+1 < len(matches) {
			region = draft[m[1]:matches[i+1][0]]
		}
		if end := strings.Index(region, `\end{figure}`); end >= 0 {
			region = region[:end]
		}

		prompt := name
		if cap := captionPattern.FindStringSubmatch(region); cap != nil {
			prompt = cap[1]
		}
		specs = append(specs, figures.Spec{Name: name, Prompt: prompt})
	}
	return specs
}
