// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"regexp"
	"strings"
)

// citePattern matches LaTeX citation commands in draft text, capturing
// the comma-separated key list.
var citePattern = regexp.MustCompile(`\\cite[tp]?\{([^}]+)\}`)

var (
	headingPattern = regexp.MustCompile(`\\(?:part|chapter|(?:sub)*section|(?:sub)?paragraph)\*?\{[^}]*\}`)
	inlinePattern  = regexp.MustCompile(`\\(?:emph|textbf|textit|texttt|textsc|underline)\{([^}]*)\}`)
	commandPattern = regexp.MustCompile(`\\[a-zA-Z]+\*?(?:\[[^\]]*\])?`)
)

// stripMarkup removes LaTeX structure so claims carry prose only.
// Headings vanish with their argument, inline emphasis keeps its
// argument, and citation commands survive for key extraction.
func stripMarkup(text string) string {
	text = headingPattern.ReplaceAllString(text, " ")
	return inlinePattern.ReplaceAllString(text, "$1")
}

// ClaimRef is one cited sentence extracted from a draft: the sentence
// text (citation commands stripped), the keys it cites, and its position
// in the draft by sentence index.
type ClaimRef struct {
	Text     string
	Keys     []string
	Position int
}

// ExtractCitedClaims scans draft text for sentences carrying citation
// commands. Each such sentence becomes one claim to verify against the
// sources behind its keys. Sentences without citations are skipped.
func ExtractCitedClaims(draft string) []ClaimRef {
	var out []ClaimRef
	for i, sentence := range splitSentences(stripMarkup(draft)) {
		matches := citePattern.FindAllStringSubmatch(sentence, -1)
		if len(matches) == 0 {
			continue
		}

		seen := make(map[string]bool)
		var keys []string
		for _, m := range matches {
			for _, key := range strings.Split(m[1], ",") {
				key = strings.TrimSpace(key)
				if key != "" && !seen[key] {
					seen[key] = true
					keys = append(keys, key)
				}
			}
		}

		text := citePattern.ReplaceAllString(sentence, "")
		// Leftover commands would count as content words in entailment
		// scoring, so they go too.
		text = commandPattern.ReplaceAllString(text, " ")
		text = strings.NewReplacer("{", " ", "}", " ").Replace(text)
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}

		out = append(out, ClaimRef{Text: text, Keys: keys, Position: i})
	}
	return out
}

// splitSentences breaks text into rough sentences on terminal
// punctuation. Abbreviation handling is deliberately naive; claims only
// need a stable sentence-level granularity, not linguistic precision.
func splitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(normalized); i++ {
		switch normalized[i] {
		case '.', '!', '?':
			// Consume trailing closers so the boundary lands after them.
			end := i + 1
			for end < len(normalized) && (normalized[end] == ')' || normalized[end] == '"' || normalized[end] == '\'') {
				end++
			}
			s := strings.TrimSpace(normalized[start:end])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = end
			i = end - 1
		}
	}
	if rest := strings.TrimSpace(normalized[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
