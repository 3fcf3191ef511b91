// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"fmt"
	"strings"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// stopwords are excluded from entailment scoring. Function words carry no
// evidential weight and would inflate overlap.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "to": true, "for": true,
	"with": true, "by": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "that": true, "this": true,
	"it": true, "as": true, "at": true, "from": true, "has": true,
	"have": true, "had": true, "not": true, "but": true, "we": true,
	"can": true, "which": true, "their": true, "its": true,
}

// EntailmentScore measures how well an evidence excerpt supports a claim
// as the fraction of the claim's content words present in the evidence.
// Returns a value in [0, 1]; an empty claim or evidence scores 0.
func EntailmentScore(claim, evidence string) float64 {
	claimWords := contentWords(claim)
	if len(claimWords) == 0 {
		return 0
	}
	evidenceSet := make(map[string]bool)
	for _, w := range contentWords(evidence) {
		evidenceSet[w] = true
	}

	matched := 0
	for _, w := range claimWords {
		if evidenceSet[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(claimWords))
}

func contentWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w == "" || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Verify scores the evidence excerpt against the claim and records the
// outcome. At or above the threshold the citation becomes verified;
// below it, unsupported with the remediation attempt counted.
//
// Verification is idempotent: re-verifying an already verified citation
// with the same evidence changes nothing, and a verified citation never
// regresses to unsupported from a worse excerpt.
func (s *Store) Verify(claimID, sourceID, evidence string) (types.Citation, error) {
	c, err := s.Citation(claimID, sourceID)
	if err != nil {
		return types.Citation{}, err
	}

	if c.Status == types.CitationVerified {
		return c, nil
	}

	score := EntailmentScore(c.ClaimText, evidence)

	if score >= s.threshold {
		c.Status = types.CitationVerified
		c.Evidence = evidence
		c.Score = score
	} else {
		c.Status = types.CitationUnsupported
		c.Evidence = evidence
		c.Score = score
		c.Attempts++
		// Out of remediation rounds: keep the claim, flag it in output.
		if c.Attempts >= s.maxRemediations {
			c.Accepted = true
		}
	}

	accepted := 0
	if c.Accepted {
		accepted = 1
	}
	_, err = s.db.Exec(
		`UPDATE citations SET status = ?, evidence = ?, score = ?, attempts = ?, accepted = ?
		 WHERE claim_id = ? AND source_id = ?`,
		string(c.Status), c.Evidence, c.Score, c.Attempts, accepted, claimID, sourceID,
	)
	if err != nil {
		return types.Citation{}, fmt.Errorf("recording verification: %w", err)
	}
	return c, nil
}

// VerifyAgainstSource verifies a citation using the stored excerpt of its
// candidate source.
func (s *Store) VerifyAgainstSource(claimID, sourceID string) (types.Citation, error) {
	excerpt, err := s.SourceExcerpt(sourceID)
	if err != nil {
		return types.Citation{}, err
	}
	return s.Verify(claimID, sourceID, excerpt)
}
