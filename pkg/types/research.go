// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ResearchResult is one ranked literature hit for a lookup query. Results
// are append-only evidence: drafting and citation verification reference
// them but never mutate them.
type ResearchResult struct {
	// SourceID is the resolvable identifier of the source (DOI, arXiv ID,
	// or provider URL). Later stages and the citation ledger reference
	// sources by this ID without re-fetching.
	SourceID string `json:"source_id" yaml:"source_id"`

	// Title is the source title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Authors lists the source authors in provider order.
	Authors []string `json:"authors" yaml:"authors"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// Excerpt is the abstract or snippet used as verification evidence.
	Excerpt string `json:"excerpt" yaml:"excerpt"`

	// Provider identifies which backend found this result
	// (e.g. "openalex", "semantic_scholar").
	Provider string `json:"provider" yaml:"provider"`

	// Relevance is a value between 0.0 and 1.0, higher is better.
	Relevance float64 `json:"relevance" yaml:"relevance"`
}
