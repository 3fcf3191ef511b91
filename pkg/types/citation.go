// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// VerificationStatus tracks a citation through the verification loop.
type VerificationStatus string

const (
	// CitationUnverified is the initial state after claim registration.
	CitationUnverified VerificationStatus = "unverified"

	// CitationVerified means a candidate source's excerpt entails the claim
	// above the configured confidence threshold.
	CitationVerified VerificationStatus = "verified"

	// CitationUnsupported means no candidate source entails the claim.
	// Unsupported citations block compilation until remediated or accepted.
	CitationUnsupported VerificationStatus = "unsupported"
)

// Citation binds a drafted claim to a candidate source. Uniqueness is
// enforced by the (claim ID, source ID) pair; a claim may carry several
// candidate citations until verification settles on one.
type Citation struct {
	// Key is the inline citation label used in the draft (e.g. "smith2024").
	Key string `json:"key" yaml:"key"`

	// ClaimID identifies the claim this citation supports.
	ClaimID string `json:"claim_id" yaml:"claim_id"`

	// ClaimText is the sentence the source is expected to support.
	ClaimText string `json:"claim_text" yaml:"claim_text"`

	// SourceID is the resolvable identifier of the candidate source.
	SourceID string `json:"source_id" yaml:"source_id"`

	// Status is the verification outcome.
	Status VerificationStatus `json:"status" yaml:"status"`

	// Evidence is the excerpt the verifier used to reach Status.
	Evidence string `json:"evidence,omitempty" yaml:"evidence,omitempty"`

	// Score is the entailment score the verifier computed for Evidence.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`

	// Attempts counts remediation rounds for unsupported claims.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	// Accepted marks an unsupported claim the run chose to keep, flagged
	// in the output instead of blocking compilation forever.
	Accepted bool `json:"accepted,omitempty" yaml:"accepted,omitempty"`

	// FirstUse is the position of the claim's first appearance in the
	// draft, used to order the bibliography.
	FirstUse int `json:"first_use" yaml:"first_use"`
}

// BibliographyEntry is one deduplicated source in the final bibliography,
// ordered by first use in the draft.
type BibliographyEntry struct {
	// Key is the citation label emitted into the BibTeX file.
	Key string `json:"key" yaml:"key"`

	// SourceID is the resolvable source identifier (DOI, arXiv ID, URL).
	SourceID string `json:"source_id" yaml:"source_id"`

	// Title is the source title.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`
}
