// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), types.VerifyConfig{Threshold: 0.5, MaxRemediations: 2})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func source(id, title, excerpt string, year int, authors ...string) types.ResearchResult {
	return types.ResearchResult{
		SourceID: id,
		Title:    title,
		Excerpt:  excerpt,
		Authors:  authors,
		Date:     time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRegisterClaim(t *testing.T) {
	s := testStore(t)

	cands := []types.ResearchResult{
		source("10.1/a", "Widget Dynamics", "widgets move fast", 2023, "Ada Smith"),
		source("10.1/b", "Widget Statics", "widgets stand still", 2021, "Bo Jones"),
	}
	citations, err := s.RegisterClaim("Widgets move fast under load.", 0, cands)
	require.NoError(t, err)
	require.Len(t, citations, 2)

	assert.Equal(t, "smith2023", citations[0].Key)
	assert.Equal(t, "jones2021", citations[1].Key)
	for _, c := range citations {
		assert.Equal(t, types.CitationUnverified, c.Status)
		assert.NotEmpty(t, c.ClaimID)
	}

	unverified, err := s.ByStatus(types.CitationUnverified)
	require.NoError(t, err)
	assert.Len(t, unverified, 2)
}

func TestVerify_AboveThreshold(t *testing.T) {
	s := testStore(t)

	cands := []types.ResearchResult{
		source("10.1/a", "Widget Dynamics", "", 2023, "Ada Smith"),
	}
	citations, err := s.RegisterClaim("Widgets accelerate under heavy load.", 0, cands)
	require.NoError(t, err)
	c := citations[0]

	got, err := s.Verify(c.ClaimID, c.SourceID, "We show that widgets accelerate sharply under heavy load conditions.")
	require.NoError(t, err)

	assert.Equal(t, types.CitationVerified, got.Status)
	assert.GreaterOrEqual(t, got.Score, 0.5)
	assert.NotEmpty(t, got.Evidence)
}

func TestVerify_Idempotent(t *testing.T) {
	s := testStore(t)

	citations, err := s.RegisterClaim("Widgets accelerate under heavy load.", 0,
		[]types.ResearchResult{source("10.1/a", "Widget Dynamics", "", 2023, "Ada Smith")})
	require.NoError(t, err)
	c := citations[0]

	evidence := "Widgets accelerate under heavy load in every trial."
	first, err := s.Verify(c.ClaimID, c.SourceID, evidence)
	require.NoError(t, err)
	require.Equal(t, types.CitationVerified, first.Status)

	// Re-verifying with worse evidence must not regress the citation.
	second, err := s.Verify(c.ClaimID, c.SourceID, "unrelated text about birds")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("verification not idempotent (-first +second):\n%s", diff)
	}
}

func TestVerify_UnsupportedThenAcceptedAfterBound(t *testing.T) {
	s := testStore(t)

	citations, err := s.RegisterClaim("Widgets defy gravity entirely.", 0,
		[]types.ResearchResult{source("10.1/a", "Widget Dynamics", "", 2023, "Ada Smith")})
	require.NoError(t, err)
	c := citations[0]

	got, err := s.Verify(c.ClaimID, c.SourceID, "nothing relevant here")
	require.NoError(t, err)
	assert.Equal(t, types.CitationUnsupported, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.False(t, got.Accepted)

	blocking, err := s.Blocking()
	require.NoError(t, err)
	require.Len(t, blocking, 1)

	// Second failed round hits MaxRemediations=2; the claim is accepted
	// and stops blocking compilation.
	got, err = s.Verify(c.ClaimID, c.SourceID, "still nothing relevant")
	require.NoError(t, err)
	assert.Equal(t, types.CitationUnsupported, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.True(t, got.Accepted)

	blocking, err = s.Blocking()
	require.NoError(t, err)
	assert.Empty(t, blocking)
}

func TestBibliography_VerifiedOnlyOrderedByFirstUse(t *testing.T) {
	s := testStore(t)

	late, err := s.RegisterClaim("Claim cited later about widget statics.", 5,
		[]types.ResearchResult{source("10.1/b", "Widget Statics", "", 2021, "Bo Jones")})
	require.NoError(t, err)

	early, err := s.RegisterClaim("Claim cited first about widget dynamics.", 1,
		[]types.ResearchResult{source("10.1/a", "Widget Dynamics", "", 2023, "Ada Smith")})
	require.NoError(t, err)

	never, err := s.RegisterClaim("Unverifiable claim about widget magic.", 3,
		[]types.ResearchResult{source("10.1/c", "Widget Magic", "", 2020, "Cy Doe")})
	require.NoError(t, err)

	_, err = s.Verify(early[0].ClaimID, early[0].SourceID, "claim cited first about widget dynamics confirmed")
	require.NoError(t, err)
	_, err = s.Verify(late[0].ClaimID, late[0].SourceID, "claim cited later about widget statics confirmed")
	require.NoError(t, err)
	_ = never // stays unverified

	bib, err := s.Bibliography()
	require.NoError(t, err)

	require.Len(t, bib, 2, "only verified sources belong in the bibliography")
	assert.Equal(t, "10.1/a", bib[0].SourceID)
	assert.Equal(t, "10.1/b", bib[1].SourceID)
	assert.Equal(t, "Widget Dynamics", bib[0].Title)
	assert.Equal(t, []string{"Ada Smith"}, bib[0].Authors)
	assert.Equal(t, 2023, bib[0].Year)
}

func TestBibliography_DeduplicatesSources(t *testing.T) {
	s := testStore(t)

	src := source("10.1/a", "Widget Dynamics", "", 2023, "Ada Smith")

	first, err := s.RegisterClaim("Widgets move fast today.", 2, []types.ResearchResult{src})
	require.NoError(t, err)
	second, err := s.RegisterClaim("Widgets move fast always.", 7, []types.ResearchResult{src})
	require.NoError(t, err)

	_, err = s.Verify(first[0].ClaimID, first[0].SourceID, "widgets move fast today and tomorrow")
	require.NoError(t, err)
	_, err = s.Verify(second[0].ClaimID, second[0].SourceID, "widgets move fast always everywhere")
	require.NoError(t, err)

	bib, err := s.Bibliography()
	require.NoError(t, err)
	assert.Len(t, bib, 1)
}

func TestResearchCacheRoundTrip(t *testing.T) {
	s := testStore(t)

	_, ok, err := s.Get("quantum widgets")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []types.ResearchResult{
		{SourceID: "10.1/a", Title: "A", Relevance: 0.9},
		{SourceID: "10.1/b", Title: "B", Relevance: 0.5},
	}
	require.NoError(t, s.Put("quantum widgets", want))

	got, ok, err := s.Get("quantum widgets")
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cache round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEntailmentScore(t *testing.T) {
	tests := []struct {
		name     string
		claim    string
		evidence string
		min, max float64
	}{
		{"full overlap", "widgets accelerate quickly", "widgets accelerate quickly in trials", 1.0, 1.0},
		{"no overlap", "widgets accelerate quickly", "birds fly south in winter", 0.0, 0.0},
		{"partial overlap", "widgets accelerate quickly", "widgets decelerate quickly", 0.5, 0.7},
		{"empty claim", "", "anything", 0.0, 0.0},
		{"stopwords ignored", "the of and", "completely different", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EntailmentScore(tt.claim, tt.evidence)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestExtractCitedClaims(t *testing.T) {
	draft := `Widgets are fascinating. Widgets accelerate under load \cite{smith2023}.
Uncited filler sentence here. Both effects combine \cite{smith2023,jones2021} in practice!`

	claims := ExtractCitedClaims(draft)
	require.Len(t, claims, 2)

	assert.Equal(t, "Widgets accelerate under load .", claims[0].Text)
	assert.Equal(t, []string{"smith2023"}, claims[0].Keys)
	assert.Equal(t, 1, claims[0].Position)

	assert.Equal(t, []string{"smith2023", "jones2021"}, claims[1].Keys)
	assert.Equal(t, 3, claims[1].Position)
}

func TestExtractCitedClaims_StripsLatexMarkup(t *testing.T) {
	draft := `\section{Results}
Latency drops \emph{sharply} when caching is enabled \cite{smith2023}.`

	claims := ExtractCitedClaims(draft)
	require.Len(t, claims, 1)
	assert.Equal(t, "Latency drops sharply when caching is enabled .", claims[0].Text)
	assert.Equal(t, []string{"smith2023"}, claims[0].Keys)

	// A heading riding along in the claim would dilute the overlap
	// fraction against evidence that matches the prose exactly.
	score := EntailmentScore(claims[0].Text, "Latency drops sharply when caching is enabled.")
	assert.Equal(t, 1.0, score)
}

func TestCitationKey(t *testing.T) {
	tests := []struct {
		name string
		in   types.ResearchResult
		want string
	}{
		{"author and year", source("x", "T", "", 2023, "Ada Smith"), "smith2023"},
		{"no author", types.ResearchResult{SourceID: "x", Title: "Widget Dynamics Review", Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}, "widgetdynamics2020"},
		{"id only", types.ResearchResult{SourceID: "10.1/ab-c"}, "101abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CitationKey(tt.in))
		})
	}
}
