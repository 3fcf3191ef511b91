// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research implements literature lookup against external
// scholarly APIs. A Client fans a query out to the configured backends,
// merges and ranks the hits, and memoizes them per run so identical
// queries never hit the network twice.
package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// Typed lookup failures.
var (
	// ErrDisabled marks lookups skipped because research is turned off or
	// no backend is usable. The run continues in degraded mode.
	ErrDisabled = errors.New("research lookup disabled")

	// ErrInvalidQuery marks a query the backends cannot serve. Fatal for
	// the lookup, not for the run.
	ErrInvalidQuery = errors.New("invalid research query")

	// ErrUnreachable marks network-level backend failures.
	ErrUnreachable = errors.New("research backend unreachable")
)

// Backend is one scholarly search provider.
type Backend interface {
	// Name returns the backend identifier for provenance and logs.
	Name() string

	// Search runs one query and returns ranked results.
	Search(ctx context.Context, query string, cfg types.ResearchConfig) ([]types.ResearchResult, error)
}

// Cache memoizes lookup results per run, keyed by normalized query.
type Cache interface {
	Get(query string) ([]types.ResearchResult, bool, error)
	Put(query string, results []types.ResearchResult) error
}

// Client coordinates backends and the run-local cache.
type Client struct {
	cfg      types.ResearchConfig
	backends []Backend
	cache    Cache
}

// NewClient builds a lookup client from config. Backends are selected by
// available credentials: OpenAlex always (it is keyless), Semantic
// Scholar when an API key is configured.
func NewClient(cfg types.ResearchConfig, cache Cache) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	backends := []Backend{
		&OpenAlexBackend{Client: httpClient, Email: cfg.Email},
	}
	if cfg.APIKey != "" {
		backends = append(backends, &SemanticScholarBackend{Client: httpClient, APIKey: cfg.APIKey})
	}

	return &Client{cfg: cfg, backends: backends, cache: cache}
}

// NewClientWithBackends builds a client over explicit backends, used by
// tests and by callers that manage backend construction themselves.
func NewClientWithBackends(cfg types.ResearchConfig, cache Cache, backends ...Backend) *Client {
	return &Client{cfg: cfg, backends: backends, cache: cache}
}

// Lookup resolves one query. Identical queries within a run (after
// normalization) are served from the cache without touching the network.
// Backend failures degrade: if at least one backend answers, its results
// are returned; if none does, the classified error of the last failure
// is returned.
func (c *Client) Lookup(ctx context.Context, query string, w io.Writer) ([]types.ResearchResult, error) {
	if !c.cfg.Enabled {
		return nil, types.Degraded(ErrDisabled)
	}

	normalized := NormalizeQuery(query)
	if normalized == "" {
		return nil, types.Fatal(fmt.Errorf("%w: empty after normalization", ErrInvalidQuery))
	}

	if c.cache != nil {
		if cached, ok, err := c.cache.Get(normalized); err == nil && ok {
			return cached, nil
		}
	}

	var merged []types.ResearchResult
	var lastErr error
	answered := false

	for _, b := range c.backends {
		results, err := c.searchWithRetry(ctx, b, normalized)
		if err != nil {
			lastErr = err
			fmt.Fprintf(w, "warning: %s lookup failed: %v\n", b.Name(), err)
			continue
		}
		answered = true
		merged = append(merged, results...)
	}

	if !answered {
		if lastErr == nil {
			lastErr = types.Degraded(ErrDisabled)
		}
		return nil, lastErr
	}

	merged = dedupeAndRank(merged, c.cfg.MaxResults)

	if c.cache != nil {
		if err := c.cache.Put(normalized, merged); err != nil {
			fmt.Fprintf(w, "warning: caching research results: %v\n", err)
		}
	}
	return merged, nil
}

// searchWithRetry retries unreachable backends up to the configured
// bound. Rate limiting is handled below this level by the HTTP retry
// helper; only transport errors loop here.
func (c *Client) searchWithRetry(ctx context.Context, b Backend, query string) ([]types.ResearchResult, error) {
	retries := c.cfg.MaxUnreachableRetries
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := b.Search(ctx, query, c.cfg)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !errors.Is(err, ErrUnreachable) {
			break
		}
	}
	return nil, lastErr
}

// NormalizeQuery lowercases and collapses whitespace so trivially
// different spellings of the same query share a cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// dedupeAndRank removes duplicate source IDs (keeping the higher
// relevance), sorts by relevance descending, and caps the result count.
func dedupeAndRank(results []types.ResearchResult, max int) []types.ResearchResult {
	best := make(map[string]types.ResearchResult, len(results))
	for _, r := range results {
		if r.SourceID == "" {
			continue
		}
		if prev, ok := best[r.SourceID]; !ok || r.Relevance > prev.Relevance {
			best[r.SourceID] = r
		}
	}

	out := make([]types.ResearchResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].SourceID < out[j].SourceID
	})

	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
