// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// Get returns cached results for a normalized research query. Satisfies
// the research client's Cache interface.
func (s *Store) Get(query string) ([]types.ResearchResult, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT results FROM research_cache WHERE query = ?`, query).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading research cache: %w", err)
	}

	var results []types.ResearchResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, false, fmt.Errorf("decoding cached results: %w", err)
	}
	return results, true, nil
}

// Put stores results for a normalized research query, replacing any
// previous entry.
func (s *Store) Put(query string, results []types.ResearchResult) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO research_cache (query, results) VALUES (?, ?)
		 ON CONFLICT(query) DO UPDATE SET results = excluded.results`,
		query, string(raw),
	)
	if err != nil {
		return fmt.Errorf("writing research cache: %w", err)
	}
	return nil
}
