// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists the citation ledger for one run: candidate
// sources, claim-to-source bindings, verification outcomes, and the
// run-local research query cache. Backed by SQLite.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

const dbFile = "ledger.db"

// Store manages the citation ledger SQLite database.
type Store struct {
	db              *sql.DB
	threshold       float64
	maxRemediations int
}

// Open opens or creates the ledger database inside runDir, creating the
// schema when missing.
func Open(runDir string, cfg types.VerifyConfig) (*Store, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	dbPath := filepath.Join(runDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:              db,
		threshold:       cfg.Threshold,
		maxRemediations: cfg.MaxRemediations,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			year INTEGER,
			excerpt TEXT,
			provider TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS citations (
			claim_id TEXT NOT NULL,
			source_id TEXT NOT NULL REFERENCES sources(id),
			key TEXT NOT NULL,
			claim_text TEXT NOT NULL,
			status TEXT NOT NULL,
			evidence TEXT,
			score REAL,
			attempts INTEGER NOT NULL DEFAULT 0,
			accepted INTEGER NOT NULL DEFAULT 0,
			first_use INTEGER NOT NULL,
			PRIMARY KEY (claim_id, source_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_status ON citations(status)`,
		`CREATE TABLE IF NOT EXISTS research_cache (
			query TEXT PRIMARY KEY,
			results TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AddSource upserts one research result as a candidate source.
func (s *Store) AddSource(r types.ResearchResult) error {
	authorsJSON, _ := json.Marshal(r.Authors)
	year := 0
	if !r.Date.IsZero() {
		year = r.Date.Year()
	}
	_, err := s.db.Exec(
		`INSERT INTO sources (id, title, authors, year, excerpt, provider)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, year=excluded.year,
			excerpt=excluded.excerpt, provider=excluded.provider`,
		r.SourceID, r.Title, string(authorsJSON), year, r.Excerpt, r.Provider,
	)
	if err != nil {
		return fmt.Errorf("upserting source %s: %w", r.SourceID, err)
	}
	return nil
}

// RegisterClaim records one drafted claim with its candidate sources.
// Every binding starts unverified. Re-registering an existing
// (claim, source) pair is ignored so verification state survives draft
// retries. The returned citations carry the generated claim ID.
func (s *Store) RegisterClaim(claimText string, firstUse int, candidates []types.ResearchResult) ([]types.Citation, error) {
	if strings.TrimSpace(claimText) == "" {
		return nil, fmt.Errorf("empty claim text")
	}

	claimID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var citations []types.Citation
	for _, cand := range candidates {
		if cand.SourceID == "" {
			continue
		}
		key := CitationKey(cand)

		authorsJSON, _ := json.Marshal(cand.Authors)
		year := 0
		if !cand.Date.IsZero() {
			year = cand.Date.Year()
		}
		if _, err := tx.Exec(
			`INSERT INTO sources (id, title, authors, year, excerpt, provider)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			cand.SourceID, cand.Title, string(authorsJSON), year, cand.Excerpt, cand.Provider,
		); err != nil {
			return nil, fmt.Errorf("inserting source %s: %w", cand.SourceID, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO citations (claim_id, source_id, key, claim_text, status, first_use)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(claim_id, source_id) DO NOTHING`,
			claimID, cand.SourceID, key, claimText, string(types.CitationUnverified), firstUse,
		); err != nil {
			return nil, fmt.Errorf("inserting citation: %w", err)
		}

		citations = append(citations, types.Citation{
			Key:       key,
			ClaimID:   claimID,
			ClaimText: claimText,
			SourceID:  cand.SourceID,
			Status:    types.CitationUnverified,
			FirstUse:  firstUse,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim registration: %w", err)
	}
	return citations, nil
}

// Citation fetches one binding by its (claim, source) pair.
func (s *Store) Citation(claimID, sourceID string) (types.Citation, error) {
	row := s.db.QueryRow(
		`SELECT claim_id, source_id, key, claim_text, status, COALESCE(evidence, ''),
			COALESCE(score, 0), attempts, accepted, first_use
		 FROM citations WHERE claim_id = ? AND source_id = ?`,
		claimID, sourceID,
	)
	return scanCitation(row)
}

// ByStatus lists citations in a given state, ordered by first use.
func (s *Store) ByStatus(status types.VerificationStatus) ([]types.Citation, error) {
	rows, err := s.db.Query(
		`SELECT claim_id, source_id, key, claim_text, status, COALESCE(evidence, ''),
			COALESCE(score, 0), attempts, accepted, first_use
		 FROM citations WHERE status = ? ORDER BY first_use, key`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	var out []types.Citation
	for rows.Next() {
		c, err := scanCitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Blocking lists unsupported, unaccepted citations. A non-empty result
// blocks compilation.
func (s *Store) Blocking() ([]types.Citation, error) {
	rows, err := s.db.Query(
		`SELECT claim_id, source_id, key, claim_text, status, COALESCE(evidence, ''),
			COALESCE(score, 0), attempts, accepted, first_use
		 FROM citations WHERE status = ? AND accepted = 0 ORDER BY first_use, key`,
		string(types.CitationUnsupported),
	)
	if err != nil {
		return nil, fmt.Errorf("querying blocking citations: %w", err)
	}
	defer rows.Close()

	var out []types.Citation
	for rows.Next() {
		c, err := scanCitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Bibliography returns the deduplicated sources of verified citations,
// ordered by the claim's first use in the draft. Unverified and
// unsupported citations never reach the bibliography.
func (s *Store) Bibliography() ([]types.BibliographyEntry, error) {
	rows, err := s.db.Query(
		`SELECT c.key, c.source_id, s.title, s.authors, s.year, MIN(c.first_use) AS fu
		 FROM citations c JOIN sources s ON s.id = c.source_id
		 WHERE c.status = ?
		 GROUP BY c.source_id
		 ORDER BY fu, c.key`,
		string(types.CitationVerified),
	)
	if err != nil {
		return nil, fmt.Errorf("querying bibliography: %w", err)
	}
	defer rows.Close()

	var out []types.BibliographyEntry
	for rows.Next() {
		var e types.BibliographyEntry
		var authorsJSON string
		var firstUse int
		if err := rows.Scan(&e.Key, &e.SourceID, &e.Title, &authorsJSON, &e.Year, &firstUse); err != nil {
			return nil, fmt.Errorf("scanning bibliography entry: %w", err)
		}
		json.Unmarshal([]byte(authorsJSON), &e.Authors)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SourceExcerpt returns the stored excerpt for a source.
func (s *Store) SourceExcerpt(sourceID string) (string, error) {
	var excerpt string
	err := s.db.QueryRow(`SELECT COALESCE(excerpt, '') FROM sources WHERE id = ?`, sourceID).Scan(&excerpt)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("unknown source %q", sourceID)
	}
	return excerpt, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCitation(row rowScanner) (types.Citation, error) {
	var c types.Citation
	var status string
	var accepted int
	err := row.Scan(&c.ClaimID, &c.SourceID, &c.Key, &c.ClaimText, &status,
		&c.Evidence, &c.Score, &c.Attempts, &accepted, &c.FirstUse)
	if err != nil {
		return types.Citation{}, fmt.Errorf("scanning citation: %w", err)
	}
	c.Status = types.VerificationStatus(status)
	c.Accepted = accepted != 0
	return c, nil
}

// CitationKey derives a stable BibTeX-style key from a source: first
// author's last name plus year, falling back to a slug of the title or
// the source ID.
func CitationKey(r types.ResearchResult) string {
	year := ""
	if !r.Date.IsZero() {
		year = fmt.Sprintf("%d", r.Date.Year())
	}

	if len(r.Authors) > 0 {
		fields := strings.Fields(r.Authors[0])
		if len(fields) > 0 {
			return slugify(fields[len(fields)-1]) + year
		}
	}
	if r.Title != "" {
		fields := strings.Fields(r.Title)
		n := len(fields)
		if n > 2 {
			n = 2
		}
		return slugify(strings.Join(fields[:n], "")) + year
	}
	return slugify(r.SourceID)
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "src"
	}
	return b.String()
}
