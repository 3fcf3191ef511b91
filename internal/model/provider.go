// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model implements the language model client used by the outline
// and draft stages, plus the skills registry that maps a request to a
// document-type-specific prompt contract.
package model

import (
	"context"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// Response is one model completion with its token accounting.
type Response struct {
	Text  string
	Usage types.TokenUsage
}

// Provider abstracts the language model API so stages and tests never
// depend on a concrete backend.
type Provider interface {
	Generate(ctx context.Context, system, user string) (Response, error)
}
