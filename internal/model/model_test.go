// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

func TestMessagesBackendGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "be helpful", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "write a draft", req.Messages[0].Content)

		fmt.Fprint(w, `{
			"content": [{"type": "text", "text": "the draft"}],
			"usage": {"input_tokens": 12, "output_tokens": 34}
		}`)
	}))
	defer srv.Close()

	orig := messagesAPIBase
	messagesAPIBase = srv.URL
	defer func() { messagesAPIBase = orig }()

	b := NewMessagesBackend(types.ModelConfig{Model: "test-model", APIKey: "secret", MaxTokens: 1024})
	resp, err := b.Generate(context.Background(), "be helpful", "write a draft")
	require.NoError(t, err)

	assert.Equal(t, "the draft", resp.Text)
	assert.Equal(t, types.TokenUsage{InputTokens: 12, OutputTokens: 34}, resp.Usage)
}

func TestMessagesBackendGenerate_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	orig := messagesAPIBase
	messagesAPIBase = srv.URL
	defer func() { messagesAPIBase = orig }()

	b := NewMessagesBackend(types.ModelConfig{Model: "m", APIKey: "k"})
	_, err := b.Generate(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Equal(t, types.ClassRetryable, types.ClassOf(err))
}

func TestMessagesBackendGenerate_BadCredentialsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	orig := messagesAPIBase
	messagesAPIBase = srv.URL
	defer func() { messagesAPIBase = orig }()

	b := NewMessagesBackend(types.ModelConfig{Model: "m", APIKey: "wrong"})
	_, err := b.Generate(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Equal(t, types.ClassFatal, types.ClassOf(err))
}

func TestMessagesBackendGenerate_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": [], "usage": {"input_tokens": 1, "output_tokens": 0}}`)
	}))
	defer srv.Close()

	orig := messagesAPIBase
	messagesAPIBase = srv.URL
	defer func() { messagesAPIBase = orig }()

	b := NewMessagesBackend(types.ModelConfig{Model: "m", APIKey: "k"})
	_, err := b.Generate(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Equal(t, types.ClassRetryable, types.ClassOf(err))
}

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		query string
		want  DocumentType
	}{
		{"Write a paper on widget dynamics", DocPaper},
		{"Prepare slides for the kickoff", DocSlides},
		{"A Beamer presentation about results", DocSlides},
		{"Conference poster summarizing the study", DocPoster},
		{"Quarterly progress report", DocReport},
		{"Grant proposal for widget research", DocGrant},
		{"Funding proposal draft", DocGrant},
		{"Something unspecific", DocPaper},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDocumentType(tt.query))
		})
	}
}

func TestSkillFor(t *testing.T) {
	for _, dt := range []DocumentType{DocPaper, DocSlides, DocPoster, DocReport, DocGrant} {
		s, err := SkillFor(dt)
		require.NoError(t, err)
		assert.Equal(t, dt, s.Type)
		assert.NotEmpty(t, s.SystemPrompt)
		assert.NotEmpty(t, s.DocumentClass)
	}

	_, err := SkillFor(DocumentType("novel"))
	assert.Error(t, err)
}

func TestRenderDraftPrompt(t *testing.T) {
	out, err := RenderDraftPrompt(DraftInput{
		Query:   "widget paper",
		Outline: "1. Introduction\n2. Results",
		Sources: []SourceRef{{Key: "smith2023", Title: "Widget Dynamics", Excerpt: "widgets move"}},
		Feedback: []string{
			"unresolved citation jones2021",
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "widget paper")
	assert.Contains(t, out, "[smith2023] Widget Dynamics")
	assert.Contains(t, out, "unresolved citation jones2021")
	assert.Contains(t, out, "1. Introduction")
}

func TestRenderOutlinePrompt_NoOptionalSections(t *testing.T) {
	out, err := RenderOutlinePrompt(OutlineInput{Query: "just a query"})
	require.NoError(t, err)

	assert.Contains(t, out, "just a query")
	assert.NotContains(t, out, "previous attempt")
	assert.NotContains(t, out, "Available sources")
}
