// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"strings"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// emit delivers one event, honoring cancellation. Returns false when the
// context ended before the caller took the event.
func emit(ctx context.Context, events chan<- types.Event, ev types.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// progress is a convenience wrapper for stage progress events.
func progress(ctx context.Context, events chan<- types.Event, stage types.StageName, message string) bool {
	return emit(ctx, events, types.Event{Type: types.EventProgress, Stage: stage, Message: message})
}

// eventWriter adapts the io.Writer status-line convention of the
// stage workers into progress events, one event per line.
type eventWriter struct {
	ctx    context.Context
	events chan<- types.Event
	stage  types.StageName
}

func (w *eventWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !progress(w.ctx, w.events, w.stage, line) {
			return len(p), w.ctx.Err()
		}
	}
	return len(p), nil
}
