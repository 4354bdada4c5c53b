package thread

import (
	"fmt"

	"github.com/google/uuid"
)

// Fork produces a new thread whose log is: a copied Meta (title prefixed to
// mark it as a fork), the given prefix events, then (if provided) a final
// UserMessage. Meta events inside prefixEvents are skipped, so the fork's
// own title and root path stay in effect. It never mutates the source
// thread. Per SPEC_FULL §9, a
// forked thread's usage starts from zero — prefixEvents must not include
// Usage events if the caller wants a clean usage count (this package does
// not filter them out; callers building prefixEvents from a Replayed's
// Events should drop EventUsage entries themselves if they want the
// zero-usage default).
func Fork(cfg Config, sourceID string, prefixEvents []Event, newUserInput string) (string, error) {
	source, _, err := Replay(cfg, sourceID)
	if err != nil {
		return "", fmt.Errorf("thread: replay source for fork: %w", err)
	}

	newID := uuid.NewString()
	log, err := Open(cfg, newID)
	if err != nil {
		return "", fmt.Errorf("thread: open fork target: %w", err)
	}

	title := source.Meta.Title
	if title == "" {
		title = sourceID
	}
	if err := log.SetTitle("fork of " + title); err != nil {
		return "", fmt.Errorf("thread: write fork meta: %w", err)
	}
	if source.Meta.RootPath != "" {
		if err := log.SetRootPath(source.Meta.RootPath); err != nil {
			return "", fmt.Errorf("thread: write fork root path: %w", err)
		}
	}

	for _, e := range prefixEvents {
		if e.Type == EventMeta {
			continue
		}
		if err := log.Append(e); err != nil {
			return "", fmt.Errorf("thread: write fork prefix event: %w", err)
		}
	}

	if newUserInput != "" {
		if err := log.Append(Event{Type: EventUserMessage, Text: newUserInput}); err != nil {
			return "", fmt.Errorf("thread: write fork user message: %w", err)
		}
	}

	return newID, nil
}
