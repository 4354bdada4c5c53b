package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/zdx-sub/zdx/internal/agent"
	"github.com/zdx-sub/zdx/internal/thread"
)

func runTurnForThread(ctx context.Context, rt *Runtime, threadID, userText string) (<-chan agent.AgentEvent, error) {
	log, err := thread.Open(thread.Config{}, threadID)
	if err != nil {
		return nil, fmt.Errorf("opening thread %s: %w", threadID, err)
	}

	if userText != "" {
		if err := log.Append(thread.Event{Type: thread.EventUserMessage, Text: userText}); err != nil {
			return nil, fmt.Errorf("appending user message: %w", err)
		}
	}

	replayed, _, err := thread.Replay(thread.Config{}, threadID)
	if err != nil {
		return nil, fmt.Errorf("replaying thread %s: %w", threadID, err)
	}

	systemPrompt, err := rt.Config.ResolvedSystemPrompt()
	if err != nil {
		return nil, err
	}

	timeout := 120 * time.Second
	if rt.Config.ToolTimeoutSecs > 0 {
		timeout = time.Duration(rt.Config.ToolTimeoutSecs) * time.Second
	}

	opts := agent.Options{
		Provider:     rt.Provider,
		Registry:     rt.Registry,
		Model:        rt.Model,
		SystemPrompt: systemPrompt,
		Messages:     agent.MessagesFromThread(replayed),
		ToolTimeout:  timeout,
		Thread:       log,
	}

	return agent.RunTurn(ctx, opts), nil
}
