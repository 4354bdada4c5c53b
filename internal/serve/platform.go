// Package serve adapts the conversational core to messenger surfaces. It
// owns allowlist enforcement, update ingestion, and rendering; the queue,
// turn-running, and persistence concerns all live in internal/queue,
// internal/agent, and internal/thread.
package serve

import (
	"context"

	"github.com/zdx-sub/zdx/internal/agent"
	"github.com/zdx-sub/zdx/internal/config"
	"github.com/zdx-sub/zdx/internal/provider"
	"github.com/zdx-sub/zdx/internal/queue"
	"github.com/zdx-sub/zdx/internal/tools"
)

// Runtime bundles the already-constructed core components a platform
// dispatches work through. It owns nothing platform-specific.
type Runtime struct {
	Config   *config.Config
	Provider provider.ProviderClient
	Model    string
	Registry *tools.Registry
	Queue    *queue.Queue
}

// RunTurnForChat appends userText to threadID's log, replays the thread,
// starts an agent turn, and returns the normalized event stream — the
// same shape every surface (CLI, messenger) renders.
func (r *Runtime) RunTurnForChat(ctx context.Context, threadID, userText string) (<-chan agent.AgentEvent, error) {
	return runTurnForThread(ctx, r, threadID, userText)
}

// Platform is the interface implemented by each messaging adapter.
type Platform interface {
	Name() string
	Run(ctx context.Context, rt *Runtime) error
}
