package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zdx-sub/zdx/internal/provider"
	"github.com/zdx-sub/zdx/internal/thread"
	"github.com/zdx-sub/zdx/internal/tools"
)

// maxRounds bounds the provider-round loop (step 4.a "loop to step 2") so
// a misbehaving model issuing unbroken tool calls can't run forever.
const maxRounds = 50

// Options configures a single RunTurn invocation.
type Options struct {
	Provider     provider.ProviderClient
	Registry     *tools.Registry
	Model        string
	SystemPrompt string
	Messages     []provider.Message // caller-maintained derived message list
	ToolTimeout  time.Duration

	// Thread is optional: when set, tool-use/tool-result/assistant-message
	// events are persisted to the log as the turn progresses, and each
	// provider round's observed usage (one Usage event for input/cache
	// tokens, one for output tokens) is appended once the round's stream
	// ends, including an interrupted round.
	Thread *thread.Log
}

// RunTurn drives one agent turn to completion (possibly spanning several
// provider rounds interleaved with tool calls) and returns the channel of
// normalized events. The channel is closed once a terminal event (
// TurnCompleted, Interrupted, or Error) has been sent.
func RunTurn(ctx context.Context, opts Options) <-chan AgentEvent {
	out := make(chan AgentEvent, 32)
	go func() {
		defer close(out)
		runTurn(ctx, opts, out)
	}()
	return out
}

func runTurn(ctx context.Context, opts Options, out chan<- AgentEvent) {
	out <- AgentEvent{Kind: KindTurnStarted}

	messages := opts.Messages
	specs := toolSpecs(opts.Registry)

	for round := 0; round < maxRounds; round++ {
		req := provider.Request{
			Model:    opts.Model,
			System:   opts.SystemPrompt,
			Messages: messages,
			Tools:    specs,
		}

		stream, err := opts.Provider.SendMessagesStream(ctx, req)
		if err != nil {
			out <- AgentEvent{Kind: KindError, Err: &TurnError{Message: err.Error()}}
			return
		}

		agg := newAggregator()
		done, interrupted := agg.consume(ctx, stream, out)
		stream.Close()
		if opts.Thread != nil {
			if agg.inputTokens != 0 || agg.cacheReadTokens != 0 || agg.cacheWriteTokens != 0 {
				_ = opts.Thread.Append(thread.Event{Type: thread.EventUsage, Input: agg.inputTokens, CacheRead: agg.cacheReadTokens, CacheWrite: agg.cacheWriteTokens})
			}
			if agg.outputTokens != 0 {
				_ = opts.Thread.Append(thread.Event{Type: thread.EventUsage, Output: agg.outputTokens})
			}
		}
		if interrupted {
			out <- AgentEvent{Kind: KindInterrupted, Interrupted: &Interrupted{PartialText: agg.text.String()}}
			return
		}
		if !done {
			// Terminal provider Error already forwarded by the aggregator.
			return
		}

		if len(agg.toolCalls) == 0 {
			finalText := agg.text.String()
			if opts.Thread != nil && finalText != "" {
				_ = opts.Thread.Append(thread.Event{Type: thread.EventAssistantMsg, Text: finalText})
			}
			out <- AgentEvent{Kind: KindTurnCompleted, Completed: &TurnCompleted{FinalText: finalText, StopReason: agg.stopReason}}
			return
		}

		messages = append(messages, assistantToolUseMessage(agg))
		resultMsg := provider.Message{Role: provider.RoleUser}
		for _, call := range agg.toolCalls {
			envelope := invokeTool(ctx, opts, call, out)
			resultMsg.Parts = append(resultMsg.Parts, provider.Part{
				Kind:            provider.PartToolResult,
				ToolResultForID: call.id,
				ToolResultText:  envelopeText(envelope),
				ToolResultError: !envelope.OK,
			})
			if opts.Thread != nil {
				raw, _ := json.Marshal(envelope)
				_ = opts.Thread.Append(thread.Event{Type: thread.EventToolUse, ToolUseID: call.id, Name: call.name, InputJSON: string(call.argsJSON)})
				_ = opts.Thread.Append(thread.Event{Type: thread.EventToolResult, ToolUseID: call.id, OutputEnvelope: string(raw), OK: envelope.OK})
			}
		}
		messages = append(messages, resultMsg)

		if ctx.Err() != nil {
			out <- AgentEvent{Kind: KindInterrupted, Interrupted: &Interrupted{PartialText: agg.text.String()}}
			return
		}
	}

	out <- AgentEvent{Kind: KindError, Err: &TurnError{Message: "exceeded maximum provider rounds for a single turn"}}
}

func toolSpecs(reg *tools.Registry) []provider.ToolSpec {
	if reg == nil {
		return nil
	}
	specs := reg.Specs()
	out := make([]provider.ToolSpec, 0, len(specs))
	for _, s := range specs {
		out = append(out, provider.ToolSpec{Name: s.Name, Description: s.Description, InputSchema: s.InputSchema})
	}
	return out
}

func invokeTool(ctx context.Context, opts Options, call pendingToolCall, out chan<- AgentEvent) tools.Output {
	var envelope tools.Output
	if !json.Valid(call.argsJSON) {
		envelope = tools.Fail(tools.ErrInvalidInput, "tool call arguments were not valid JSON")
	} else if opts.Registry == nil {
		envelope = tools.Fail(tools.ErrExecutionFailed, "no tool registry configured")
	} else {
		envelope = opts.Registry.Invoke(ctx, call.name, call.argsJSON, opts.ToolTimeout)
	}

	raw, _ := json.Marshal(envelope)
	out <- AgentEvent{Kind: KindToolFinished, ToolFinished: &ToolFinished{
		ID: call.id, Name: call.name, OK: envelope.OK, TimedOut: envelope.TimedOut, Envelope: raw,
	}}
	return envelope
}

func envelopeText(o tools.Output) string {
	if o.Error != nil {
		return string(o.Error.Code) + ": " + o.Error.Message
	}
	if len(o.Data) == 0 {
		return ""
	}
	return string(o.Data)
}

func assistantToolUseMessage(agg *aggregator) provider.Message {
	msg := provider.Message{Role: provider.RoleAssistant}
	if text := agg.text.String(); text != "" {
		msg.Parts = append(msg.Parts, provider.Part{Kind: provider.PartText, Text: text})
	}
	if reasoning := agg.reasoning.String(); reasoning != "" {
		msg.Parts = append(msg.Parts, provider.Part{Kind: provider.PartThinking, Text: reasoning, ReplayToken: agg.replayToken})
	}
	for _, call := range agg.toolCalls {
		msg.Parts = append(msg.Parts, provider.Part{
			Kind: provider.PartToolUse, ToolCallID: call.id, ToolName: call.name, ToolArgsJSON: call.argsJSON,
		})
	}
	return msg
}
