package agent

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/zdx-sub/zdx/internal/provider"
)

// pendingToolCall accumulates one ToolUse content block's partial JSON
// fragments, keyed by the provider's content-block index.
type pendingToolCall struct {
	index    int
	id       string
	name     string
	argsJSON []byte
}

// aggregator folds one provider round's StreamEvents into the state the
// turn loop needs at round end: the assistant's text, its reasoning (plus
// any replay token), and the ordered list of tool calls it issued.
type aggregator struct {
	text      strings.Builder
	reasoning strings.Builder

	replayToken string
	stopReason  string

	blockKinds map[int]provider.BlockKind
	toolByIdx  map[int]*pendingToolCall
	toolOrder  []int

	inputTokens      int
	outputTokens     int
	cacheReadTokens  int
	cacheWriteTokens int

	toolCalls []pendingToolCall
}

func newAggregator() *aggregator {
	return &aggregator{
		blockKinds: make(map[int]provider.BlockKind),
		toolByIdx:  make(map[int]*pendingToolCall),
	}
}

// consume reads stream until it ends, forwarding normalized AgentEvents to
// out. done=true means the provider stream ended cleanly (MessageStop or
// io.EOF); interrupted=true means ctx fired before that happened. A
// terminal provider Error is forwarded as a KindError AgentEvent and
// consume returns done=false, interrupted=false — the caller must not
// treat that as a clean completion.
func (a *aggregator) consume(ctx context.Context, stream provider.Stream, out chan<- AgentEvent) (done, interrupted bool) {
	for {
		select {
		case <-ctx.Done():
			return false, true
		default:
		}

		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				a.finishToolCalls()
				return true, false
			}
			out <- AgentEvent{Kind: KindError, Err: &TurnError{Message: err.Error()}}
			return false, false
		}

		switch ev.Kind {
		case provider.KindMessageStart:
			a.inputTokens = ev.MessageStart.InputTokens
			a.cacheReadTokens = ev.MessageStart.CacheReadTokens
			a.cacheWriteTokens = ev.MessageStart.CacheWriteTokens
			out <- AgentEvent{Kind: KindUsageDelta, UsageDelta: &UsageDelta{
				InputTokens: a.inputTokens, CacheReadTokens: a.cacheReadTokens, CacheWriteTokens: a.cacheWriteTokens,
			}}

		case provider.KindContentBlockStart:
			s := ev.ContentBlockStart
			a.blockKinds[s.Index] = s.Kind
			if s.Kind == provider.BlockToolUse {
				call := &pendingToolCall{index: s.Index, id: s.ID, name: s.Name}
				a.toolByIdx[s.Index] = call
				a.toolOrder = append(a.toolOrder, s.Index)
				out <- AgentEvent{Kind: KindToolStarted, ToolStarted: &ToolStarted{Index: s.Index, ID: s.ID, Name: s.Name}}
			}

		case provider.KindTextDelta:
			a.text.WriteString(ev.TextDelta.Text)
			out <- AgentEvent{Kind: KindTextDelta, TextDelta: ev.TextDelta.Text}

		case provider.KindInputJSONDelta:
			if call := a.toolByIdx[ev.InputJSONDelta.Index]; call != nil {
				call.argsJSON = append(call.argsJSON, []byte(ev.InputJSONDelta.PartialJSON)...)
			}

		case provider.KindThinkingDelta:
			a.reasoning.WriteString(ev.ThinkingDelta.Text)
			out <- AgentEvent{Kind: KindReasoningDelta, ReasoningDelta: ev.ThinkingDelta.Text}

		case provider.KindThinkingSummary:
			out <- AgentEvent{Kind: KindReasoningSummary, ReasoningSummary: ev.ThinkingSummary.Text}

		case provider.KindContentBlockStop:
			// no-op: per-block finalization happens in finishToolCalls/at round end

		case provider.KindMessageDelta:
			d := ev.MessageDelta
			a.stopReason = d.StopReason
			if d.OutputTokens > 0 {
				delta := d.OutputTokens - a.outputTokens
				a.outputTokens = d.OutputTokens
				out <- AgentEvent{Kind: KindUsageDelta, UsageDelta: &UsageDelta{OutputTokens: delta}}
			}

		case provider.KindMessageStop:
			a.finishToolCalls()
			return true, false

		case provider.KindError:
			out <- AgentEvent{Kind: KindError, Err: &TurnError{Message: ev.Error.Error()}}
			return false, false

		case provider.KindPing:
			// ignored per spec
		}
	}
}

func (a *aggregator) finishToolCalls() {
	for _, idx := range a.toolOrder {
		call := a.toolByIdx[idx]
		if len(call.argsJSON) == 0 {
			call.argsJSON = []byte("{}")
		}
		a.toolCalls = append(a.toolCalls, *call)
	}
}
