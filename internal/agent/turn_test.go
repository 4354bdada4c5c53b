package agent

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zdx-sub/zdx/internal/provider"
	"github.com/zdx-sub/zdx/internal/tools"
)

// scriptedStream replays a fixed event list, one per Recv call.
type scriptedStream struct {
	events []provider.StreamEvent
	idx    int
}

func (s *scriptedStream) Recv() (provider.StreamEvent, error) {
	if s.idx >= len(s.events) {
		return provider.StreamEvent{}, io.EOF
	}
	ev := s.events[s.idx]
	s.idx++
	return ev, nil
}

func (s *scriptedStream) Close() error { return nil }

// scriptedClient returns one scriptedStream per round, in order.
type scriptedClient struct {
	rounds [][]provider.StreamEvent
	round  int
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) SendMessagesStream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	if c.round >= len(c.rounds) {
		return &scriptedStream{}, nil
	}
	s := &scriptedStream{events: c.rounds[c.round]}
	c.round++
	return s, nil
}

type echoTool struct{}

func (echoTool) Name() string               { return "echo" }
func (echoTool) Description() string        { return "echoes input" }
func (echoTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (echoTool) Execute(ctx context.Context, input json.RawMessage) tools.Output {
	return tools.Success(map[string]string{"echoed": string(input)})
}

func textOnlyRound(text, stopReason string) []provider.StreamEvent {
	return []provider.StreamEvent{
		{Kind: provider.KindMessageStart, MessageStart: &provider.MessageStart{InputTokens: 10}},
		{Kind: provider.KindContentBlockStart, ContentBlockStart: &provider.ContentBlockStart{Index: 0, Kind: provider.BlockText}},
		{Kind: provider.KindTextDelta, TextDelta: &provider.TextDelta{Index: 0, Text: text}},
		{Kind: provider.KindContentBlockStop, ContentBlockStop: &provider.ContentBlockStop{Index: 0}},
		{Kind: provider.KindMessageDelta, MessageDelta: &provider.MessageDelta{StopReason: stopReason, OutputTokens: 5}},
		{Kind: provider.KindMessageStop},
	}
}

func toolUseRound(id, name, argsJSON string) []provider.StreamEvent {
	return []provider.StreamEvent{
		{Kind: provider.KindMessageStart, MessageStart: &provider.MessageStart{InputTokens: 10}},
		{Kind: provider.KindContentBlockStart, ContentBlockStart: &provider.ContentBlockStart{Index: 0, Kind: provider.BlockToolUse, ID: id, Name: name}},
		{Kind: provider.KindInputJSONDelta, InputJSONDelta: &provider.InputJSONDelta{Index: 0, PartialJSON: argsJSON}},
		{Kind: provider.KindContentBlockStop, ContentBlockStop: &provider.ContentBlockStop{Index: 0}},
		{Kind: provider.KindMessageDelta, MessageDelta: &provider.MessageDelta{StopReason: "tool_use", OutputTokens: 3}},
		{Kind: provider.KindMessageStop},
	}
}

func collect(ch <-chan AgentEvent) []AgentEvent {
	var out []AgentEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestRunTurn_TextOnlyRoundCompletesWithoutToolCalls(t *testing.T) {
	client := &scriptedClient{rounds: [][]provider.StreamEvent{textOnlyRound("hello there", "end_turn")}}
	reg := tools.NewRegistry()

	events := collect(RunTurn(context.Background(), Options{
		Provider: client, Registry: reg, ToolTimeout: time.Second,
	}))

	require.Equal(t, KindTurnStarted, events[0].Kind)
	last := events[len(events)-1]
	require.Equal(t, KindTurnCompleted, last.Kind)
	require.Equal(t, "hello there", last.Completed.FinalText)
	require.Equal(t, "end_turn", last.Completed.StopReason)
}

func TestRunTurn_ToolCallRunsAndLoopsToSecondRound(t *testing.T) {
	client := &scriptedClient{rounds: [][]provider.StreamEvent{
		toolUseRound("call-1", "echo", `{"x":1}`),
		textOnlyRound("done", "end_turn"),
	}}
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(echoTool{}))

	events := collect(RunTurn(context.Background(), Options{
		Provider: client, Registry: reg, ToolTimeout: time.Second,
	}))

	var sawToolStarted, sawToolFinished bool
	for _, ev := range events {
		if ev.Kind == KindToolStarted {
			sawToolStarted = true
			require.Equal(t, "echo", ev.ToolStarted.Name)
		}
		if ev.Kind == KindToolFinished {
			sawToolFinished = true
			require.True(t, ev.ToolFinished.OK)
		}
	}
	require.True(t, sawToolStarted)
	require.True(t, sawToolFinished)

	last := events[len(events)-1]
	require.Equal(t, KindTurnCompleted, last.Kind)
	require.Equal(t, "done", last.Completed.FinalText)
}

func TestRunTurn_UnknownToolProducesFailureEnvelopeAndContinues(t *testing.T) {
	client := &scriptedClient{rounds: [][]provider.StreamEvent{
		toolUseRound("call-1", "does_not_exist", `{}`),
		textOnlyRound("recovered", "end_turn"),
	}}
	reg := tools.NewRegistry()

	events := collect(RunTurn(context.Background(), Options{
		Provider: client, Registry: reg, ToolTimeout: time.Second,
	}))

	var found bool
	for _, ev := range events {
		if ev.Kind == KindToolFinished {
			found = true
			require.False(t, ev.ToolFinished.OK)
		}
	}
	require.True(t, found)
	require.Equal(t, KindTurnCompleted, events[len(events)-1].Kind)
}

func TestRunTurn_InvalidToolCallJSONIsInvalidInputNotCrash(t *testing.T) {
	client := &scriptedClient{rounds: [][]provider.StreamEvent{
		toolUseRound("call-1", "echo", `{not json`),
		textOnlyRound("recovered", "end_turn"),
	}}
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(echoTool{}))

	events := collect(RunTurn(context.Background(), Options{
		Provider: client, Registry: reg, ToolTimeout: time.Second,
	}))

	var finished *ToolFinished
	for _, ev := range events {
		if ev.Kind == KindToolFinished {
			finished = ev.ToolFinished
		}
	}
	require.NotNil(t, finished)
	require.False(t, finished.OK)
}

func TestRunTurn_ProviderInitiationErrorEmitsErrorEvent(t *testing.T) {
	client := &erroringClient{}
	reg := tools.NewRegistry()

	events := collect(RunTurn(context.Background(), Options{Provider: client, Registry: reg}))
	last := events[len(events)-1]
	require.Equal(t, KindError, last.Kind)
}

type erroringClient struct{}

func (erroringClient) Name() string { return "erroring" }
func (erroringClient) SendMessagesStream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	return nil, &provider.StreamError{Kind: provider.ErrAuth, Message: "no credentials"}
}

func TestRunTurn_ContextCancelledMidStreamEmitsInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &cancelingClient{cancel: cancel}

	events := collect(RunTurn(ctx, Options{Provider: client, Registry: tools.NewRegistry()}))
	last := events[len(events)-1]
	require.Equal(t, KindInterrupted, last.Kind)
}

// cancelingClient cancels the caller's context inside SendMessagesStream,
// before the returned stream's first Recv, simulating cancellation firing
// once the round has started.
type cancelingClient struct {
	cancel context.CancelFunc
}

func (c *cancelingClient) Name() string { return "canceling" }
func (c *cancelingClient) SendMessagesStream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	c.cancel()
	return &scriptedStream{events: textOnlyRound("should not finish", "end_turn")}, nil
}
