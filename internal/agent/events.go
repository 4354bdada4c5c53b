// Package agent runs a single conversational turn: it drives a provider
// stream to completion, executing tool calls and looping for further
// provider rounds as needed, and emits a normalized AgentEvent stream a
// surface (CLI, bot, TUI) can render without knowing which backend or
// which tools produced it.
package agent

// EventKind discriminates AgentEvent's payload.
type EventKind string

const (
	KindTurnStarted      EventKind = "turn_started"
	KindTextDelta        EventKind = "text_delta"
	KindReasoningDelta   EventKind = "reasoning_delta"
	KindReasoningSummary EventKind = "reasoning_summary"
	KindToolStarted      EventKind = "tool_started"
	KindToolProgress     EventKind = "tool_progress"
	KindToolFinished     EventKind = "tool_finished"
	KindUsageDelta       EventKind = "usage_delta"
	KindInterrupted      EventKind = "interrupted"
	KindTurnCompleted    EventKind = "turn_completed"
	KindError            EventKind = "error"
)

// AgentEvent is the normalized event the turn loop emits. Exactly one of
// the typed fields is populated per event, selected by Kind.
type AgentEvent struct {
	Kind EventKind

	TextDelta        string
	ReasoningDelta   string
	ReasoningSummary string

	ToolStarted  *ToolStarted
	ToolProgress *ToolProgress
	ToolFinished *ToolFinished

	UsageDelta *UsageDelta

	Interrupted *Interrupted
	Completed   *TurnCompleted
	Err         *TurnError
}

// ToolStarted fires once a ToolUse content block opens.
type ToolStarted struct {
	Index int
	ID    string
	Name  string
}

// ToolProgress is emitted by tools that support incremental progress;
// none of the core tools do yet, so the turn loop never produces this on
// its own — it exists for a tool implementation to populate in the future.
type ToolProgress struct {
	ID   string
	Text string
}

// ToolFinished carries the tool's {ok,data|error} envelope verbatim.
type ToolFinished struct {
	ID       string
	Name     string
	OK       bool
	TimedOut bool
	Envelope []byte // json-encoded tools.Output
}

// UsageDelta carries only the fields that changed since the last delta.
type UsageDelta struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// Interrupted fires when the turn's cancellation token fires mid-stream.
type Interrupted struct {
	PartialText string
}

// TurnCompleted fires when the provider stops without pending tool calls.
type TurnCompleted struct {
	FinalText  string
	StopReason string
}

// TurnError wraps a terminal failure — either the provider's own
// StreamError or an internal turn-loop error (e.g. provider round
// initiation failure after retry exhaustion).
type TurnError struct {
	Message string
}
