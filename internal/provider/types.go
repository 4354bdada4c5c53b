// Package provider normalizes model backends (Anthropic, OpenAI, Gemini,
// Bedrock) behind a single streaming contract so the agent turn loop never
// branches on which vendor it's talking to.
package provider

import (
	"context"
	"encoding/json"
)

// BlockKind identifies the kind of content block a ContentBlockStart opens.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockToolUse  BlockKind = "tool_use"
	BlockThinking BlockKind = "thinking"
)

// ErrorKind closes the set of terminal stream failures a backend can report.
type ErrorKind string

const (
	ErrHTTPStatus ErrorKind = "http_status"
	ErrTimeout    ErrorKind = "timeout"
	ErrOverloaded ErrorKind = "overloaded"
	ErrAuth       ErrorKind = "auth"
	ErrNetwork    ErrorKind = "network"
)

// StreamEvent is the normalized, wire-agnostic event a ProviderClient emits.
// Exactly one of the typed fields is populated per event; Kind names which.
type StreamEvent struct {
	Kind EventKind

	MessageStart      *MessageStart
	ContentBlockStart *ContentBlockStart
	TextDelta         *TextDelta
	InputJSONDelta    *InputJSONDelta
	ThinkingDelta     *ThinkingDelta
	ThinkingSummary   *ThinkingSummary
	ContentBlockStop  *ContentBlockStop
	MessageDelta      *MessageDelta
	Error             *StreamError
}

// EventKind discriminates StreamEvent's payload.
type EventKind string

const (
	KindMessageStart      EventKind = "message_start"
	KindContentBlockStart EventKind = "content_block_start"
	KindTextDelta         EventKind = "text_delta"
	KindInputJSONDelta    EventKind = "input_json_delta"
	KindThinkingDelta     EventKind = "thinking_delta"
	KindThinkingSummary   EventKind = "thinking_summary"
	KindContentBlockStop  EventKind = "content_block_stop"
	KindMessageDelta      EventKind = "message_delta"
	KindMessageStop       EventKind = "message_stop"
	KindPing              EventKind = "ping" // ignored by callers
	KindError             EventKind = "error"
)

type MessageStart struct {
	Model            string
	InputTokens      int
	CacheReadTokens  int
	CacheWriteTokens int
}

type ContentBlockStart struct {
	Index int
	Kind  BlockKind
	ID    string // tool_use call id
	Name  string // tool_use tool name
}

type TextDelta struct {
	Index int
	Text  string
}

// InputJSONDelta carries a fragment of a tool call's arguments; fragments
// for a given Index concatenate into a single JSON document.
type InputJSONDelta struct {
	Index       int
	PartialJSON string
}

type ThinkingDelta struct {
	Index int
	Text  string
}

// ThinkingSummary carries a backend-redacted summary in place of raw
// reasoning text (e.g. OpenAI's reasoning summaries).
type ThinkingSummary struct {
	Index int
	Text  string
}

type ContentBlockStop struct {
	Index int
}

type MessageDelta struct {
	StopReason   string
	OutputTokens int
}

// StreamError is terminal: no further events follow it on the same stream.
type StreamError struct {
	Kind    ErrorKind
	Message string
}

func (e *StreamError) Error() string { return string(e.Kind) + ": " + e.Message }

// Role identifies a message's speaker in the derived message list the agent
// turn loop maintains between provider rounds.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the derived message list.
type Message struct {
	Role  Role
	Parts []Part
}

// PartKind identifies a Message Part's shape.
type PartKind string

const (
	PartText       PartKind = "text"
	PartThinking   PartKind = "thinking"
	PartToolUse    PartKind = "tool_use"
	PartToolResult PartKind = "tool_result"
)

type Part struct {
	Kind PartKind

	Text string

	// ToolUse
	ToolCallID   string
	ToolName     string
	ToolArgsJSON json.RawMessage

	// ToolResult — paired to a preceding ToolUse by ToolCallID
	ToolResultForID string
	ToolResultText  string
	ToolResultError bool

	// Thinking replay tokens some backends require echoed back verbatim
	// on the next round (e.g. Anthropic's signature, OpenAI's encrypted
	// reasoning content).
	ReplayToken string
}

// ToolSpec is the {name, description, input_schema} manifest sent upstream;
// shares its shape with tools.Spec so the registry's Specs() feed directly.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is a single provider round: the full derived message list plus
// the tool manifest and optional system prompt and reasoning effort.
type Request struct {
	Model           string
	Messages        []Message
	Tools           []ToolSpec
	System          string
	ReasoningEffort string // forwarded verbatim; ignored by backends that don't support it
}

// Stream yields StreamEvents until it returns a non-nil error (io.EOF on
// clean completion). Close releases the underlying connection; safe to call
// after EOF.
type Stream interface {
	Recv() (StreamEvent, error)
	Close() error
}

// ProviderClient is the backend abstraction the agent turn loop depends on.
type ProviderClient interface {
	Name() string
	SendMessagesStream(ctx context.Context, req Request) (Stream, error)
}
