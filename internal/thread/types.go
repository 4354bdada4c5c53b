// Package thread implements the append-only, event-sourced thread log.
//
// A thread is identified by a stable string id. Its on-disk representation
// is a newline-delimited JSON file, one ThreadEvent per line; the log is
// the source of truth and derived state (message list, cumulative usage,
// title) is always rebuilt by replay, never stored separately.
package thread

import "time"

// EventType discriminates the ThreadEvent variants.
type EventType string

const (
	EventMeta         EventType = "meta"
	EventUserMessage  EventType = "user_message"
	EventAssistantMsg EventType = "assistant_message"
	EventReasoning    EventType = "reasoning"
	EventToolUse      EventType = "tool_use"
	EventToolResult   EventType = "tool_result"
	EventUsage        EventType = "usage"
)

// SchemaVersion is the current Meta schema version written by this package.
const SchemaVersion = 1

// Attachment is a file reference carried on a UserMessage event.
type Attachment struct {
	Path     string `json:"path"`
	MimeType string `json:"mime_type,omitempty"`
}

// Event is a single line of a thread's event log. Exactly one of the
// type-specific field groups is populated, selected by Type.
type Event struct {
	Type EventType `json:"type"`
	TS   time.Time `json:"ts"`

	// Meta
	SchemaVersion int    `json:"schema_version,omitempty"`
	Title         string `json:"title,omitempty"`
	RootPath      string `json:"root_path,omitempty"`

	// UserMessage
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// AssistantMessage reuses Text above.

	// Reasoning
	Summary      string `json:"summary,omitempty"`
	ReplayTokens int    `json:"replay_tokens,omitempty"`

	// ToolUse
	ToolUseID string `json:"tool_use_id,omitempty"`
	Name      string `json:"name,omitempty"`
	InputJSON string `json:"input_json,omitempty"`

	// ToolResult (ToolUseID above identifies the matching ToolUse)
	OutputEnvelope string `json:"output_envelope,omitempty"`
	OK             bool   `json:"ok,omitempty"`

	// Usage (per-turn delta, not cumulative)
	Input      int `json:"input,omitempty"`
	Output     int `json:"output,omitempty"`
	CacheRead  int `json:"cache_read,omitempty"`
	CacheWrite int `json:"cache_write,omitempty"`
}

// Meta holds the thread's current derived metadata: the result of folding
// every Meta event in the log, last-writer-wins per field.
type Meta struct {
	SchemaVersion int
	Title         string
	RootPath      string
}

// Usage is cumulative token usage, the sum of every Usage event in a log.
type Usage struct {
	Input      int
	Output     int
	CacheRead  int
	CacheWrite int
}

// Add folds a per-turn delta into the cumulative total.
func (u *Usage) Add(d Event) {
	u.Input += d.Input
	u.Output += d.Output
	u.CacheRead += d.CacheRead
	u.CacheWrite += d.CacheWrite
}

// ContentBlockType discriminates ChatMessage content blocks.
type ContentBlockType string

const (
	BlockText       ContentBlockType = "text"
	BlockToolUse    ContentBlockType = "tool_use"
	BlockToolResult ContentBlockType = "tool_result"
	BlockThinking   ContentBlockType = "thinking"
)

// ContentBlock is one typed block inside a derived ChatMessage.
type ContentBlock struct {
	Type ContentBlockType

	Text string // BlockText, BlockThinking (summary)

	ToolUseID string // BlockToolUse, BlockToolResult
	Name      string // BlockToolUse
	Input     string // BlockToolUse: raw JSON

	ResultContent string // BlockToolResult
	ResultOK      bool   // BlockToolResult

	ThinkingTokens int // BlockThinking
}

// ChatRole is the provider-facing role of a derived ChatMessage.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is the provider-facing view produced by replaying events.
type ChatMessage struct {
	Role   ChatRole
	Blocks []ContentBlock
}

// Replayed is the full result of folding a thread's event log.
type Replayed struct {
	Meta     Meta
	Events   []Event
	Messages []ChatMessage
	Usage    Usage
}
