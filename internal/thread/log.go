package thread

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Log is an append-only handle on one thread's on-disk event file.
// Every write opens the file for append and writes a single complete line
// ending in "\n"; partial lines are never produced. One Log owns exclusive
// write access to its file for the lifetime of the turn that holds it —
// callers coordinate that via internal/queue, which guarantees at most one
// turn per conversation key runs at a time.
type Log struct {
	id   string
	path string
	mu   sync.Mutex // serializes concurrent Append calls from the same Log handle
}

// Open resolves a thread id to its on-disk path and ensures the parent
// directory exists. A thread that has no file yet is treated as empty —
// Open never creates the file itself; the first Append does.
func Open(cfg Config, id string) (*Log, error) {
	if id == "" {
		return nil, fmt.Errorf("thread: empty id")
	}
	path, err := cfg.pathFor(id)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("thread: create threads dir: %w", err)
	}
	return &Log{id: id, path: path}, nil
}

// ID returns the thread id this Log was opened for.
func (l *Log) ID() string { return l.id }

// Path returns the on-disk path of the log file.
func (l *Log) Path() string { return l.path }

// Append serializes an event and writes it as a single line, stamping TS
// if it is zero. The write is a single os.File.Write call whose content
// ends with "\n", so a crash mid-write cannot produce a partial line that
// is itself terminated — a reader sees either the full line or nothing.
func (l *Log) Append(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("thread: marshal event: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("thread: open for append: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("thread: write event: %w", err)
	}
	return nil
}

// AppendMeta appends a Meta event carrying only the given title/root path
// fields. Pass "" for a field to leave it unchanged (readers last-writer-wins
// merge only the fields a given Meta event actually sets, and this package
// never writes a Meta event with a blank field meaning "set to blank" — use
// SetTitle/SetRootPath instead of calling this directly with empty strings
// you want applied).
func (l *Log) appendMeta(e Event) error {
	e.Type = EventMeta
	if e.SchemaVersion == 0 {
		e.SchemaVersion = SchemaVersion
	}
	return l.Append(e)
}

// SetTitle appends a Meta event with only Title set.
func (l *Log) SetTitle(title string) error {
	return l.appendMeta(Event{Title: title})
}

// SetRootPath appends a Meta event with only RootPath set.
func (l *Log) SetRootPath(path string) error {
	return l.appendMeta(Event{RootPath: path})
}

// readLines streams the raw event lines of a log file. A missing file reads
// as zero lines (empty thread). A corrupt line is skipped with a warning
// logged via the returned warnings slice; it never aborts replay.
func readLines(path string) (lines []string, warnings []string, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("thread: open log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, fmt.Sprintf("thread: scan error at line %d: %v", lineNo, err))
	}
	return lines, warnings, nil
}

// parseEvents decodes raw lines into Events, skipping and warning on any
// line that fails to parse as JSON — a single corrupt line is a warning
// signal (EventType = "corrupted_log_line" in the error taxonomy), not a
// fatal error.
func parseEvents(lines []string) (events []Event, warnings []string) {
	for i, line := range lines {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			warnings = append(warnings, fmt.Sprintf("thread: corrupted_log_line at line %d: %v", i+1, err))
			continue
		}
		events = append(events, e)
	}
	return events, warnings
}

// Replay streams the log file, reconstructs the folded Meta, the derived
// ChatMessage list, and cumulative Usage. It never mutates the file.
func Replay(cfg Config, id string) (*Replayed, []string, error) {
	path, err := cfg.pathFor(id)
	if err != nil {
		return nil, nil, err
	}
	lines, warn1, err := readLines(path)
	if err != nil {
		return nil, nil, err
	}
	events, warn2 := parseEvents(lines)

	r := fold(events)
	return r, append(warn1, warn2...), nil
}

// fold rebuilds Meta, the derived message list, and cumulative Usage from
// an ordered event slice. Derived state is always a pure fold over the log;
// it is never itself persisted (see SPEC_FULL §9).
func fold(events []Event) *Replayed {
	r := &Replayed{Events: events}

	for _, e := range events {
		switch e.Type {
		case EventMeta:
			if e.SchemaVersion != 0 {
				r.Meta.SchemaVersion = e.SchemaVersion
			}
			if e.Title != "" {
				r.Meta.Title = e.Title
			}
			if e.RootPath != "" {
				r.Meta.RootPath = e.RootPath
			}

		case EventUserMessage:
			r.Messages = append(r.Messages, ChatMessage{
				Role:   RoleUser,
				Blocks: []ContentBlock{{Type: BlockText, Text: e.Text}},
			})

		case EventAssistantMsg:
			r.Messages = append(r.Messages, ChatMessage{
				Role:   RoleAssistant,
				Blocks: []ContentBlock{{Type: BlockText, Text: e.Text}},
			})

		case EventReasoning:
			r.Messages = append(r.Messages, ChatMessage{
				Role:   RoleAssistant,
				Blocks: []ContentBlock{{Type: BlockThinking, Text: e.Summary, ThinkingTokens: e.ReplayTokens}},
			})

		case EventToolUse:
			r.Messages = append(r.Messages, ChatMessage{
				Role: RoleAssistant,
				Blocks: []ContentBlock{{
					Type:      BlockToolUse,
					ToolUseID: e.ToolUseID,
					Name:      e.Name,
					Input:     e.InputJSON,
				}},
			})

		case EventToolResult:
			r.Messages = append(r.Messages, ChatMessage{
				Role: RoleUser,
				Blocks: []ContentBlock{{
					Type:          BlockToolResult,
					ToolUseID:     e.ToolUseID,
					ResultContent: e.OutputEnvelope,
					ResultOK:      e.OK,
				}},
			})

		case EventUsage:
			r.Usage.Add(e)
		}
	}
	return r
}
