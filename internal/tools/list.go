package tools

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
)

// ListTool implements the list tool: a single-directory listing primitive,
// distinct from glob's recursive pattern search.
type ListTool struct {
	root *Root
}

// NewListTool builds a ListTool rooted at root.
func NewListTool(root *Root) *ListTool {
	return &ListTool{root: root}
}

func (t *ListTool) Name() string        { return ListToolName }
func (t *ListTool) Description() string { return "List the immediate contents of a directory." }

func (t *ListTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory relative to the workspace root (default: root)"},
		},
		"additionalProperties": false,
	}
}

type listArgs struct {
	Path string `json:"path,omitempty"`
}

type listEntry struct {
	Name      string `json:"name"`
	IsDir     bool   `json:"is_dir"`
	SizeBytes int64  `json:"size_bytes"`
}

type listResult struct {
	Path    string      `json:"path"`
	Entries []listEntry `json:"entries"`
}

func (t *ListTool) Execute(ctx context.Context, input json.RawMessage) Output {
	var a listArgs
	if len(input) > 0 {
		if err := json.Unmarshal(input, &a); err != nil {
			return Fail(ErrInvalidInput, err.Error())
		}
	}

	dir := t.root.Dir()
	rel := "."
	if strings.TrimSpace(a.Path) != "" {
		resolved, err := t.root.Resolve(a.Path)
		if err != nil {
			return AsOutput(err)
		}
		dir = resolved
		rel = a.Path
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Fail(ErrFileNotFound, rel)
		}
		return Failf(ErrExecutionFailed, "list directory: %v", err)
	}

	out := make([]listEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		out = append(out, listEntry{Name: e.Name(), IsDir: e.IsDir(), SizeBytes: size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return Success(listResult{Path: rel, Entries: out})
}
