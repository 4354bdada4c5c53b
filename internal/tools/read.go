package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ReadTool implements the read tool: line-numbered file contents with
// optional pagination, rooted at a fixed workspace directory.
type ReadTool struct {
	root   *Root
	limits OutputLimits
}

// NewReadTool builds a ReadTool rooted at root.
func NewReadTool(root *Root, limits OutputLimits) *ReadTool {
	return &ReadTool{root: root, limits: limits}
}

func (t *ReadTool) Name() string        { return ReadToolName }
func (t *ReadTool) Description() string { return "Read file contents. Returns line-numbered output." }

func (t *ReadTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":       map[string]any{"type": "string", "description": "Path to the file, relative to the workspace root"},
			"start_line": map[string]any{"type": "integer", "description": "1-indexed start line (default: 1)"},
			"end_line":   map[string]any{"type": "integer", "description": "1-indexed end line (default: EOF)"},
		},
		"required":             []string{"path"},
		"additionalProperties": false,
	}
}

type readArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

type readResult struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	TotalLines int    `json:"total_lines"`
	Truncated  bool   `json:"truncated"`
}

func (t *ReadTool) Execute(ctx context.Context, input json.RawMessage) Output {
	var a readArgs
	if err := json.Unmarshal(input, &a); err != nil {
		return Fail(ErrInvalidInput, err.Error())
	}
	if strings.TrimSpace(a.Path) == "" {
		return Fail(ErrInvalidInput, "path must not be empty")
	}

	abs, err := t.root.Resolve(a.Path)
	if err != nil {
		return AsOutput(err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Fail(ErrFileNotFound, a.Path)
		}
		return Failf(ErrExecutionFailed, "read error: %v", err)
	}

	if isBinaryContent(data) {
		return Failf(ErrBinaryFile, "%s appears to be a binary file", a.Path)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	totalLines := len(lines)

	start := 0
	if a.StartLine > 0 {
		start = a.StartLine - 1
	}
	if start >= totalLines {
		return Failf(ErrInvalidInput, "start_line %d exceeds file length %d", a.StartLine, totalLines)
	}
	end := totalLines
	if a.EndLine > 0 && a.EndLine < totalLines {
		end = a.EndLine
	}
	if start >= end {
		return Success(readResult{Path: a.Path, Content: "", TotalLines: totalLines})
	}

	selected := lines[start:end]
	truncated := false
	if len(selected) > t.limits.MaxLines {
		selected = selected[:t.limits.MaxLines]
		truncated = true
	}

	var sb strings.Builder
	for i, line := range selected {
		fmt.Fprintf(&sb, "%d: %s\n", start+i+1, line)
	}
	content := strings.TrimSuffix(sb.String(), "\n")

	if int64(len(content)) > t.limits.MaxBytes {
		content = content[:utf8Boundary([]byte(content), int(t.limits.MaxBytes))]
		truncated = true
	}

	return Success(readResult{
		Path:       a.Path,
		Content:    content,
		TotalLines: totalLines,
		Truncated:  truncated,
	})
}

// isBinaryContent detects binary content via http.DetectContentType plus a
// null-byte scan of the sampled prefix.
func isBinaryContent(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	contentType := http.DetectContentType(sample)
	if strings.HasPrefix(contentType, "text/") || strings.Contains(contentType, "json") || strings.Contains(contentType, "xml") {
		return false
	}
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return false
}
