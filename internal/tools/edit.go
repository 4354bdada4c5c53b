package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// EditTool implements the edit tool: deterministic old_text/new_text string
// replacement against a single file rooted at the workspace root. old_text
// may contain the literal token <<<elided>>> to match any run of characters
// (including newlines) between two anchor fragments.
type EditTool struct {
	root *Root
}

// NewEditTool builds an EditTool rooted at root.
func NewEditTool(root *Root) *EditTool {
	return &EditTool{root: root}
}

func (t *EditTool) Name() string { return EditToolName }
func (t *EditTool) Description() string {
	return "Replace an exact text span in a file. old_text must match uniquely; use <<<elided>>> to skip unchanged spans."
}

func (t *EditTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":     map[string]any{"type": "string", "description": "Path to the file, relative to the workspace root"},
			"old_text": map[string]any{"type": "string", "description": "Exact text to find and replace, unique within the file. May contain <<<elided>>> to match any span."},
			"new_text": map[string]any{"type": "string", "description": "Replacement text"},
		},
		"required":             []string{"path", "old_text", "new_text"},
		"additionalProperties": false,
	}
}

type editArgs struct {
	Path    string `json:"path"`
	OldText string `json:"old_text"`
	NewText string `json:"new_text"`
}

type editResult struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	OldLines  int    `json:"old_lines"`
	NewLines  int    `json:"new_lines"`
}

func (t *EditTool) Execute(ctx context.Context, input json.RawMessage) Output {
	var a editArgs
	if err := json.Unmarshal(input, &a); err != nil {
		return Fail(ErrInvalidInput, err.Error())
	}
	if strings.TrimSpace(a.Path) == "" {
		return Fail(ErrInvalidInput, "path must not be empty")
	}
	if a.OldText == "" {
		return Fail(ErrInvalidInput, "old_text must not be empty")
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
	content := string(data)

	start, end, err := locateMatch(content, a.OldText)
	if err != nil {
		return Fail(ErrPatternNotFound, err.Error())
	}

	matched := content[start:end]
	newContent := content[:start] + a.NewText + content[end:]

	if err := atomicWrite(abs, newContent); err != nil {
		return Failf(ErrExecutionFailed, "%v", err)
	}

	return Success(editResult{
		Path:      a.Path,
		StartLine: strings.Count(content[:start], "\n") + 1,
		OldLines:  countLines(matched),
		NewLines:  countLines(a.NewText),
	})
}

// locateMatch finds old_text in content. Without the <<<elided>>> marker,
// old_text must occur exactly once; an ambiguous match is reported as not
// found rather than guessed. With the marker, the marker stands for any run
// of characters between its surrounding anchor fragments: the first
// occurrence of the leading fragment is used, each later fragment is
// matched at its first occurrence after the previous one, and uniqueness
// is not checked.
func locateMatch(content, oldText string) (start, end int, err error) {
	if !strings.Contains(oldText, "<<<elided>>>") {
		return findUnique(content, oldText)
	}

	parts := strings.Split(oldText, "<<<elided>>>")
	first := strings.Index(content, parts[0])
	if first == -1 {
		return 0, 0, &Error{Code: ErrPatternNotFound, Msg: "old_text anchor not found"}
	}
	cursor := first + len(parts[0])
	for _, part := range parts[1:] {
		idx := strings.Index(content[cursor:], part)
		if idx == -1 {
			return 0, 0, &Error{Code: ErrPatternNotFound, Msg: "old_text anchor not found"}
		}
		cursor += idx + len(part)
	}
	return first, cursor, nil
}

func findUnique(content, needle string) (int, int, error) {
	first := strings.Index(content, needle)
	if first == -1 {
		return 0, 0, &Error{Code: ErrPatternNotFound, Msg: "old_text not found in file"}
	}
	if strings.Index(content[first+1:], needle) != -1 {
		return 0, 0, &Error{Code: ErrPatternNotFound, Msg: "old_text matches more than once; include more context"}
	}
	return first, first + len(needle), nil
}

func atomicWrite(path, content string) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
