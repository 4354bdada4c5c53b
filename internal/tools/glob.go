package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const maxGlobResults = 200

// GlobTool implements the glob tool: recursive pattern matching under the
// workspace root, sorted by modification time.
type GlobTool struct {
	root *Root
}

// NewGlobTool builds a GlobTool rooted at root.
func NewGlobTool(root *Root) *GlobTool {
	return &GlobTool{root: root}
}

func (t *GlobTool) Name() string { return GlobToolName }
func (t *GlobTool) Description() string {
	return "Find files by glob pattern (supports ** for recursive matching), sorted by modification time."
}

func (t *GlobTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string", "description": "Glob pattern, e.g. '**/*.go' or 'src/**/*.ts'"},
			"path":    map[string]any{"type": "string", "description": "Base directory relative to the workspace root (default: root)"},
		},
		"required":             []string{"pattern"},
		"additionalProperties": false,
	}
}

func (t *GlobTool) DefaultTimeout() time.Duration { return time.Minute }

type globArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// FileEntry describes one glob match.
type FileEntry struct {
	Path      string    `json:"path"`
	IsDir     bool      `json:"is_dir"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

type globResult struct {
	Entries   []FileEntry `json:"entries"`
	Truncated bool        `json:"truncated"`
}

func (t *GlobTool) Execute(ctx context.Context, input json.RawMessage) Output {
	var a globArgs
	if err := json.Unmarshal(input, &a); err != nil {
		return Fail(ErrInvalidInput, err.Error())
	}
	if strings.TrimSpace(a.Pattern) == "" {
		return Fail(ErrInvalidInput, "pattern must not be empty")
	}

	base := t.root.Dir()
	if a.Path != "" {
		resolved, err := t.root.Resolve(a.Path)
		if err != nil {
			return AsOutput(err)
		}
		base = resolved
	}

	var entries []FileEntry
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != base {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		matched, err := doublestar.Match(a.Pattern, rel)
		if err != nil || !matched {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		relToRoot, _ := filepath.Rel(t.root.Dir(), path)
		entries = append(entries, FileEntry{
			Path:      relToRoot,
			IsDir:     d.IsDir(),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
		if len(entries) >= maxGlobResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return Failf(ErrExecutionFailed, "walk error: %v", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ModTime.After(entries[j].ModTime) })

	return Success(globResult{Entries: entries, Truncated: len(entries) >= maxGlobResults})
}
