package tools

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// GrepTool implements the grep tool: regex content search, preferring the
// system ripgrep binary when available and falling back to a pure-Go
// regexp walk otherwise.
type GrepTool struct {
	root   *Root
	limits OutputLimits
}

// NewGrepTool builds a GrepTool rooted at root.
func NewGrepTool(root *Root, limits OutputLimits) *GrepTool {
	return &GrepTool{root: root, limits: limits}
}

func (t *GrepTool) Name() string { return GrepToolName }
func (t *GrepTool) Description() string {
	return "Search file contents using RE2 regular expressions. Returns matches with surrounding context."
}

func (t *GrepTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":     map[string]any{"type": "string", "description": "RE2 regular expression"},
			"path":        map[string]any{"type": "string", "description": "File or directory relative to the workspace root (default: root)"},
			"include":     map[string]any{"type": "string", "description": "Glob filter for files, e.g. '*.go'"},
			"max_results": map[string]any{"type": "integer", "description": "Maximum number of matches (default: 100)"},
		},
		"required":             []string{"pattern"},
		"additionalProperties": false,
	}
}

func (t *GrepTool) DefaultTimeout() time.Duration { return time.Minute }

type grepArgs struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path,omitempty"`
	Include    string `json:"include,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// GrepMatch is a single matched line plus surrounding context.
type GrepMatch struct {
	Path       string `json:"path"`
	LineNumber int    `json:"line_number"`
	Match      string `json:"match"`
	Context    string `json:"context,omitempty"`
}

type grepResult struct {
	Matches   []GrepMatch `json:"matches"`
	Truncated bool        `json:"truncated"`
}

func (t *GrepTool) Execute(ctx context.Context, input json.RawMessage) Output {
	var a grepArgs
	if err := json.Unmarshal(input, &a); err != nil {
		return Fail(ErrInvalidInput, err.Error())
	}
	if strings.TrimSpace(a.Pattern) == "" {
		return Fail(ErrInvalidInput, "pattern must not be empty")
	}
	if _, err := regexp.Compile(a.Pattern); err != nil {
		return Failf(ErrInvalidInput, "invalid regex pattern: %v", err)
	}

	searchPath := t.root.Dir()
	if a.Path != "" {
		resolved, err := t.root.Resolve(a.Path)
		if err != nil {
			return AsOutput(err)
		}
		searchPath = resolved
	}

	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = t.limits.MaxResults
	}

	if ripgrepAvailable() {
		matches, err := t.executeRipgrep(ctx, a.Pattern, searchPath, a.Include, maxResults)
		if err == nil {
			return Success(grepResult{Matches: relativize(t.root, matches), Truncated: len(matches) >= maxResults})
		}
		if ctx.Err() != nil {
			return TimedOutSuccess(grepResult{})
		}
		// fall through to the Go implementation on ripgrep failure
	}

	re := regexp.MustCompile(a.Pattern)
	files, err := collectFiles(searchPath, a.Include)
	if err != nil {
		return Failf(ErrExecutionFailed, "collect files: %v", err)
	}
	sortFilesByMtime(files)

	var matches []GrepMatch
	for _, file := range files {
		if ctx.Err() != nil {
			return TimedOutSuccess(grepResult{Matches: relativize(t.root, matches)})
		}
		if len(matches) >= maxResults {
			break
		}
		fileMatches, err := searchFile(file, re, maxResults-len(matches))
		if err != nil {
			continue
		}
		matches = append(matches, fileMatches...)
	}

	return Success(grepResult{Matches: relativize(t.root, matches), Truncated: len(matches) >= maxResults})
}

func relativize(root *Root, matches []GrepMatch) []GrepMatch {
	out := make([]GrepMatch, len(matches))
	for i, m := range matches {
		if rel, err := filepath.Rel(root.Dir(), m.Path); err == nil {
			m.Path = rel
		}
		out[i] = m
	}
	return out
}

func ripgrepAvailable() bool {
	_, err := exec.LookPath("rg")
	return err == nil
}

type rgMatch struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type rgMatchData struct {
	Path struct {
		Text string `json:"text"`
	} `json:"path"`
	Lines struct {
		Text string `json:"text"`
	} `json:"lines"`
	LineNumber int `json:"line_number"`
}

func (t *GrepTool) executeRipgrep(ctx context.Context, pattern, searchPath, include string, maxResults int) ([]GrepMatch, error) {
	args := []string{
		"--json",
		"--max-count", strconv.Itoa(maxResults),
		"--context", "3",
		"--hidden",
		"--glob", "!.git",
	}
	if include != "" {
		args = append(args, "--glob", include)
	}
	args = append(args, pattern, searchPath)

	cmd := exec.CommandContext(ctx, "rg", args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}
	return parseRipgrepOutput(output, maxResults)
}

type pendingMatch struct {
	filePath   string
	lineNumber int
	matchLine  string
	before     []string
	after      []string
}

func parseRipgrepOutput(output []byte, maxResults int) ([]GrepMatch, error) {
	var matches []GrepMatch
	var pending *pendingMatch

	for _, line := range strings.Split(string(output), "\n") {
		if line == "" {
			continue
		}
		var msg rgMatch
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "match":
			if pending != nil {
				matches = append(matches, buildMatchFromPending(pending))
				if len(matches) >= maxResults {
					return matches, nil
				}
			}
			var data rgMatchData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				continue
			}
			pending = &pendingMatch{
				filePath:   data.Path.Text,
				lineNumber: data.LineNumber,
				matchLine:  strings.TrimSuffix(data.Lines.Text, "\n"),
			}
		case "context":
			if pending == nil {
				continue
			}
			var data rgMatchData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				continue
			}
			contextLine := strings.TrimSuffix(data.Lines.Text, "\n")
			if data.LineNumber < pending.lineNumber {
				pending.before = append(pending.before, contextLine)
			} else {
				pending.after = append(pending.after, contextLine)
			}
		}
	}
	if pending != nil {
		matches = append(matches, buildMatchFromPending(pending))
	}
	return matches, nil
}

func buildMatchFromPending(p *pendingMatch) GrepMatch {
	var sb strings.Builder
	startLine := p.lineNumber - len(p.before)
	for i, line := range p.before {
		sb.WriteString(strconv.Itoa(startLine + i))
		sb.WriteString(": ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("> ")
	sb.WriteString(strconv.Itoa(p.lineNumber))
	sb.WriteString(": ")
	sb.WriteString(p.matchLine)
	sb.WriteString("\n")
	for i, line := range p.after {
		sb.WriteString(strconv.Itoa(p.lineNumber + 1 + i))
		sb.WriteString(": ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return GrepMatch{
		Path:       p.filePath,
		LineNumber: p.lineNumber,
		Match:      p.matchLine,
		Context:    strings.TrimSuffix(sb.String(), "\n"),
	}
}

func collectFiles(searchPath, include string) ([]string, error) {
	info, err := os.Stat(searchPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{searchPath}, nil
	}
	var files []string
	err = filepath.WalkDir(searchPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}
		if include != "" {
			match, err := doublestar.Match(include, d.Name())
			if err != nil || !match {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func sortFilesByMtime(files []string) {
	type fileInfo struct {
		path  string
		mtime int64
	}
	infos := make([]fileInfo, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			infos = append(infos, fileInfo{path: f})
			continue
		}
		infos = append(infos, fileInfo{path: f, mtime: info.ModTime().Unix()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].mtime > infos[j].mtime })
	for i, info := range infos {
		files[i] = info.path
	}
}

func searchFile(path string, re *regexp.Regexp, maxMatches int) ([]GrepMatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}
	if isBinaryContent(buf[:n]) {
		return nil, nil
	}
	file.Seek(0, 0)

	var lines []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var matches []GrepMatch
	for lineNum, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		matches = append(matches, GrepMatch{
			Path:       path,
			LineNumber: lineNum + 1,
			Match:      line,
			Context:    buildContext(lines, lineNum, 3),
		})
		if len(matches) >= maxMatches {
			break
		}
	}
	return matches, nil
}

func buildContext(lines []string, matchIdx, contextLines int) string {
	start := matchIdx - contextLines
	if start < 0 {
		start = 0
	}
	end := matchIdx + contextLines + 1
	if end > len(lines) {
		end = len(lines)
	}
	var sb strings.Builder
	for i := start; i < end; i++ {
		prefix := "  "
		if i == matchIdx {
			prefix = "> "
		}
		sb.WriteString(prefix)
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(": ")
		sb.WriteString(lines[i])
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
