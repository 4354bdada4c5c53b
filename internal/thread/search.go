package thread

import (
	"os"
	"sort"
	"strings"
	"time"
)

// SearchOptions configures Search.
type SearchOptions struct {
	Query     string     // case-insensitive substring match on title and event text; empty = no filter
	DateAfter *time.Time // filters by file last-modified time
	DateBefore *time.Time
	Limit     int // cap on results; 0 = no cap
}

// SearchResult is one match from Search.
type SearchResult struct {
	ID         string
	Title      string
	ModifiedAt time.Time
	Snippet    string
}

// Search scans the threads directory and ranks matches: if Query is set,
// case-insensitive substring match on title and any event text; then
// filters by date range on file mtime; sorts newest-first; caps at Limit.
func Search(cfg Config, opts SearchOptions) ([]SearchResult, error) {
	dir, err := cfg.resolveDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(opts.Query))
	var results []SearchResult

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mtime := info.ModTime()
		if opts.DateAfter != nil && mtime.Before(*opts.DateAfter) {
			continue
		}
		if opts.DateBefore != nil && mtime.After(*opts.DateBefore) {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".jsonl")
		replayed, _, err := Replay(cfg, id)
		if err != nil {
			continue
		}

		if query == "" {
			results = append(results, SearchResult{ID: id, Title: replayed.Meta.Title, ModifiedAt: mtime})
			continue
		}

		if strings.Contains(strings.ToLower(replayed.Meta.Title), query) {
			results = append(results, SearchResult{ID: id, Title: replayed.Meta.Title, ModifiedAt: mtime, Snippet: replayed.Meta.Title})
			continue
		}
		if snippet, ok := findSnippet(replayed, query); ok {
			results = append(results, SearchResult{ID: id, Title: replayed.Meta.Title, ModifiedAt: mtime, Snippet: snippet})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ModifiedAt.After(results[j].ModifiedAt)
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// findSnippet looks for query as a case-insensitive substring across every
// event's text-bearing fields and returns the first match plus a short
// surrounding snippet.
func findSnippet(r *Replayed, query string) (string, bool) {
	for _, e := range r.Events {
		for _, text := range []string{e.Text, e.Summary, e.InputJSON, e.OutputEnvelope} {
			if text == "" {
				continue
			}
			lower := strings.ToLower(text)
			idx := strings.Index(lower, query)
			if idx < 0 {
				continue
			}
			start := idx - 20
			if start < 0 {
				start = 0
			}
			end := idx + len(query) + 20
			if end > len(text) {
				end = len(text)
			}
			return text[start:end], true
		}
	}
	return "", false
}

// List returns every thread id found in the threads directory, newest-first
// by file modification time — a convenience built on the same directory
// scan Search uses, for callers (e.g. the CLI `threads list` subcommand)
// that don't need query/date filtering.
func List(cfg Config) ([]SearchResult, error) {
	return Search(cfg, SearchOptions{})
}
