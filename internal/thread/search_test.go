package thread

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSearch_QueryMatchesTitleAndBody(t *testing.T) {
	cfg := testConfig(t)

	a, err := Open(cfg, "a")
	require.NoError(t, err)
	require.NoError(t, a.SetTitle("Refactor auth module"))

	b, err := Open(cfg, "b")
	require.NoError(t, err)
	require.NoError(t, b.SetTitle("Unrelated"))
	require.NoError(t, b.Append(Event{Type: EventUserMessage, Text: "please refactor the database layer"}))

	c, err := Open(cfg, "c")
	require.NoError(t, err)
	require.NoError(t, c.SetTitle("Nothing matching"))

	results, err := Search(cfg, SearchOptions{Query: "refactor"})
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	require.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestSearch_SortedNewestFirstAndCapped(t *testing.T) {
	cfg := testConfig(t)

	for _, id := range []string{"old", "mid", "new"} {
		log, err := Open(cfg, id)
		require.NoError(t, err)
		require.NoError(t, log.SetTitle(id))
	}
	// Force distinct mtimes.
	now := time.Now()
	require.NoError(t, touch(cfg, "old", now.Add(-2*time.Hour)))
	require.NoError(t, touch(cfg, "mid", now.Add(-1*time.Hour)))
	require.NoError(t, touch(cfg, "new", now))

	results, err := Search(cfg, SearchOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "new", results[0].ID)
	require.Equal(t, "mid", results[1].ID)
}

// touch sets a thread log's mtime for deterministic ordering tests.
func touch(cfg Config, id string, t time.Time) error {
	path, err := cfg.pathFor(id)
	if err != nil {
		return err
	}
	return os.Chtimes(path, t, t)
}
