package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrepTool_FindsMatchWithContext(t *testing.T) {
	root := newTestRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root.Dir(), "a.txt"), []byte("alpha\nneedle here\nomega\n"), 0o644))

	tool := NewGrepTool(root, DefaultOutputLimits())
	out := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"needle"}`))
	require.True(t, out.OK)

	var res grepResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.Len(t, res.Matches, 1)
	require.Equal(t, 2, res.Matches[0].LineNumber)
}

func TestGrepTool_InvalidRegexIsInvalidInput(t *testing.T) {
	root := newTestRoot(t)
	tool := NewGrepTool(root, DefaultOutputLimits())
	out := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"("}`))
	require.False(t, out.OK)
	require.Equal(t, ErrInvalidInput, out.Error.Code)
}
