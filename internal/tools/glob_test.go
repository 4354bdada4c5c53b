package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobTool_MatchesRecursivePattern(t *testing.T) {
	root := newTestRoot(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root.Dir(), "pkg", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root.Dir(), "pkg", "sub", "a.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root.Dir(), "pkg", "b.txt"), []byte("x"), 0o644))

	tool := NewGlobTool(root)
	out := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"**/*.go"}`))
	require.True(t, out.OK)

	var res globResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.Len(t, res.Entries, 1)
	require.Equal(t, filepath.Join("pkg", "sub", "a.go"), res.Entries[0].Path)
}

func TestGlobTool_EmptyPatternIsInvalidInput(t *testing.T) {
	root := newTestRoot(t)
	tool := NewGlobTool(root)
	out := tool.Execute(context.Background(), json.RawMessage(`{"pattern":""}`))
	require.False(t, out.OK)
	require.Equal(t, ErrInvalidInput, out.Error.Code)
}
