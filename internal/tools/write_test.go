package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteTool_CreatesNewFile(t *testing.T) {
	root := newTestRoot(t)
	tool := NewWriteTool(root)

	out := tool.Execute(context.Background(), json.RawMessage(`{"path":"dir/a.txt","content":"hello\n"}`))
	require.True(t, out.OK)

	var res writeResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.True(t, res.Created)

	data, err := os.ReadFile(filepath.Join(root.Dir(), "dir", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
}

func TestWriteTool_OverwritesExistingFile(t *testing.T) {
	root := newTestRoot(t)
	path := filepath.Join(root.Dir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	tool := NewWriteTool(root)
	out := tool.Execute(context.Background(), json.RawMessage(`{"path":"a.txt","content":"new"}`))
	require.True(t, out.OK)

	var res writeResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.False(t, res.Created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}

func TestWriteTool_RejectsEscapingPath(t *testing.T) {
	root := newTestRoot(t)
	tool := NewWriteTool(root)
	out := tool.Execute(context.Background(), json.RawMessage(`{"path":"../a.txt","content":"x"}`))
	require.False(t, out.OK)
	require.Equal(t, ErrPathNotInWorkspace, out.Error.Code)
}
