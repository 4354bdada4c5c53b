package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEditTool_ReplacesUniqueMatch(t *testing.T) {
	root := newTestRoot(t)
	path := filepath.Join(root.Dir(), "a.go")
	require.NoError(t, os.WriteFile(path, []byte("func a() {}\nfunc b() {}\n"), 0o644))

	tool := NewEditTool(root)
	args, err := json.Marshal(editArgs{Path: "a.go", OldText: "func a() {}", NewText: "func a() { return }"})
	require.NoError(t, err)
	out := tool.Execute(context.Background(), args)
	require.True(t, out.OK)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "func a() { return }\nfunc b() {}\n", string(data))
}

func TestEditTool_ElidedMarkerMatchesSpan(t *testing.T) {
	root := newTestRoot(t)
	path := filepath.Join(root.Dir(), "a.go")
	require.NoError(t, os.WriteFile(path, []byte("start\nmiddle one\nmiddle two\nend\n"), 0o644))

	tool := NewEditTool(root)
	args, err := json.Marshal(editArgs{Path: "a.go", OldText: "start<<<elided>>>end", NewText: "replaced"})
	require.NoError(t, err)
	out := tool.Execute(context.Background(), args)
	require.True(t, out.OK)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "replaced\n", string(data))
}

func TestEditTool_AmbiguousMatchIsPatternNotFound(t *testing.T) {
	root := newTestRoot(t)
	path := filepath.Join(root.Dir(), "a.go")
	require.NoError(t, os.WriteFile(path, []byte("dup\ndup\n"), 0o644))

	tool := NewEditTool(root)
	args, err := json.Marshal(editArgs{Path: "a.go", OldText: "dup", NewText: "x"})
	require.NoError(t, err)
	out := tool.Execute(context.Background(), args)
	require.False(t, out.OK)
	require.Equal(t, ErrPatternNotFound, out.Error.Code)
}

func TestEditTool_MissingTextIsPatternNotFound(t *testing.T) {
	root := newTestRoot(t)
	path := filepath.Join(root.Dir(), "a.go")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	tool := NewEditTool(root)
	args, err := json.Marshal(editArgs{Path: "a.go", OldText: "absent", NewText: "x"})
	require.NoError(t, err)
	out := tool.Execute(context.Background(), args)
	require.False(t, out.OK)
	require.Equal(t, ErrPatternNotFound, out.Error.Code)
}
