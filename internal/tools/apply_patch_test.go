package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyPatchTool_AddsFile(t *testing.T) {
	root := newTestRoot(t)
	tool := NewApplyPatchTool(root)

	patchText := "*** Begin Patch\n" +
		"*** Add File: a.txt\n" +
		"+line one\n" +
		"+line two\n" +
		"*** End Patch\n"
	args, err := json.Marshal(applyPatchArgs{Patch: patchText})
	require.NoError(t, err)

	out := tool.Execute(context.Background(), args)
	require.True(t, out.OK)

	data, err := os.ReadFile(filepath.Join(root.Dir(), "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "line one\nline two\n", string(data))
}

func TestApplyPatchTool_UpdateMissingFileIsFileNotFound(t *testing.T) {
	root := newTestRoot(t)
	tool := NewApplyPatchTool(root)

	patchText := "*** Begin Patch\n" +
		"*** Update File: missing.txt\n" +
		"@@\n" +
		" line one\n" +
		"*** End Patch\n"
	args, err := json.Marshal(applyPatchArgs{Patch: patchText})
	require.NoError(t, err)

	out := tool.Execute(context.Background(), args)
	require.False(t, out.OK)
	require.Equal(t, ErrFileNotFound, out.Error.Code)
}

func TestApplyPatchTool_EmptyPatchIsInvalidInput(t *testing.T) {
	root := newTestRoot(t)
	tool := NewApplyPatchTool(root)
	out := tool.Execute(context.Background(), json.RawMessage(`{"patch":""}`))
	require.False(t, out.OK)
	require.Equal(t, ErrInvalidInput, out.Error.Code)
}
