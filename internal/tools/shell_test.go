package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gobwas/glob"
	"github.com/stretchr/testify/require"
)

func TestShellTool_RunsCommandAndReportsExitCode(t *testing.T) {
	tool := NewShellTool(DefaultOutputLimits(), nil, t.TempDir())
	out := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo hello"}`))
	require.True(t, out.OK)

	var res shellResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.Contains(t, res.Stdout, "hello")
	require.Equal(t, 0, res.ExitCode)
}

func TestShellTool_NonZeroExitCode(t *testing.T) {
	tool := NewShellTool(DefaultOutputLimits(), nil, t.TempDir())
	out := tool.Execute(context.Background(), json.RawMessage(`{"command":"exit 42"}`))
	require.True(t, out.OK)

	var res shellResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.Equal(t, 42, res.ExitCode)
}

func TestShellTool_EmptyCommandIsInvalidInput(t *testing.T) {
	tool := NewShellTool(DefaultOutputLimits(), nil, t.TempDir())
	out := tool.Execute(context.Background(), json.RawMessage(`{"command":""}`))
	require.False(t, out.OK)
	require.Equal(t, ErrInvalidInput, out.Error.Code)
}

func TestShellTool_TimeoutReportsTimedOutEnvelope(t *testing.T) {
	tool := NewShellTool(DefaultOutputLimits(), nil, t.TempDir())
	out := tool.Execute(context.Background(), json.RawMessage(`{"command":"sleep 10","timeout_seconds":1}`))
	require.True(t, out.OK)
	require.True(t, out.TimedOut)

	var res shellResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.True(t, res.TimedOut)
}

func TestShellTool_OutputTruncationSpillsToTempFile(t *testing.T) {
	spillDir := t.TempDir()
	limits := OutputLimits{MaxBytes: 8}
	tool := NewShellTool(limits, nil, spillDir)

	out := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}`))
	require.True(t, out.OK)

	var res shellResult
	require.NoError(t, json.Unmarshal(out.Data, &res))
	require.True(t, res.StdoutTruncated)
	require.NotEmpty(t, res.StdoutSpillPath)
	require.Greater(t, res.StdoutTotalBytes, 8)
}

func TestShellTool_ShellAllowPolicyBlocksDisallowedCommand(t *testing.T) {
	allow, err := glob.Compile("echo *")
	require.NoError(t, err)
	tool := NewShellTool(DefaultOutputLimits(), []glob.Glob{allow}, t.TempDir())

	out := tool.Execute(context.Background(), json.RawMessage(`{"command":"rm -rf /tmp/x"}`))
	require.False(t, out.OK)
	require.Equal(t, ErrExecutionFailed, out.Error.Code)

	out = tool.Execute(context.Background(), json.RawMessage(`{"command":"echo ok"}`))
	require.True(t, out.OK)
}
