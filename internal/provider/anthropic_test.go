package provider

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildAnthropicMessages_SkipsSystemRoleAndEmptyTurns(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Parts: []Part{{Kind: PartText, Text: "you are a helper"}}},
		{Role: RoleUser, Parts: []Part{{Kind: PartText, Text: "hello"}}},
		{Role: RoleAssistant, Parts: []Part{{Kind: PartText, Text: "hi there"}}},
	}

	out, err := buildAnthropicMessages(messages)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestAnthropicBlocks_ToolUseOnlyAllowedOnAssistantTurn(t *testing.T) {
	parts := []Part{
		{Kind: PartToolUse, ToolCallID: "call-1", ToolName: "read", ToolArgsJSON: json.RawMessage(`{"path":"a.go"}`)},
	}

	blocks, err := anthropicBlocks(parts, false)
	require.NoError(t, err)
	require.Empty(t, blocks)

	blocks, err = anthropicBlocks(parts, true)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
}

func TestAnthropicBlocks_ToolResultAlwaysIncluded(t *testing.T) {
	parts := []Part{
		{Kind: PartToolResult, ToolResultForID: "call-1", ToolResultText: "ok", ToolResultError: false},
	}

	blocks, err := anthropicBlocks(parts, false)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
}

func TestBuildAnthropicTools_CarriesNameDescriptionAndRequired(t *testing.T) {
	specs := []ToolSpec{
		{
			Name:        "read",
			Description: "read a file",
			InputSchema: map[string]any{
				"properties": map[string]any{"path": map[string]any{"type": "string"}},
				"required":   []any{"path"},
			},
		},
	}

	tools := buildAnthropicTools(specs)
	require.Len(t, tools, 1)
	require.Equal(t, "read", tools[0].OfTool.Name)
	require.Equal(t, "read a file", tools[0].OfTool.Description.Value)
	require.Equal(t, []string{"path"}, tools[0].OfTool.InputSchema.Required)
}

func TestBuildAnthropicTools_EmptyForNoSpecs(t *testing.T) {
	require.Nil(t, buildAnthropicTools(nil))
}

func TestSchemaRequired_HandlesStringAndAnySlices(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, schemaRequired(map[string]any{"required": []string{"a", "b"}}))
	require.Equal(t, []string{"a", "b"}, schemaRequired(map[string]any{"required": []any{"a", "b"}}))
	require.Nil(t, schemaRequired(map[string]any{}))
	require.Nil(t, schemaRequired(map[string]any{"required": 5}))
}

func TestClassifyAnthropicError_MapsKnownPatterns(t *testing.T) {
	cases := []struct {
		msg  string
		kind ErrorKind
	}{
		{"401 unauthorized", ErrAuth},
		{"529 overloaded", ErrOverloaded},
		{"context deadline exceeded", ErrTimeout},
		{"dial tcp: no such host", ErrNetwork},
		{"400 bad request", ErrHTTPStatus},
		{"something unexpected", ErrHTTPStatus},
	}
	for _, c := range cases {
		got := classifyAnthropicError(errors.New(c.msg))
		require.Equal(t, c.kind, got.Kind, c.msg)
	}
}

func TestModelOrDefault(t *testing.T) {
	require.Equal(t, "requested-model", modelOrDefault("requested-model", "fallback"))
	require.Equal(t, "fallback", modelOrDefault("", "fallback"))
}
