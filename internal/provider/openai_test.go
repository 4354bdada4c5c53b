package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenToInput_JoinsTextAndToolResultParts(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Parts: []Part{{Kind: PartText, Text: "hello"}}},
		{Role: RoleAssistant, Parts: []Part{{Kind: PartToolResult, ToolResultText: "42"}}},
	}
	out := flattenToInput(messages)
	require.Contains(t, out, "hello")
	require.Contains(t, out, "42")
}

func TestFlattenToInput_EmptyForNoUsableParts(t *testing.T) {
	messages := []Message{{Role: RoleUser, Parts: []Part{{Kind: PartThinking, Text: "ignored"}}}}
	require.Empty(t, flattenToInput(messages))
}

func TestClassifyOpenAIError_MapsKnownPatterns(t *testing.T) {
	require.Equal(t, ErrAuth, classifyOpenAIError("401 unauthorized").Kind)
	require.Equal(t, ErrOverloaded, classifyOpenAIError("503 service unavailable").Kind)
	require.Equal(t, ErrTimeout, classifyOpenAIError("request timeout").Kind)
	require.Equal(t, ErrNetwork, classifyOpenAIError("no such host").Kind)
	require.Equal(t, ErrHTTPStatus, classifyOpenAIError("400 bad request").Kind)
}
