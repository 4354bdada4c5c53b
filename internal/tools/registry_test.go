package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name   string
	schema map[string]any
	fn     func(ctx context.Context, input json.RawMessage) Output
}

func (f *fakeTool) Name() string                   { return f.name }
func (f *fakeTool) Description() string             { return "fake" }
func (f *fakeTool) InputSchema() map[string]any     { return f.schema }
func (f *fakeTool) Execute(ctx context.Context, input json.RawMessage) Output {
	return f.fn(ctx, input)
}

func requiredStringSchema(field string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			field: map[string]any{"type": "string"},
		},
		"required":             []string{field},
		"additionalProperties": false,
	}
}

func TestRegistry_RejectsInputFailingSchemaValidation(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{
		name:   "greet",
		schema: requiredStringSchema("name"),
		fn:     func(ctx context.Context, input json.RawMessage) Output { return Success(map[string]string{"ok": "yes"}) },
	}))

	out := r.Invoke(context.Background(), "greet", json.RawMessage(`{}`), 0)
	require.False(t, out.OK)
	require.Equal(t, ErrInvalidInput, out.Error.Code)
}

func TestRegistry_DispatchesValidInput(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{
		name:   "greet",
		schema: requiredStringSchema("name"),
		fn:     func(ctx context.Context, input json.RawMessage) Output { return Success(map[string]string{"greeted": "yes"}) },
	}))

	out := r.Invoke(context.Background(), "greet", json.RawMessage(`{"name":"ada"}`), 0)
	require.True(t, out.OK)
}

func TestRegistry_UnknownToolIsInvalidInput(t *testing.T) {
	r := NewRegistry()
	out := r.Invoke(context.Background(), "nope", json.RawMessage(`{}`), 0)
	require.False(t, out.OK)
	require.Equal(t, ErrInvalidInput, out.Error.Code)
}

func TestRegistry_TimeoutProducesTimedOutEnvelopeNotError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{
		name:   "slow",
		schema: map[string]any{"type": "object"},
		fn: func(ctx context.Context, input json.RawMessage) Output {
			<-ctx.Done()
			select {} // block past the grace window; registry forces a bare timeout
		},
	}))

	out := r.Invoke(context.Background(), "slow", json.RawMessage(`{}`), 50*time.Millisecond)
	require.True(t, out.OK)
	require.True(t, out.TimedOut)
}

func TestRegistry_SpecsExposeNameDescriptionSchema(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "greet", schema: requiredStringSchema("name")}))
	specs := r.Specs()
	require.Len(t, specs, 1)
	require.Equal(t, "greet", specs[0].Name)
	require.NotNil(t, specs[0].InputSchema)
}
