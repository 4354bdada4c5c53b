package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Tool is the contract every registry entry implements: a name, a
// human-readable description, a JSON Schema describing its input, and an
// execution function returning the uniform envelope. Execute has no error
// return: failures (bad input, missing file, ...) are reported as Fail()
// envelopes.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input json.RawMessage) Output
}

// TimeoutTool is implemented by tools that support a caller-specified
// execution deadline distinct from ctx's own cancellation (e.g. shell
// commands). Tools that don't implement it still honor ctx cancellation.
type TimeoutTool interface {
	Tool
	DefaultTimeout() time.Duration
}

// Registry holds the set of tools available to an agent turn, performing
// centralized schema validation before every dispatch.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its input schema immediately so a
// malformed schema fails at startup rather than at first invocation.
func (r *Registry) Register(t Tool) error {
	schema, err := compileSchema(t.Name(), t.InputSchema())
	if err != nil {
		return fmt.Errorf("register tool %s: %w", t.Name(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
	r.schemas[t.Name()] = schema
	return nil
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytesReader(raw))
	if err != nil {
		return nil, err
	}
	url := "mem://tools/" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	return names
}

// Spec is the {name, description, input_schema} triple a provider client
// sends upstream as the tool manifest.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Specs returns the manifest for every registered tool.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, Spec{Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	return specs
}

// Invoke validates input against the named tool's schema, then dispatches
// with cancellation/timeout discipline: a caller-supplied timeout (<=0
// means none, falling back to the tool's own default if it has one) races
// ctx's own cancellation, and expiry converts to a TimedOutSuccess envelope
// rather than an error.
func (r *Registry) Invoke(ctx context.Context, name string, input json.RawMessage, timeout time.Duration) Output {
	r.mu.RLock()
	t, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return Failf(ErrInvalidInput, "unknown tool %q", name)
	}

	if err := validateInput(schema, input); err != nil {
		return Fail(ErrInvalidInput, err.Error())
	}

	if timeout <= 0 {
		if tt, ok := t.(TimeoutTool); ok {
			timeout = tt.DefaultTimeout()
		}
	}

	if timeout <= 0 {
		return t.Execute(ctx, input)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct{ out Output }
	done := make(chan result, 1)
	go func() {
		done <- result{t.Execute(runCtx, input)}
	}()

	select {
	case res := <-done:
		return res.out
	case <-runCtx.Done():
		// Give the tool a short grace window to return a partial result
		// after cancellation before reporting a bare timeout.
		select {
		case res := <-done:
			res.out.TimedOut = true
			return res.out
		case <-time.After(2 * time.Second):
			return TimedOutSuccess(map[string]any{})
		}
	}
}

func validateInput(schema *jsonschema.Schema, input json.RawMessage) error {
	if len(input) == 0 {
		input = []byte("{}")
	}
	doc, err := jsonschema.UnmarshalJSON(bytesReader(input))
	if err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	if schema == nil {
		return nil
	}
	return schema.Validate(doc)
}
