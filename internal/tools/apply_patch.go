package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/zdx-sub/zdx/internal/patch"
)

// ApplyPatchTool wraps internal/patch as a tool: parse a patch envelope,
// apply it against the workspace root.
type ApplyPatchTool struct {
	root *Root
}

// NewApplyPatchTool builds an ApplyPatchTool rooted at root.
func NewApplyPatchTool(root *Root) *ApplyPatchTool {
	return &ApplyPatchTool{root: root}
}

func (t *ApplyPatchTool) Name() string { return ApplyPatchToolName }
func (t *ApplyPatchTool) Description() string {
	return "Apply a *** Begin Patch/*** End Patch envelope describing file adds, deletes, updates, and moves."
}

func (t *ApplyPatchTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"patch": map[string]any{"type": "string", "description": "The full *** Begin Patch ... *** End Patch text"},
		},
		"required":             []string{"patch"},
		"additionalProperties": false,
	}
}

type applyPatchArgs struct {
	Patch string `json:"patch"`
}

type applyPatchResult struct {
	Files []patch.Result `json:"files"`
}

func (t *ApplyPatchTool) Execute(ctx context.Context, input json.RawMessage) Output {
	var a applyPatchArgs
	if err := json.Unmarshal(input, &a); err != nil {
		return Fail(ErrInvalidInput, err.Error())
	}
	if strings.TrimSpace(a.Patch) == "" {
		return Fail(ErrInvalidInput, "patch must not be empty")
	}

	parsed, err := patch.Parse(a.Patch)
	if err != nil {
		return Fail(ErrInvalidInput, err.Error())
	}

	results, err := patch.Apply(t.root.Dir(), parsed)
	if err != nil {
		return patchErrOutput(err)
	}

	return Success(applyPatchResult{Files: results})
}

func patchErrOutput(err error) Output {
	if pe, ok := err.(*patch.Error); ok {
		switch pe.Kind {
		case patch.ErrFileNotFound:
			return Fail(ErrFileNotFound, pe.Error())
		case patch.ErrFileExists:
			return Fail(ErrFileExists, pe.Error())
		case patch.ErrPatternNotFound:
			return Fail(ErrPatternNotFound, pe.Error())
		case patch.ErrInvalidPatch:
			return Fail(ErrInvalidInput, pe.Error())
		default:
			return Fail(ErrExecutionFailed, pe.Error())
		}
	}
	return Fail(ErrExecutionFailed, err.Error())
}
