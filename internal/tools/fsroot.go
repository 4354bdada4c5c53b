package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Root resolves filesystem-tool paths against a fixed workspace directory,
// refusing anything that escapes it either syntactically (".." components)
// or via a symlink that resolves outside the boundary.
type Root struct {
	dir string
}

// NewRoot resolves dir to an absolute, symlink-free path and returns a Root
// rooted there.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Root{dir: resolved}, nil
}

// Dir returns the resolved root directory.
func (r *Root) Dir() string {
	return r.dir
}

// Resolve joins rel onto the root and verifies the result stays within it.
// It does not require the target to exist: non-existent path segments are
// checked by walking symlinks on the longest existing prefix, then
// re-verifying the full requested path starts with the root once joined.
func (r *Root) Resolve(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", &Error{Code: ErrInvalidInput, Msg: "path must not be empty"}
	}
	joined := filepath.Join(r.dir, rel)
	if !withinDir(r.dir, joined) {
		return "", &Error{Code: ErrPathNotInWorkspace, Msg: fmt.Sprintf("%s escapes the workspace root", rel)}
	}

	existing := joined
	var missingSuffix []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		missingSuffix = append([]string{filepath.Base(existing)}, missingSuffix...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", &Error{Code: ErrPathNotInWorkspace, Msg: fmt.Sprintf("cannot resolve %s: %v", rel, err)}
	}
	full := filepath.Join(append([]string{resolved}, missingSuffix...)...)
	if !withinDir(r.dir, full) {
		return "", &Error{Code: ErrSymlinkEscape, Msg: fmt.Sprintf("%s resolves outside the workspace root via a symlink", rel)}
	}
	return full, nil
}

// withinDir reports whether target is dir itself or a descendant of it.
func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Error is the package's own error type, mirroring the envelope's
// ErrorCode so tool implementations can build one from a lower-level
// failure without duplicating message formatting.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// AsOutput converts err into a Failure envelope, recognizing *Error and
// falling back to ErrExecutionFailed for anything else.
func AsOutput(err error) Output {
	if e, ok := err.(*Error); ok {
		return Fail(e.Code, e.Msg)
	}
	return Fail(ErrExecutionFailed, err.Error())
}
