package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/gobwas/glob"
)

const defaultShellTimeout = 30 * time.Second
const maxShellTimeout = 300 * time.Second

// ShellTool implements the bash tool: a non-interactive shell command
// runner with output truncation and full-stream spillover to a temp file.
type ShellTool struct {
	shellPath  string
	limits     OutputLimits
	allowGlobs []glob.Glob
	spillDir   string
}

// NewShellTool builds a ShellTool. allow, when non-empty, restricts commands
// to those matching at least one compiled shell_allow pattern.
func NewShellTool(limits OutputLimits, allow []glob.Glob, spillDir string) *ShellTool {
	return &ShellTool{
		shellPath:  detectShell(),
		limits:     limits,
		allowGlobs: allow,
		spillDir:   spillDir,
	}
}

func (t *ShellTool) Name() string { return ShellToolName }
func (t *ShellTool) Description() string {
	return "Execute a non-interactive shell command. Returns stdout, stderr, and exit code."
}

func (t *ShellTool) DefaultTimeout() time.Duration { return defaultShellTimeout }

func (t *ShellTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":         map[string]any{"type": "string", "description": "Shell command to execute"},
			"working_dir":     map[string]any{"type": "string", "description": "Working directory (default: current directory)"},
			"timeout_seconds": map[string]any{"type": "integer", "description": "Command timeout in seconds (default 30, max 300)"},
			"env": map[string]any{
				"type":                 "object",
				"description":          "Environment variables to set for the command",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"command"},
		"additionalProperties": false,
	}
}

type shellArgs struct {
	Command        string            `json:"command"`
	WorkingDir     string            `json:"working_dir,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
}

type shellResult struct {
	Stdout            string `json:"stdout"`
	Stderr            string `json:"stderr"`
	ExitCode          int    `json:"exit_code"`
	TimedOut          bool   `json:"timed_out"`
	StdoutTruncated   bool   `json:"stdout_truncated,omitempty"`
	StderrTruncated   bool   `json:"stderr_truncated,omitempty"`
	StdoutTotalBytes  int    `json:"stdout_total_bytes"`
	StderrTotalBytes  int    `json:"stderr_total_bytes"`
	StdoutSpillPath   string `json:"stdout_spill_path,omitempty"`
	StderrSpillPath   string `json:"stderr_spill_path,omitempty"`
}

func (t *ShellTool) Execute(ctx context.Context, input json.RawMessage) Output {
	var a shellArgs
	if err := json.Unmarshal(input, &a); err != nil {
		return Fail(ErrInvalidInput, err.Error())
	}
	if strings.TrimSpace(a.Command) == "" {
		return Fail(ErrInvalidInput, "command must not be empty")
	}
	if len(t.allowGlobs) > 0 && !t.commandAllowed(a.Command) {
		return Failf(ErrExecutionFailed, "command not allowed by shell_allow policy: %s", truncateCommand(a.Command))
	}

	workDir := a.WorkingDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Failf(ErrExecutionFailed, "cannot get working directory: %v", err)
		}
		workDir = wd
	}

	timeout := defaultShellTimeout
	if a.TimeoutSeconds > 0 {
		timeout = time.Duration(a.TimeoutSeconds) * time.Second
	}
	if timeout > maxShellTimeout {
		timeout = maxShellTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.shellPath, "-c", a.Command)
	cmd.Dir = workDir
	cmd.Env = mergeEnv(os.Environ(), a.Env)
	cmd.Env = append(cmd.Env, "TERM=dumb", "NO_COLOR=1")

	devNull, openErr := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if openErr == nil {
		cmd.Stdin = devNull
		defer devNull.Close()
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := shellResult{ExitCode: 0}
	result.StdoutTotalBytes = stdout.Len()
	result.StderrTotalBytes = stderr.Len()

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return Failf(ErrExecutionFailed, "command error: %v", err)
		}
	}

	result.Stdout, result.StdoutTruncated, result.StdoutSpillPath = t.truncate(stdout.Bytes(), "stdout")
	result.Stderr, result.StderrTruncated, result.StderrSpillPath = t.truncate(stderr.Bytes(), "stderr")

	if result.TimedOut {
		return TimedOutSuccess(result)
	}
	return Success(result)
}

// truncate trims b to the configured byte budget at a UTF-8 boundary,
// spilling the full stream to a unique temp file whenever truncation
// occurs so the caller can still retrieve it out of band.
func (t *ShellTool) truncate(b []byte, label string) (string, bool, string) {
	limit := int(t.limits.MaxBytes)
	if len(b) <= limit {
		return string(b), false, ""
	}
	spillPath := ""
	if f, err := os.CreateTemp(t.spillDir, "shell-"+label+"-*.log"); err == nil {
		if _, werr := f.Write(b); werr == nil {
			spillPath = f.Name()
		}
		f.Close()
	}
	cut := utf8Boundary(b, limit)
	return string(b[:cut]), true, spillPath
}

func (t *ShellTool) commandAllowed(command string) bool {
	for _, g := range t.allowGlobs {
		if g.Match(command) {
			return true
		}
	}
	return false
}

func mergeEnv(base []string, overrides map[string]string) []string {
	shadowed := make(map[string]struct{}, len(overrides))
	for k := range overrides {
		shadowed[k] = struct{}{}
	}
	env := make([]string, 0, len(base)+len(overrides))
	for _, e := range base {
		if k, _, ok := strings.Cut(e, "="); ok {
			if _, skip := shadowed[k]; skip {
				continue
			}
		}
		env = append(env, e)
	}
	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

func detectShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "bash"
}

func truncateCommand(cmd string) string {
	if len(cmd) > 50 {
		return cmd[:47] + "..."
	}
	return cmd
}
