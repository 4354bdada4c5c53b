package tools

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gobwas/glob"
)

// ToolConfig holds configuration for the local tool registry.
type ToolConfig struct {
	Enabled    []string `mapstructure:"enabled"`     // tool names to register; empty means all
	WorkDir    string   `mapstructure:"work_dir"`    // workspace root for filesystem/shell tools
	ShellAllow []string `mapstructure:"shell_allow"` // glob patterns; empty means no restriction
}

// DefaultToolConfig returns sensible defaults for tool configuration.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		Enabled:    AllToolNames(),
		WorkDir:    ".",
		ShellAllow: []string{},
	}
}

// Validate checks the configuration for errors.
func (c *ToolConfig) Validate() []error {
	var errs []error
	for _, name := range c.Enabled {
		if !ValidToolName(name) {
			errs = append(errs, fmt.Errorf("unknown tool: %s", name))
		}
	}
	for _, pattern := range c.ShellAllow {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid shell pattern %q: %w", pattern, err))
		}
	}
	if _, err := os.Stat(c.WorkDir); os.IsNotExist(err) {
		slog.Warn("tools work_dir does not exist", "dir", c.WorkDir)
	}
	return errs
}

// IsToolEnabled reports whether a tool name is in the enabled set; an
// empty set enables every core tool.
func (c *ToolConfig) IsToolEnabled(name string) bool {
	if len(c.Enabled) == 0 {
		return ValidToolName(name)
	}
	for _, n := range c.Enabled {
		if n == name {
			return true
		}
	}
	return false
}

var validToolNames = func() map[string]bool {
	m := make(map[string]bool)
	for _, n := range AllToolNames() {
		m[n] = true
	}
	return m
}()

// ValidToolName reports whether name is one of the registry's core tools.
func ValidToolName(name string) bool {
	return validToolNames[name]
}

// OutputLimits bounds how much a tool writes into its envelope data before
// truncating (with a spillover file for the shell tool).
type OutputLimits struct {
	MaxLines   int   // max lines for read (default 2000)
	MaxBytes   int64 // max bytes per tool output field (default 40KiB)
	MaxResults int   // max results for grep/glob (default 100/200)
}

// DefaultOutputLimits returns the default output limits.
func DefaultOutputLimits() OutputLimits {
	return OutputLimits{
		MaxLines:   2000,
		MaxBytes:   40 * 1024,
		MaxResults: 100,
	}
}

// CompileShellAllow compiles ShellAllow into matchers used by the shell
// tool's pattern check.
func (c *ToolConfig) CompileShellAllow() ([]glob.Glob, error) {
	if len(c.ShellAllow) == 0 {
		return nil, nil
	}
	globs := make([]glob.Glob, 0, len(c.ShellAllow))
	for _, pattern := range c.ShellAllow {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("shell_allow pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}
