// Package cmd implements zdx's command-line surface: the set of entry
// points spec.md places "out of scope for detail" — this file and its
// siblings are deliberately thin callers into internal/thread,
// internal/provider, internal/agent, internal/queue, internal/tools and
// internal/serve.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zdx",
	Short: "Multi-provider agentic terminal assistant",
	Long: `zdx drives multi-provider LLM conversations with tool execution,
event-sourced thread persistence, and per-conversation concurrency control
across a terminal chat, a one-shot exec mode, and a messenger bot.`,
	SilenceUsage: true,
}

// Execute runs the root command, exiting the process with a non-zero
// status on unrecoverable error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
