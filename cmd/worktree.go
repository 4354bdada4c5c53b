package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var worktreeCmd = &cobra.Command{
	Use:   "worktree",
	Short: "Git worktree helpers for agent sessions",
}

// worktreeEnsureCmd exists so the CLI surface is complete; git/worktree
// integration itself is not implemented by this build.
var worktreeEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Ensure a dedicated git worktree exists for the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("worktree integration is not implemented; run agent turns against the working tree directly")
	},
}

func init() {
	worktreeCmd.AddCommand(worktreeEnsureCmd)
	rootCmd.AddCommand(worktreeCmd)
}
