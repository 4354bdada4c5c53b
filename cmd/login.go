package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zdx-sub/zdx/internal/credentials"
	"github.com/zdx-sub/zdx/internal/thread"
)

var loginCmd = &cobra.Command{
	Use:   "login <provider>",
	Short: "Report how a provider resolves credentials (env var or OS-level store)",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <provider>",
	Short: "Clear cached OAuth credentials for a provider, if any were persisted",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

// runLogin does not perform an OAuth exchange; providers in this build
// authenticate via the conventional API-key environment variable (see
// buildProvider), or, for anthropic/codex/gemini, by importing whatever
// credentials the corresponding desktop CLI has already cached on disk
// into this tool's own OAuthStore (see credentials.ImportFromSiblingCLI),
// so subsequent turns load from <config_home>/auth/ like any other
// provider instead of re-reading the sibling tool's file each time.
func runLogin(cmd *cobra.Command, args []string) error {
	id := args[0]

	if envVar := envVarForProvider(id); envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			fmt.Printf("%s: using %s from the environment\n", id, envVar)
			return nil
		}
	}

	switch id {
	case "anthropic", "codex", "openai", "chatgpt", "gemini":
		home, err := thread.GetConfigHome()
		if err != nil {
			return err
		}
		if _, err := credentials.ImportFromSiblingCLI(home, id); err == nil {
			fmt.Printf("%s: imported cached credentials from the sibling CLI\n", id)
			return nil
		}
	}

	envVar := envVarForProvider(id)
	if envVar == "" {
		return fmt.Errorf("unknown provider %q", id)
	}
	return fmt.Errorf("%s: no credentials found; set %s in the environment", id, envVar)
}

func runLogout(cmd *cobra.Command, args []string) error {
	id := args[0]
	home, err := thread.GetConfigHome()
	if err != nil {
		return err
	}
	store := credentials.NewOAuthStore(home, id, nil)
	if err := store.Clear(); err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	fmt.Printf("%s: cleared cached OAuth credentials (if any)\n", id)
	return nil
}
