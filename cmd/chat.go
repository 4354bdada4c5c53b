package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zdx-sub/zdx/internal/agent"
	"github.com/zdx-sub/zdx/internal/config"
	"github.com/zdx-sub/zdx/internal/markdown"
	"github.com/zdx-sub/zdx/internal/provider"
	"github.com/zdx-sub/zdx/internal/serve"
	"github.com/zdx-sub/zdx/internal/tools"
)

var (
	chatModelFlag    string
	chatThreadIDFlag string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal conversation (reads lines from stdin)",
	RunE:  runChat,
}

var execCmd = &cobra.Command{
	Use:   "exec [request]",
	Short: "Run one agent turn against a single request and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExec,
}

func init() {
	chatCmd.Flags().StringVar(&chatModelFlag, "model", "", "provider:model override")
	chatCmd.Flags().StringVar(&chatThreadIDFlag, "thread", "", "resume an existing thread id")
	execCmd.Flags().StringVar(&chatModelFlag, "model", "", "provider:model override")
	rootCmd.AddCommand(chatCmd, execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, model, err := buildProvider(cfg, modelOverride(cfg))
	if err != nil {
		return err
	}
	reg, err := buildRegistry(tools.DefaultToolConfig())
	if err != nil {
		return err
	}
	systemPrompt, err := cfg.ResolvedSystemPrompt()
	if err != nil {
		return err
	}

	events := agent.RunTurn(cmd.Context(), agent.Options{
		Provider:     client,
		Registry:     reg,
		Model:        model,
		SystemPrompt: systemPrompt,
		Messages:     []provider.Message{{Role: provider.RoleUser, Parts: []provider.Part{{Kind: provider.PartText, Text: strings.Join(args, " ")}}}},
		ToolTimeout:  toolTimeout(cfg),
	})
	return printAgentEvents(events)
}

func modelOverride(cfg *config.Config) string {
	if chatModelFlag != "" {
		return chatModelFlag
	}
	return cfg.Model
}

func toolTimeout(cfg *config.Config) time.Duration {
	if cfg.ToolTimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(cfg.ToolTimeoutSecs) * time.Second
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, model, err := buildProvider(cfg, modelOverride(cfg))
	if err != nil {
		return err
	}
	reg, err := buildRegistry(tools.DefaultToolConfig())
	if err != nil {
		return err
	}

	id := chatThreadIDFlag
	if id == "" {
		id = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	fmt.Fprintf(os.Stderr, "# thread %s\n", id)

	rt := &serve.Runtime{Config: cfg, Provider: client, Model: model, Registry: reg}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			return nil
		}

		events, err := rt.RunTurnForChat(cmd.Context(), id, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if err := printAgentEvents(events); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

// printAgentEvents renders a turn's event stream to stdout. Tool activity
// goes to stderr as it happens; the final message is rendered through
// component C once the turn completes, since a plain terminal has no
// in-place redraw to repaint a partial commit into.
func printAgentEvents(events <-chan agent.AgentEvent) error {
	theme := markdown.DefaultTheme()

	for ev := range events {
		switch ev.Kind {
		case agent.KindToolStarted:
			fmt.Fprintf(os.Stderr, "\n[tool] %s...\n", ev.ToolStarted.Name)
		case agent.KindToolFinished:
			status := "ok"
			if !ev.ToolFinished.OK {
				status = "failed"
			}
			fmt.Fprintf(os.Stderr, "[tool] %s %s\n", ev.ToolFinished.Name, status)
		case agent.KindTurnCompleted:
			for _, l := range markdown.RenderANSI(markdown.Render(ev.Completed.FinalText, 100), theme) {
				fmt.Println(l)
			}
		case agent.KindInterrupted:
			fmt.Fprintln(os.Stderr, "\n[cancelled]")
		case agent.KindError:
			return fmt.Errorf("%s", ev.Err.Message)
		}
	}
	return nil
}
