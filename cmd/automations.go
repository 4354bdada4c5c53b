package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zdx-sub/zdx/internal/agent"
	"github.com/zdx-sub/zdx/internal/automations"
	"github.com/zdx-sub/zdx/internal/config"
	"github.com/zdx-sub/zdx/internal/provider"
	"github.com/zdx-sub/zdx/internal/thread"
	"github.com/zdx-sub/zdx/internal/tools"
)

var automationsCmd = &cobra.Command{
	Use:   "automations",
	Short: "Manage scheduled agent prompts",
}

var automationsListCmd = &cobra.Command{
	Use:  "list",
	RunE: runAutomationsList,
}

var automationsValidateCmd = &cobra.Command{
	Use:  "validate <name>",
	Args: cobra.ExactArgs(1),
	RunE: runAutomationsValidate,
}

var automationsRunCmd = &cobra.Command{
	Use:  "run <name>",
	Args: cobra.ExactArgs(1),
	RunE: runAutomationsRun,
}

var automationsRunsCmd = &cobra.Command{
	Use:  "runs",
	RunE: runAutomationsRuns,
}

var automationsDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Continuously trigger automations on their schedules",
	RunE:  runAutomationsDaemon,
}

func init() {
	automationsCmd.AddCommand(automationsListCmd, automationsValidateCmd, automationsRunCmd, automationsRunsCmd, automationsDaemonCmd)
	rootCmd.AddCommand(automationsCmd)
}

func runAutomationsList(cmd *cobra.Command, args []string) error {
	home, err := thread.GetConfigHome()
	if err != nil {
		return err
	}
	defs, err := automations.List(home)
	if err != nil {
		return err
	}
	for _, d := range defs {
		fmt.Printf("%s\t%s\n", d.Name, d.Schedule)
	}
	return nil
}

func runAutomationsValidate(cmd *cobra.Command, args []string) error {
	home, err := thread.GetConfigHome()
	if err != nil {
		return err
	}
	def, err := automations.Load(home, args[0])
	if err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", args[0])
	return nil
}

func runAutomationsRun(cmd *cobra.Command, args []string) error {
	home, err := thread.GetConfigHome()
	if err != nil {
		return err
	}
	def, err := automations.Load(home, args[0])
	if err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	modelSel := def.Model
	if modelSel == "" {
		modelSel = cfg.Model
	}
	client, model, err := buildProvider(cfg, modelSel)
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

	threadID := fmt.Sprintf("automation-%s-%s", args[0], time.Now().UTC().Format("20060102T150405"))
	started := time.Now().UTC()

	events := agent.RunTurn(cmd.Context(), agent.Options{
		Provider:     client,
		Registry:     reg,
		Model:        model,
		SystemPrompt: systemPrompt,
		Messages:     []provider.Message{{Role: provider.RoleUser, Parts: []provider.Part{{Kind: provider.PartText, Text: def.Prompt}}}},
		ToolTimeout:  toolTimeout(cfg),
	})

	var runErr error
	if pErr := printAgentEvents(events); pErr != nil {
		runErr = pErr
	}

	finished := time.Now().UTC()
	rec := automations.RunRecord{
		Automation: args[0],
		Trigger:    "manual",
		ThreadID:   threadID,
		Attempt:    1,
		MaxAttempt: def.MaxAttempts,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: finished.Sub(started).Milliseconds(),
		OK:         runErr == nil,
		Schedule:   def.Schedule,
		Model:      model,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := automations.AppendRun(home, rec); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: failed to record automation run:", err)
	}
	return runErr
}

func runAutomationsRuns(cmd *cobra.Command, args []string) error {
	home, err := thread.GetConfigHome()
	if err != nil {
		return err
	}
	recs, err := automations.Runs(home)
	if err != nil {
		return err
	}
	for _, r := range recs {
		status := "ok"
		if !r.OK {
			status = "failed: " + r.Error
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", r.StartedAt.Format(time.RFC3339), r.Automation, r.Trigger, status)
	}
	return nil
}

// runAutomationsDaemon only validates that every automation is well-formed;
// cron-cadence triggering is not implemented by this build.
func runAutomationsDaemon(cmd *cobra.Command, args []string) error {
	home, err := thread.GetConfigHome()
	if err != nil {
		return err
	}
	defs, err := automations.List(home)
	if err != nil {
		return err
	}
	var bad []string
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", d.Name, err))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid automations: %s", strings.Join(bad, "; "))
	}
	return fmt.Errorf("automations daemon (cron-cadence triggering) is not implemented; use \"automations run <name>\" to trigger manually")
}
