package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zdx-sub/zdx/internal/config"
	"github.com/zdx-sub/zdx/internal/serve"
	"github.com/zdx-sub/zdx/internal/tools"
)

var serveModelFlag string

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot, dispatching one conversation worker per chat",
	RunE:  runTelegram,
}

func init() {
	telegramCmd.Flags().StringVar(&serveModelFlag, "model", "", "provider:model override")
	rootCmd.AddCommand(telegramCmd)
}

func runTelegram(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, model, err := buildProvider(cfg, serveModelOverride(cfg))
	if err != nil {
		return err
	}
	reg, err := buildRegistry(tools.DefaultToolConfig())
	if err != nil {
		return err
	}

	rt := &serve.Runtime{Config: cfg, Provider: client, Model: model, Registry: reg}
	platform := &serve.TelegramPlatform{}
	return platform.Run(cmd.Context(), rt)
}

func serveModelOverride(cfg *config.Config) string {
	if serveModelFlag != "" {
		return serveModelFlag
	}
	return cfg.Model
}
