// Package config loads the on-disk TOML configuration that governs
// provider selection, the system prompt, tool timeouts, and the
// messenger-surface allowlists.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/zdx-sub/zdx/internal/thread"
)

// ThinkingLevel is the model's reasoning-effort dial.
type ThinkingLevel string

const (
	ThinkingOff     ThinkingLevel = "off"
	ThinkingMinimal ThinkingLevel = "minimal"
	ThinkingLow     ThinkingLevel = "low"
	ThinkingMedium  ThinkingLevel = "medium"
	ThinkingHigh    ThinkingLevel = "high"
	ThinkingXHigh   ThinkingLevel = "xhigh"
)

func (t ThinkingLevel) valid() bool {
	switch t {
	case ThinkingOff, ThinkingMinimal, ThinkingLow, ThinkingMedium, ThinkingHigh, ThinkingXHigh, "":
		return true
	default:
		return false
	}
}

// ProviderConfig gates visibility of one backend.
type ProviderConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the fully-resolved on-disk configuration.
type Config struct {
	Model            string                    `mapstructure:"model"`
	SystemPrompt     string                    `mapstructure:"system_prompt"`
	SystemPromptFile string                    `mapstructure:"system_prompt_file"`
	Providers        map[string]ProviderConfig `mapstructure:"providers"`
	ThinkingLevel    ThinkingLevel             `mapstructure:"thinking_level"`
	ToolTimeoutSecs  int                       `mapstructure:"tool_timeout_secs"`
	AllowlistUserIDs []int64                   `mapstructure:"allowlist_user_ids"`
	AllowlistChatIDs []int64                   `mapstructure:"allowlist_chat_ids"`
}

// ResolvedSystemPrompt returns the effective system prompt: the file wins
// over the inline string when the file is set and exists, per spec.
func (c *Config) ResolvedSystemPrompt() (string, error) {
	if c.SystemPromptFile != "" {
		data, err := os.ReadFile(c.SystemPromptFile)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("reading system_prompt_file: %w", err)
		}
	}
	return c.SystemPrompt, nil
}

// ProviderEnabled reports whether id is gated on (absent entries default
// to enabled, matching the teacher's "config only restricts" convention).
func (c *Config) ProviderEnabled(id string) bool {
	p, ok := c.Providers[id]
	if !ok {
		return true
	}
	return p.Enabled
}

// UserAllowed reports whether userID may use the messenger surface. An
// empty allowlist means unrestricted.
func (c *Config) UserAllowed(userID int64) bool {
	return allowed(c.AllowlistUserIDs, userID)
}

// ChatAllowed reports whether chatID may use the messenger surface. An
// empty allowlist means unrestricted.
func (c *Config) ChatAllowed(chatID int64) bool {
	return allowed(c.AllowlistChatIDs, chatID)
}

func allowed(list []int64, id int64) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// GetConfigPath returns the path of the TOML config file under the
// zdx config home (see thread.GetConfigHome; ZDX_HOME overrides it).
func GetConfigPath() (string, error) {
	home, err := thread.GetConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.toml"), nil
}

// Load reads <config_home>/config.toml, applying defaults for anything
// left unset. A missing file is not an error — every field simply takes
// its default.
func Load() (*Config, error) {
	home, err := thread.GetConfigHome()
	if err != nil {
		return nil, fmt.Errorf("resolving config home: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(home)

	v.SetDefault("model", "anthropic:claude-sonnet-4-5")
	v.SetDefault("thinking_level", string(ThinkingMedium))
	v.SetDefault("tool_timeout_secs", 120)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if !cfg.ThinkingLevel.valid() {
		return nil, fmt.Errorf("invalid thinking_level %q", cfg.ThinkingLevel)
	}
	if cfg.ToolTimeoutSecs < 0 {
		return nil, fmt.Errorf("tool_timeout_secs must be >= 0, got %d", cfg.ToolTimeoutSecs)
	}

	return &cfg, nil
}

// ParseProviderModel splits "provider:model" into its two parts. Model is
// empty when s carries no colon.
func ParseProviderModel(s string) (provider, model string) {
	parts := strings.SplitN(s, ":", 2)
	provider = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		model = strings.TrimSpace(parts[1])
	}
	return provider, model
}
