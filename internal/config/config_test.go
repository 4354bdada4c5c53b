package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProviderModel(t *testing.T) {
	provider, model := ParseProviderModel("anthropic:claude-sonnet-4-5")
	require.Equal(t, "anthropic", provider)
	require.Equal(t, "claude-sonnet-4-5", model)

	provider, model = ParseProviderModel("openai")
	require.Equal(t, "openai", provider)
	require.Empty(t, model)
}

func TestProviderEnabledDefaultsTrueWhenUnconfigured(t *testing.T) {
	cfg := &Config{Providers: map[string]ProviderConfig{
		"openai": {Enabled: false},
	}}
	require.True(t, cfg.ProviderEnabled("anthropic"))
	require.False(t, cfg.ProviderEnabled("openai"))
}

func TestAllowlistsEmptyMeansUnrestricted(t *testing.T) {
	cfg := &Config{}
	require.True(t, cfg.UserAllowed(12345))
	require.True(t, cfg.ChatAllowed(-999))

	cfg.AllowlistUserIDs = []int64{1, 2, 3}
	require.True(t, cfg.UserAllowed(2))
	require.False(t, cfg.UserAllowed(4))
}

func TestResolvedSystemPromptFileWinsWhenPresent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o644))

	cfg := &Config{SystemPrompt: "inline", SystemPromptFile: path}
	got, err := cfg.ResolvedSystemPrompt()
	require.NoError(t, err)
	require.Equal(t, "from file", got)
}

func TestResolvedSystemPromptFallsBackWhenFileMissing(t *testing.T) {
	cfg := &Config{SystemPrompt: "inline", SystemPromptFile: filepath.Join(t.TempDir(), "missing.txt")}
	got, err := cfg.ResolvedSystemPrompt()
	require.NoError(t, err)
	require.Equal(t, "inline", got)
}

func TestLoadAppliesDefaultsWhenConfigFileAbsent(t *testing.T) {
	t.Setenv("ZDX_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "anthropic:claude-sonnet-4-5", cfg.Model)
	require.Equal(t, ThinkingMedium, cfg.ThinkingLevel)
	require.Equal(t, 120, cfg.ToolTimeoutSecs)
	require.NotNil(t, cfg.Providers)
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ZDX_HOME", home)

	contents := `
model = "openai:gpt-5.2"
thinking_level = "high"
tool_timeout_secs = 30
allowlist_user_ids = [111, 222]

[providers.gemini]
enabled = false
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte(contents), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openai:gpt-5.2", cfg.Model)
	require.Equal(t, ThinkingHigh, cfg.ThinkingLevel)
	require.Equal(t, 30, cfg.ToolTimeoutSecs)
	require.Equal(t, []int64{111, 222}, cfg.AllowlistUserIDs)
	require.False(t, cfg.ProviderEnabled("gemini"))
	require.True(t, cfg.ProviderEnabled("anthropic"))
}

func TestLoadRejectsInvalidThinkingLevel(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ZDX_HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.toml"), []byte(`thinking_level = "ultra"`), 0o644))

	_, err := Load()
	require.Error(t, err)
}

func TestGetConfigPathRespectsZDXHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ZDX_HOME", home)

	path, err := GetConfigPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "config.toml"), path)
}
