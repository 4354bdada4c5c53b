package cmd

import (
	"fmt"
	"os"

	"github.com/zdx-sub/zdx/internal/config"
	"github.com/zdx-sub/zdx/internal/credentials"
	"github.com/zdx-sub/zdx/internal/provider"
	"github.com/zdx-sub/zdx/internal/thread"
	"github.com/zdx-sub/zdx/internal/tools"
)

// envVarForProvider maps a provider id to the conventional API-key
// environment variable, mirroring the teacher's per-provider env lookup.
func envVarForProvider(id string) string {
	switch id {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai", "chatgpt", "codex":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// buildProvider resolves "provider:model" (falling back to cfg.Model) into
// a ready-to-use provider.ProviderClient. Bedrock uses the AWS default
// credential chain instead of an env-var API key; every other backend
// reads its key from the conventional environment variable or, when that
// variable is unset and a loadable credential file exists under
// <config_home>/auth/ (such as one imported by `login`), from that file.
// The returned client retries stream initiation with DefaultRetryConfig.
func buildProvider(cfg *config.Config, providerModel string) (provider.ProviderClient, string, error) {
	id, model := config.ParseProviderModel(providerModel)
	if id == "" {
		return nil, "", fmt.Errorf("no provider configured (set \"model\" in config.toml or pass --model provider:model)")
	}
	if !cfg.ProviderEnabled(id) {
		return nil, "", fmt.Errorf("provider %q is disabled in config.toml", id)
	}

	var auth provider.AuthMode
	if id == "bedrock" {
		auth = provider.AuthMode{}
	} else {
		envVar := envVarForProvider(id)
		if envVar == "" {
			return nil, "", fmt.Errorf("unknown provider %q", id)
		}
		auth = provider.DefaultAuthForEnv(envVar)
		if os.Getenv(envVar) == "" {
			if home, err := thread.GetConfigHome(); err == nil {
				if _, err := credentials.NewOAuthStore(home, id, nil).Load(); err == nil {
					auth = provider.DefaultAuthForOAuth(home, id, nil)
				}
			}
		}
	}

	client, err := provider.New(provider.Config{ID: id, Model: model, Auth: auth})
	if err != nil {
		return nil, "", err
	}
	return provider.WrapWithRetry(client, provider.DefaultRetryConfig()), model, nil
}

// buildRegistry constructs the default tool registry rooted at cfg.WorkDir,
// registering every tool named in cfg.Enabled (or all tools when empty).
func buildRegistry(cfg tools.ToolConfig) (*tools.Registry, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid tool config: %v", errs)
	}

	root, err := tools.NewRoot(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolving tool work_dir: %w", err)
	}
	limits := tools.DefaultOutputLimits()
	allow, err := cfg.CompileShellAllow()
	if err != nil {
		return nil, err
	}

	candidates := map[string]tools.Tool{
		"read":        tools.NewReadTool(root, limits),
		"write":       tools.NewWriteTool(root),
		"edit":        tools.NewEditTool(root),
		"list":        tools.NewListTool(root),
		"glob":        tools.NewGlobTool(root),
		"grep":        tools.NewGrepTool(root, limits),
		"apply_patch": tools.NewApplyPatchTool(root),
		"bash":        tools.NewShellTool(limits, allow, cfg.WorkDir),
	}

	reg := tools.NewRegistry()
	names := cfg.Enabled
	if len(names) == 0 {
		names = tools.AllToolNames()
	}
	for _, name := range names {
		t, ok := candidates[name]
		if !ok {
			continue
		}
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("registering tool %q: %w", name, err)
		}
	}
	return reg, nil
}
