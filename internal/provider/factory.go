package provider

import (
	"fmt"

	"github.com/zdx-sub/zdx/internal/credentials"
)

// Config describes one configured backend: its id ("anthropic", "openai",
// "gemini", "bedrock"), model, auth strategy and any provider-specific
// extras (region, reasoning effort). The agent turn loop never imports a
// concrete backend type — it only ever sees the ProviderClient this
// factory returns.
type Config struct {
	ID              string
	Model           string
	ReasoningEffort string
	Region          string
	Auth            AuthMode
}

// New dispatches on cfg.ID to the concrete backend, mirroring the
// teacher's single switch-statement provider factory.
func New(cfg Config) (ProviderClient, error) {
	switch cfg.ID {
	case "anthropic":
		return NewAnthropicClient(cfg.Model, cfg.Auth), nil

	case "openai", "chatgpt", "codex":
		return NewOpenAIClient(cfg.Model, cfg.ReasoningEffort, cfg.Auth), nil

	case "gemini":
		return NewGeminiClient(cfg.Model, cfg.Auth), nil

	case "bedrock":
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return NewBedrockClient(cfg.Model, region, cfg.Auth), nil

	default:
		return nil, fmt.Errorf("unknown provider id %q", cfg.ID)
	}
}

// DefaultAuthForEnv builds the conventional ApiKey AuthMode for a provider
// id from the given environment variable name — the common case for
// providers that don't need OAuth refresh.
func DefaultAuthForEnv(envVar string) AuthMode {
	return ApiKey(envVar)
}

// DefaultAuthForOAuth builds the OAuthRefresh AuthMode backed by a
// persisted credential store under configHome/auth/<providerID>.json.
func DefaultAuthForOAuth(configHome, providerID string, exchange credentials.RefreshExchanger) AuthMode {
	return OAuthRefresh(credentials.NewOAuthStore(configHome, providerID, exchange))
}
