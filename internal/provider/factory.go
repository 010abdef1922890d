package provider

import (
	"fmt"

	"github.com/paperfuse/core/internal/consts"
	"github.com/paperfuse/core/internal/provider/anthropic"
	"github.com/paperfuse/core/internal/provider/glm"
	"github.com/paperfuse/core/internal/provider/google"
	"github.com/paperfuse/core/internal/types"
)

// New constructs the Client for the given provider configuration. Adapted
// from the teacher's provider.NewQueryClient switch-by-name dispatch.
func New(cfg types.ProviderConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: no API key configured", cfg.Name)
	}
	switch cfg.Name {
	case consts.ProviderClaude:
		return anthropic.NewClient(cfg.APIKey, cfg.BaseURL), nil
	case consts.ProviderGLM:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = consts.DefaultGLMBaseURL
		}
		return glm.NewClient(cfg.APIKey, baseURL), nil
	case consts.ProviderGoogle:
		return google.NewClient(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Name)
	}
}

// DefaultModels returns the (quick, deep) model defaults for a provider,
// applied by the AI Client when ProviderConfig leaves them unset (spec
// §4.C "Model selection").
func DefaultModels(name string) (quick, deep string) {
	switch name {
	case consts.ProviderClaude:
		return consts.DefaultClaudeQuickModel, consts.DefaultClaudeDeepModel
	case consts.ProviderGLM:
		return consts.DefaultGLMQuickModel, consts.DefaultGLMDeepModel
	case consts.ProviderGoogle:
		return consts.DefaultGoogleQuickModel, consts.DefaultGoogleDeepModel
	default:
		return "", ""
	}
}
