package factory

import (
	"fmt"

	"github.com/mikey/vertretungsanalyse/internal/adapters/bedrock"
	"github.com/mikey/vertretungsanalyse/internal/adapters/gemini"
	"github.com/mikey/vertretungsanalyse/internal/adapters/openai"
	"github.com/mikey/vertretungsanalyse/internal/config"
	"github.com/mikey/vertretungsanalyse/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "openai", "":
		return openai.NewFactory(f.cfg, f.logger).CreateLLMClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateLLMClient()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateLLMClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

// APIBaseURL returns the endpoint of the configured provider, used for the
// reachability probe
func (f *LLMFactory) APIBaseURL() (string, error) {
	switch provider := f.cfg.GetLLM().Provider; provider {
	case "openai", "":
		return f.cfg.GetOpenAI().BaseURL, nil
	case "gemini":
		return "https://generativelanguage.googleapis.com", nil
	case "bedrock":
		return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", f.cfg.GetBedrock().Region), nil
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
