package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/vertretungsanalyse/internal/config"
	"github.com/mikey/vertretungsanalyse/internal/credentials"
	"github.com/mikey/vertretungsanalyse/internal/di"
	"github.com/mikey/vertretungsanalyse/internal/metrics"
)

// globalOptions are the persistent flags shared by all commands
type globalOptions struct {
	configFile  string
	verbose     bool
	logFormat   string
	provider    string
	noCache     bool
	metricsFile string
}

func newRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "vertretungsanalyse",
		Short: "Summarizes staff emails into substitution schedule entries",
		Long: `vertretungsanalyse sends an email to a language model with a fixed German
prompt and prints a compact entry for the substitution schedule. Every date in
the answer is annotated with its weekday, e.g. 12.05.2025 (Mo).

The OpenAI API key is taken from the roaming store, then the local store, and
is asked for on the terminal when neither has one.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate(`{{printf "vertretungsanalyse version %s\n" .Version}}`)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to config file (default: search config.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: console or json")
	flags.StringVar(&opts.provider, "provider", "", "LLM provider: openai, gemini or bedrock")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Do not use the result cache")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")

	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newKeyCmd(opts))

	return cmd
}

// loadConfig reads the configuration and applies the command line overrides
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.New(o.configFile)
	if err != nil {
		return nil, err
	}

	if o.verbose {
		cfg.Set("logging.level", "debug")
	}
	if o.logFormat != "" {
		cfg.Set("logging.format", o.logFormat)
	}
	if o.provider != "" {
		cfg.Set("llm.provider", o.provider)
	}
	if o.noCache {
		cfg.Set("cache.enabled", false)
	}
	if o.metricsFile != "" {
		cfg.Set("metrics.file", o.metricsFile)
	}
	return cfg, nil
}

// run builds the container and invokes fn with its dependencies. Resources
// are released and metrics written after fn returns.
func (o *globalOptions) run(prompter credentials.Prompter, fn interface{}) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	container, err := di.BuildContainer(cfg, prompter)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}

	var res *di.Resources
	var logger *zap.Logger
	if err := container.Invoke(func(r *di.Resources, l *zap.Logger) {
		res, logger = r, l
	}); err != nil {
		return fmt.Errorf("failed to initialize: %w", dig.RootCause(err))
	}
	defer logger.Sync() //nolint:errcheck
	defer res.Close()

	runErr := container.Invoke(fn)

	if path := cfg.GetString("metrics.file"); path != "" {
		if err := container.Invoke(func(recorder *metrics.Recorder) error {
			return recorder.WriteTextfile(path)
		}); err != nil {
			logger.Error("Failed to write metrics", zap.String("file", path), zap.Error(err))
		}
	}

	if runErr != nil {
		return dig.RootCause(runErr)
	}
	return nil
}
