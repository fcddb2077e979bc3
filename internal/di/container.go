package di

import (
	"io"
	"sync"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/vertretungsanalyse/internal/adapters/network"
	"github.com/mikey/vertretungsanalyse/internal/allowlist"
	"github.com/mikey/vertretungsanalyse/internal/config"
	"github.com/mikey/vertretungsanalyse/internal/core"
	"github.com/mikey/vertretungsanalyse/internal/credentials"
	"github.com/mikey/vertretungsanalyse/internal/factory"
	"github.com/mikey/vertretungsanalyse/internal/logging"
	"github.com/mikey/vertretungsanalyse/internal/metrics"
	"github.com/mikey/vertretungsanalyse/internal/utils"
)

// Resources collects what has to be released when the command finishes
type Resources struct {
	mu      sync.Mutex
	closers []func()
}

// Add registers a release function
func (r *Resources) Add(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, fn)
}

// AddCloser registers c unless it is nil
func (r *Resources) AddCloser(c io.Closer, logger *zap.Logger) {
	if c == nil {
		return
	}
	r.Add(func() {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to release resource", zap.Error(err))
		}
	})
}

// Close releases everything in reverse order of registration
func (r *Resources) Close() {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// BuildContainer creates and configures a dependency injection container.
// The prompter is asked for the API key when no stored key exists.
func BuildContainer(cfg *config.Config, prompter credentials.Prompter) (*dig.Container, error) {
	container := dig.New()

	// Register configuration and shared resources
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() credentials.Prompter { return prompter }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *Resources { return &Resources{} }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text helpers
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.DateFormatter {
		return f.CreateDateFormatter()
	}); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory, res *Resources, logger *zap.Logger) (core.LLMClient, error) {
		client, err := f.CreateLLMClient()
		if err != nil {
			return nil, err
		}
		if closer, ok := client.(io.Closer); ok {
			res.AddCloser(closer, logger)
		}
		return client, nil
	}); err != nil {
		return nil, err
	}

	// Register reachability probe, nil when disabled
	if err := container.Provide(func(cfg *config.Config, f *factory.LLMFactory, logger *zap.Logger) (core.Reachability, error) {
		networkCfg, err := cfg.GetNetwork()
		if err != nil {
			return nil, err
		}
		if !networkCfg.CheckReachability {
			return nil, nil
		}
		baseURL, err := f.APIBaseURL()
		if err != nil {
			return nil, err
		}
		probe, err := network.NewProbe(baseURL, networkCfg.ProbeTimeout, logger)
		if err != nil {
			return nil, err
		}
		return probe, nil
	}); err != nil {
		return nil, err
	}

	// Register credential store
	if err := container.Provide(func(f *factory.StorageFactory, prompter credentials.Prompter, res *Resources, logger *zap.Logger) (*credentials.Store, error) {
		local, localCloser, err := f.CreateLocalStore()
		if err != nil {
			return nil, err
		}
		res.AddCloser(localCloser, logger)

		roaming, roamingCloser, err := f.CreateRoamingStore()
		if err != nil {
			return nil, err
		}
		res.AddCloser(roamingCloser, logger)

		saveTimeout, err := f.RoamingSaveTimeout()
		if err != nil {
			return nil, err
		}
		return credentials.NewStore(local, roaming, prompter, logger, saveTimeout), nil
	}); err != nil {
		return nil, err
	}

	// Register cache repository, nil when disabled
	if err := container.Provide(func(f *factory.CacheFactory, res *Resources) (core.CacheRepository, error) {
		repo, err := f.CreateCacheRepository()
		if err != nil || repo == nil {
			return nil, err
		}
		res.Add(repo.Stop)
		return repo, nil
	}); err != nil {
		return nil, err
	}

	// Register sender allowlist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*allowlist.Checker, error) {
		analysisCfg, err := cfg.GetAnalysis()
		if err != nil {
			return nil, err
		}
		return allowlist.NewChecker(analysisCfg.SenderDomains, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(metrics.NewRecorder); err != nil {
		return nil, err
	}

	// Register analysis client
	if err := container.Provide(func(
		cfg *config.Config,
		llmClient core.LLMClient,
		reachability core.Reachability,
		dates *utils.DateFormatter,
		logger *zap.Logger,
	) (*core.AnalysisClient, error) {
		analysisCfg, err := cfg.GetAnalysis()
		if err != nil {
			return nil, err
		}
		return core.NewAnalysisClient(llmClient, reachability, dates, analysisCfg.Timeout, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register analysis service
	if err := container.Provide(func(
		cfg *config.Config,
		client *core.AnalysisClient,
		store *credentials.Store,
		cacheRepo core.CacheRepository,
		senders *allowlist.Checker,
		body *utils.TextProcessor,
		recorder *metrics.Recorder,
		logger *zap.Logger,
	) (*core.AnalysisService, error) {
		analysisCfg, err := cfg.GetAnalysis()
		if err != nil {
			return nil, err
		}
		cacheCfg, err := cfg.GetCache()
		if err != nil {
			return nil, err
		}
		return core.NewAnalysisService(
			client,
			store,
			cacheRepo,
			senders,
			body,
			recorder,
			logger,
			core.ServiceOptions{
				CacheEnabled: cacheCfg.Enabled,
				CacheTTL:     cacheCfg.TTL,
				MaxBodySize:  analysisCfg.MaxBodySize,
			},
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
