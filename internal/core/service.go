package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Analysis outcomes reported to the MetricsRecorder
const (
	OutcomeSuccess = "success"
	OutcomeCached  = "cached"
	OutcomeSkipped = "skipped"
	// OutcomeNoCredential is reported when no API key could be obtained
	OutcomeNoCredential = "no_credential"
)

// ServiceOptions holds the tunables of the analysis service
type ServiceOptions struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	MaxBodySize  int
}

// AnalysisService is the core service for analyzing substitution emails
type AnalysisService struct {
	client      *AnalysisClient
	credentials CredentialProvider
	cache       CacheRepository
	senders     SenderPolicy
	body        BodyProcessor
	metrics     MetricsRecorder
	logger      *zap.Logger
	opts        ServiceOptions
}

// NewAnalysisService creates a new analysis service. cache, senders, body and
// metrics are optional.
func NewAnalysisService(
	client *AnalysisClient,
	credentials CredentialProvider,
	cache CacheRepository,
	senders SenderPolicy,
	body BodyProcessor,
	metrics MetricsRecorder,
	logger *zap.Logger,
	opts ServiceOptions,
) *AnalysisService {
	if cache == nil {
		opts.CacheEnabled = false
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		client:      client,
		credentials: credentials,
		cache:       cache,
		senders:     senders,
		body:        body,
		metrics:     metrics,
		logger:      logger,
		opts:        opts,
	}
}

// AnalyzeEmail analyzes an email and returns the annotated summary
func (s *AnalysisService) AnalyzeEmail(ctx context.Context, email *Email) (*AnalysisResult, error) {
	startTime := time.Now()

	if s.senders != nil && !s.senders.IsAllowed(email.From) {
		s.logger.Info("Skipping analysis for sender outside allowlist",
			zap.String("sender", email.From),
			zap.String("action", "allowlist_skip"))
		s.observe(OutcomeSkipped, startTime)
		return nil, ErrSenderNotAllowed
	}

	prepared := *email
	if s.body != nil {
		prepared.Body = s.body.ProcessText(email.Body, s.opts.MaxBodySize)
	}
	content := prepared.Content()
	key := ContentKey(s.client.ModelName(), content)

	if s.opts.CacheEnabled {
		entry, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			s.logger.Debug("Cache hit for email", zap.String("subject", email.Subject))
			if s.metrics != nil {
				s.metrics.ObserveCacheHit()
			}
			s.observe(OutcomeCached, startTime)
			return &AnalysisResult{
				Raw:        entry.Raw,
				Text:       entry.Text,
				ModelUsed:  entry.ModelUsed,
				AnalyzedAt: entry.AnalyzedAt,
				FromCache:  true,
			}, nil
		case !errors.Is(err, ErrCacheMiss):
			s.logger.Warn("Failed to read cache", zap.Error(err))
		}
	}

	var apiKey string
	if s.client.RequiresCredential() {
		if s.credentials == nil {
			s.observe(OutcomeNoCredential, startTime)
			return nil, ErrNoCredential
		}
		credential, err := s.credentials.Obtain(ctx)
		if err != nil {
			s.observe(OutcomeNoCredential, startTime)
			return nil, err
		}
		apiKey = credential
	}

	result, err := s.client.Analyze(ctx, content, apiKey)
	if err != nil {
		s.observe(string(ClassifyError(err).Kind), startTime)
		return nil, err
	}

	if s.opts.CacheEnabled {
		entry := &CacheEntry{
			Key:        key,
			Text:       result.Text,
			Raw:        result.Raw,
			ModelUsed:  result.ModelUsed,
			AnalyzedAt: result.AnalyzedAt,
			ExpiresAt:  time.Now().Add(s.opts.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	s.observe(OutcomeSuccess, startTime)
	return result, nil
}

func (s *AnalysisService) observe(outcome string, startTime time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveAnalysis(outcome, time.Since(startTime).Seconds())
}
