package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultAnalysisTimeout bounds a single analysis request
const DefaultAnalysisTimeout = 30 * time.Second

// AnalysisClient performs one analysis call and post-processes its text
type AnalysisClient struct {
	llmClient    LLMClient
	reachability Reachability
	annotator    DateAnnotator
	timeout      time.Duration
	logger       *zap.Logger
}

// NewAnalysisClient creates a new analysis client. reachability may be nil,
// in which case no connectivity check is made.
func NewAnalysisClient(
	llmClient LLMClient,
	reachability Reachability,
	annotator DateAnnotator,
	timeout time.Duration,
	logger *zap.Logger,
) *AnalysisClient {
	if timeout <= 0 {
		timeout = DefaultAnalysisTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisClient{
		llmClient:    llmClient,
		reachability: reachability,
		annotator:    annotator,
		timeout:      timeout,
		logger:       logger,
	}
}

// ModelName returns the model of the underlying LLM client
func (c *AnalysisClient) ModelName() string {
	return c.llmClient.ModelName()
}

// RequiresCredential reports whether Analyze needs an API key
func (c *AnalysisClient) RequiresCredential() bool {
	return c.llmClient.RequiresCredential()
}

// Analyze sends emailContent for analysis and annotates the dates in the answer.
// Failures are returned as *AnalysisError.
func (c *AnalysisClient) Analyze(ctx context.Context, emailContent string, apiKey string) (*AnalysisResult, error) {
	if c.reachability != nil && !c.reachability.Online(ctx) {
		c.logger.Warn("Analysis skipped, environment is offline")
		return nil, ClassifyError(ErrOffline)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	raw, err := c.llmClient.Complete(callCtx, emailContent, apiKey)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = errors.Join(ErrTimeout, err)
		}
		classified := ClassifyError(err)
		c.logger.Error("Analysis request failed",
			zap.String("kind", string(classified.Kind)),
			zap.Int("status", classified.StatusCode()),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err))
		return nil, classified
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ClassifyError(ErrMalformedResponse)
	}

	c.logger.Debug("Analysis request completed",
		zap.String("model", c.llmClient.ModelName()),
		zap.Int("response_size", len(raw)),
		zap.Duration("duration", time.Since(startTime)))

	text := raw
	if c.annotator != nil {
		text = c.annotator.AnnotateText(raw)
	}

	return &AnalysisResult{
		Raw:        raw,
		Text:       text,
		ModelUsed:  c.llmClient.ModelName(),
		AnalyzedAt: time.Now(),
	}, nil
}
