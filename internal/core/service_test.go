package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*CacheEntry)}
}

func (c *mapCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

func (c *mapCache) Set(ctx context.Context, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Cleanup(ctx context.Context) error { return nil }

type fakeCredentials struct {
	key   string
	err   error
	calls int
}

func (f *fakeCredentials) Obtain(ctx context.Context) (string, error) {
	f.calls++
	return f.key, f.err
}

type domainPolicy string

func (d domainPolicy) IsAllowed(from string) bool { return strings.HasSuffix(from, "@"+string(d)) }

type truncatingBody struct{}

func (truncatingBody) ProcessText(text string, maxSize int) string {
	if len(text) > maxSize {
		return text[:maxSize]
	}
	return text
}

type outcomeRecorder struct {
	outcomes  []string
	cacheHits int
}

func (r *outcomeRecorder) ObserveAnalysis(outcome string, seconds float64) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) ObserveCacheHit() { r.cacheHits++ }

func testEmail() *Email {
	return &Email{
		Subject: "Krankmeldung",
		From:    "mueller@schule.de",
		To:      []string{"vertretung@schule.de"},
		Body:    "Ich bin heute krank.",
	}
}

func newTestService(llm *fakeLLM, creds CredentialProvider, cache CacheRepository, recorder MetricsRecorder) *AnalysisService {
	client := NewAnalysisClient(llm, nil, nil, time.Second, zap.NewNop())
	return NewAnalysisService(client, creds, cache, domainPolicy("schule.de"), truncatingBody{}, recorder, zap.NewNop(),
		ServiceOptions{CacheEnabled: true, CacheTTL: time.Hour, MaxBodySize: 1000})
}

func TestAnalyzeEmailUsesCache(t *testing.T) {
	llm := &fakeLLM{response: "MÜL: Krank", credential: true}
	creds := &fakeCredentials{key: "sk-key"}
	recorder := &outcomeRecorder{}
	svc := newTestService(llm, creds, newMapCache(), recorder)

	first, err := svc.AnalyzeEmail(context.Background(), testEmail())
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, "MÜL: Krank", first.Text)
	assert.Equal(t, "sk-key", llm.lastKey)

	second, err := svc.AnalyzeEmail(context.Background(), testEmail())
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, "fake-model", second.ModelUsed)

	assert.Equal(t, 1, llm.callCount())
	assert.Equal(t, 1, creds.calls)
	assert.Equal(t, []string{OutcomeSuccess, OutcomeCached}, recorder.outcomes)
	assert.Equal(t, 1, recorder.cacheHits)
}

func TestAnalyzeEmailCacheKeyFollowsContent(t *testing.T) {
	llm := &fakeLLM{response: "MÜL: Krank"}
	svc := newTestService(llm, nil, newMapCache(), nil)

	_, err := svc.AnalyzeEmail(context.Background(), testEmail())
	require.NoError(t, err)

	other := testEmail()
	other.Body = "Ich bin morgen krank."
	result, err := svc.AnalyzeEmail(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, llm.callCount())
}

func TestAnalyzeEmailSkipsForeignSender(t *testing.T) {
	llm := &fakeLLM{response: "x"}
	recorder := &outcomeRecorder{}
	svc := newTestService(llm, nil, nil, recorder)

	email := testEmail()
	email.From = "werbung@example.com"
	_, err := svc.AnalyzeEmail(context.Background(), email)
	assert.ErrorIs(t, err, ErrSenderNotAllowed)
	assert.Zero(t, llm.callCount())
	assert.Equal(t, []string{OutcomeSkipped}, recorder.outcomes)
}

func TestAnalyzeEmailCredentials(t *testing.T) {
	t.Run("not required", func(t *testing.T) {
		llm := &fakeLLM{response: "x"}
		creds := &fakeCredentials{err: errors.New("must not be called")}
		svc := newTestService(llm, creds, nil, nil)

		_, err := svc.AnalyzeEmail(context.Background(), testEmail())
		require.NoError(t, err)
		assert.Zero(t, creds.calls)
		assert.Empty(t, llm.lastKey)
	})

	t.Run("no provider", func(t *testing.T) {
		llm := &fakeLLM{response: "x", credential: true}
		recorder := &outcomeRecorder{}
		svc := newTestService(llm, nil, nil, recorder)

		_, err := svc.AnalyzeEmail(context.Background(), testEmail())
		assert.ErrorIs(t, err, ErrNoCredential)
		assert.Zero(t, llm.callCount())
		assert.Equal(t, []string{OutcomeNoCredential}, recorder.outcomes)
	})

	t.Run("provider fails", func(t *testing.T) {
		llm := &fakeLLM{response: "x", credential: true}
		svc := newTestService(llm, &fakeCredentials{err: ErrInvalidCredentialFormat}, nil, nil)

		_, err := svc.AnalyzeEmail(context.Background(), testEmail())
		assert.ErrorIs(t, err, ErrInvalidCredentialFormat)
		assert.Zero(t, llm.callCount())
	})
}

func TestAnalyzeEmailFailureIsNotCached(t *testing.T) {
	llm := &fakeLLM{err: NewHTTPError(429, "")}
	cache := newMapCache()
	recorder := &outcomeRecorder{}
	svc := newTestService(llm, nil, cache, recorder)

	_, err := svc.AnalyzeEmail(context.Background(), testEmail())
	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, KindRateLimit, analysisErr.Kind)
	assert.Empty(t, cache.entries)
	assert.Equal(t, []string{string(KindRateLimit)}, recorder.outcomes)
}

func TestAnalyzeEmailTruncatesBody(t *testing.T) {
	llm := &fakeLLM{response: "x"}
	client := NewAnalysisClient(llm, nil, nil, time.Second, zap.NewNop())
	svc := NewAnalysisService(client, nil, nil, nil, truncatingBody{}, nil, zap.NewNop(), ServiceOptions{MaxBodySize: 5})

	email := testEmail()
	_, err := svc.AnalyzeEmail(context.Background(), email)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(llm.lastInput, "\n\nIch b"))
	assert.Equal(t, "Ich bin heute krank.", email.Body)
}

func TestAnalysisServiceWithoutLogger(t *testing.T) {
	client := NewAnalysisClient(&fakeLLM{response: "x"}, nil, nil, time.Second, nil)
	svc := NewAnalysisService(client, nil, newMapCache(), domainPolicy("schule.de"), nil, nil, nil,
		ServiceOptions{CacheEnabled: true, CacheTTL: time.Hour})

	email := testEmail()
	email.From = "werbung@example.com"
	assert.NotPanics(t, func() {
		_, err := svc.AnalyzeEmail(context.Background(), email)
		assert.ErrorIs(t, err, ErrSenderNotAllowed)
	})
	assert.NotPanics(t, func() {
		_, err := svc.AnalyzeEmail(context.Background(), testEmail())
		require.NoError(t, err)
		_, err = svc.AnalyzeEmail(context.Background(), testEmail())
		require.NoError(t, err)
	})
}

func TestContentKeyIncludesModel(t *testing.T) {
	content := testEmail().Content()
	assert.Equal(t, ContentKey("gpt-4o-mini", content), ContentKey("gpt-4o-mini", content))
	assert.NotEqual(t, ContentKey("gpt-4o-mini", content), ContentKey("gemini-1.5-flash", content))
	assert.Len(t, ContentKey("gpt-4o-mini", content), 64)
}

func TestAnalyzeEmailCacheIsPerModel(t *testing.T) {
	cache := newMapCache()
	openaiLLM := &fakeLLM{response: "MÜL: Krank", model: "gpt-4o-mini"}
	geminiLLM := &fakeLLM{response: "MÜL: krank", model: "gemini-1.5-flash"}

	_, err := newTestService(openaiLLM, nil, cache, nil).AnalyzeEmail(context.Background(), testEmail())
	require.NoError(t, err)

	result, err := newTestService(geminiLLM, nil, cache, nil).AnalyzeEmail(context.Background(), testEmail())
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, "gemini-1.5-flash", result.ModelUsed)
	assert.Equal(t, 1, geminiLLM.callCount())

	again, err := newTestService(openaiLLM, nil, cache, nil).AnalyzeEmail(context.Background(), testEmail())
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Equal(t, "gpt-4o-mini", again.ModelUsed)
}
