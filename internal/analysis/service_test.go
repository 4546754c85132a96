package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/fjkiani/CB-news/internal/cache"
	"github.com/fjkiani/CB-news/internal/model"
)

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]cache.Entry)}
}

func (f *fakeStore) GetEntry(ctx context.Context, key string) (cache.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[key]
	return entry, ok
}

func (f *fakeStore) SetEntry(ctx context.Context, key string, payload any, ttl time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	f.entries[key] = cache.Entry{Timestamp: time.Now(), Payload: body}
	return true
}

func (f *fakeStore) DeletePattern(ctx context.Context, pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	deleted := 0
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
			deleted++
		}
	}
	return deleted
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
	delay    time.Duration
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) MarketImpact(ctx context.Context, content string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newTestService(store Store, provider Provider) *Service {
	return NewService(store, provider, testPolicy(3), 200*time.Millisecond)
}

func TestAnalyze_Success(t *testing.T) {
	provider := &fakeProvider{response: validResponse}
	svc := newTestService(newFakeStore(), provider)

	result, err := svc.Analyze(context.Background(), "Acme beats earnings expectations")

	assert.Equal(t, nil, err)
	assert.Equal(t, "positive", result.Sentiment.Label)
	assert.Equal(t, model.AnalysisSourceLLM, result.Source)
	assert.Equal(t, 1, provider.callCount())
}

func TestAnalyze_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{response: validResponse}
	svc := newTestService(newFakeStore(), provider)

	_, err := svc.Analyze(context.Background(), "Acme beats earnings expectations")
	assert.Equal(t, nil, err)

	_, err = svc.Analyze(context.Background(), "Acme beats earnings expectations")
	assert.Equal(t, nil, err)

	assert.Equal(t, 1, provider.callCount())
}

func TestAnalyze_FingerprintSharesFirst100Chars(t *testing.T) {
	opening := strings.Repeat("x", 100)

	assert.Equal(t, Fingerprint(opening+" one ending"), Fingerprint(opening+" another ending"))
	assert.NotEqual(t, Fingerprint("short a"), Fingerprint("short b"))
}

func TestAnalyze_CoalescesConcurrentRequests(t *testing.T) {
	provider := &fakeProvider{response: validResponse, delay: 50 * time.Millisecond}
	svc := newTestService(newFakeStore(), provider)

	const callers = 5
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Analyze(context.Background(), "identical content for everyone")
			assert.Equal(t, nil, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.callCount())
}

func TestAnalyze_ValidationFailureFallsBackToRules(t *testing.T) {
	provider := &fakeProvider{response: `{"sentiment": {"label": "bullish"}}`}
	store := newFakeStore()
	svc := newTestService(store, provider)

	result, err := svc.Analyze(context.Background(), "Acme surges on record profit growth")

	assert.Equal(t, nil, err)
	assert.Equal(t, model.AnalysisSourceRule, result.Source)
	assert.Equal(t, "positive", result.Sentiment.Label)

	// The fallback result still conforms to the schema.
	assert.Equal(t, nil, validate.Struct(result))
}

func TestAnalyze_NoProviderUsesRules(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	result, err := svc.Analyze(context.Background(), "Markets drift with no clear signal")

	assert.Equal(t, nil, err)
	assert.Equal(t, model.AnalysisSourceRule, result.Source)
}

func TestAnalyze_RateLimitExhaustionSurfaces(t *testing.T) {
	provider := &fakeProvider{err: &UpstreamError{StatusCode: 429, Err: errors.New("rate limited")}}
	svc := newTestService(newFakeStore(), provider)

	_, err := svc.Analyze(context.Background(), "some content")

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	assert.Equal(t, 3, provider.callCount())
}

func TestAnalyze_TimeoutSurfacesAsErrTimeout(t *testing.T) {
	provider := &fakeProvider{response: validResponse, delay: time.Second}
	svc := NewService(newFakeStore(), provider, testPolicy(1), 20*time.Millisecond)

	_, err := svc.Analyze(context.Background(), "slow content")

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestAnalyzeBatch_BestEffortPerItem(t *testing.T) {
	provider := &failOnProvider{inner: &fakeProvider{response: validResponse}, failSubstring: "second"}
	svc := newTestService(newFakeStore(), provider)

	articles := []model.Article{
		{ID: "a1", Content: "first article content"},
		{ID: "a2", Content: "second article content"},
		{ID: "a3", Content: "third article content"},
	}

	results, failures := svc.AnalyzeBatch(context.Background(), articles)

	assert.Equal(t, 3, len(results))
	assert.NotEqual(t, (*model.AnalysisResult)(nil), results[0])
	assert.Equal(t, (*model.AnalysisResult)(nil), results[1])
	assert.NotEqual(t, (*model.AnalysisResult)(nil), results[2])

	assert.Equal(t, 1, len(failures))
	assert.Equal(t, "a2", failures[0].ArticleID)
}

func TestClearCache_DropsAnalysisEntries(t *testing.T) {
	provider := &fakeProvider{response: validResponse}
	store := newFakeStore()
	svc := newTestService(store, provider)

	_, err := svc.Analyze(context.Background(), "something to cache")
	assert.Equal(t, nil, err)

	assert.Equal(t, 1, svc.ClearCache(context.Background()))

	_, err = svc.Analyze(context.Background(), "something to cache")
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, provider.callCount())
}

// failOnProvider fails only for content containing failSubstring, so a
// batch can mix successes and one failure.
type failOnProvider struct {
	inner         *fakeProvider
	failSubstring string
}

func (p *failOnProvider) Name() string { return "fail-on" }

func (p *failOnProvider) MarketImpact(ctx context.Context, content string) (string, error) {
	if strings.Contains(content, p.failSubstring) {
		return "", &UpstreamError{StatusCode: 400, Err: errors.New("rejected")}
	}
	return p.inner.MarketImpact(ctx, content)
}
