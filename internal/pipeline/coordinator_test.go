package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/fjkiani/CB-news/internal/cache"
	"github.com/fjkiani/CB-news/internal/model"
	"github.com/fjkiani/CB-news/internal/normalize"
	"github.com/fjkiani/CB-news/pkg/news"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
	plain   map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]cache.Entry), plain: make(map[string]string)}
}

func (f *fakeCache) GetEntry(ctx context.Context, key string) (cache.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[key]
	return entry, ok
}

func (f *fakeCache) SetEntry(ctx context.Context, key string, payload any, ttl time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	f.entries[key] = cache.Entry{Timestamp: time.Now(), Payload: body}
	return true
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.plain[key]
	return val, ok
}

func (f *fakeCache) Set(ctx context.Context, key string, payload string, ttl time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plain[key] = payload
	return true
}

func (f *fakeCache) Delete(ctx context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.plain, key)
}

func (f *fakeCache) seed(key string, articles []model.Article, age time.Duration) {
	body, _ := json.Marshal(articles)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = cache.Entry{Timestamp: time.Now().Add(-age), Payload: body}
}

type fakeSource struct {
	mu    sync.Mutex
	items []news.RawItem
	err   error
	delay time.Duration
	calls int
}

func (s *fakeSource) Name() string { return "test" }

func (s *fakeSource) Fetch(ctx context.Context) ([]news.RawItem, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.items, s.err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeRepo struct {
	mu       sync.Mutex
	upserted [][]model.Article
}

func (r *fakeRepo) UpsertArticles(articles []model.Article) ([]model.StoredArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, articles)
	stored := make([]model.StoredArticle, len(articles))
	for i, a := range articles {
		stored[i] = model.StoredArticle{Article: a}
	}
	return stored, nil
}

func (r *fakeRepo) batches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.upserted)
}

func newTestCoordinator(fc *fakeCache, source *fakeSource, repo *fakeRepo) *Coordinator {
	sources := map[string]news.Source{"test": source}
	return NewCoordinator(fc, sources, normalize.New(fc, 0), nil, repo, 50*time.Millisecond)
}

func cachedArticles() []model.Article {
	return []model.Article{
		{ID: "cached-1", Title: "Cached headline", URL: "https://example.com/cached"},
	}
}

func TestScrape_FreshCacheHit(t *testing.T) {
	fc := newFakeCache()
	fc.seed(cache.KeyPrefixArticles+"test", cachedArticles(), time.Minute)
	source := &fakeSource{}

	c := newTestCoordinator(fc, source, &fakeRepo{})
	result, err := c.Scrape(context.Background(), "test", false)

	assert.Equal(t, nil, err)
	assert.Equal(t, StatusCached, result.Status)
	assert.Equal(t, "Cached headline", result.Articles[0].Title)
	assert.Equal(t, 0, source.callCount())
}

func TestScrape_MissFetchesPersistsAndCaches(t *testing.T) {
	fc := newFakeCache()
	source := &fakeSource{items: []news.RawItem{
		{Title: "Fresh story", URL: "https://example.com/fresh", PublishedAt: time.Now().Add(-time.Hour)},
	}}
	repo := &fakeRepo{}

	c := newTestCoordinator(fc, source, repo)
	result, err := c.Scrape(context.Background(), "test", false)

	assert.Equal(t, nil, err)
	assert.Equal(t, StatusFresh, result.Status)
	assert.Equal(t, 1, len(result.Articles))
	assert.Equal(t, 1, repo.batches())

	_, cached := fc.GetEntry(context.Background(), cache.KeyPrefixArticles+"test")
	assert.Equal(t, true, cached)
}

func TestScrape_StaleEntryRefetches(t *testing.T) {
	fc := newFakeCache()
	fc.seed(cache.KeyPrefixArticles+"test", cachedArticles(), 10*time.Minute)
	source := &fakeSource{items: []news.RawItem{
		{Title: "Newer story", URL: "https://example.com/newer", PublishedAt: time.Now().Add(-time.Hour)},
	}}

	c := newTestCoordinator(fc, source, &fakeRepo{})
	result, err := c.Scrape(context.Background(), "test", false)

	assert.Equal(t, nil, err)
	assert.Equal(t, StatusFresh, result.Status)
	assert.Equal(t, 1, source.callCount())
}

func TestScrape_FetchFailureServesStaleCache(t *testing.T) {
	fc := newFakeCache()
	fc.seed(cache.KeyPrefixArticles+"test", cachedArticles(), 10*time.Minute)
	source := &fakeSource{err: &news.FetchError{Source: "test", Reason: "down"}}

	c := newTestCoordinator(fc, source, &fakeRepo{})
	result, err := c.Scrape(context.Background(), "test", false)

	assert.Equal(t, nil, err)
	assert.Equal(t, StatusStaleFallback, result.Status)
	assert.Equal(t, "Cached headline", result.Articles[0].Title)
}

func TestScrape_FetchFailureWithNoCacheFails(t *testing.T) {
	fc := newFakeCache()
	source := &fakeSource{err: &news.FetchError{Source: "test", Reason: "down"}}

	c := newTestCoordinator(fc, source, &fakeRepo{})
	_, err := c.Scrape(context.Background(), "test", false)

	var fetchErr *news.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestScrape_ForceWithCacheAnswersImmediately(t *testing.T) {
	fc := newFakeCache()
	fc.seed(cache.KeyPrefixArticles+"test", cachedArticles(), time.Minute)
	source := &fakeSource{delay: 30 * time.Millisecond, items: []news.RawItem{
		{Title: "Refreshed", URL: "https://example.com/refreshed", PublishedAt: time.Now().Add(-time.Hour)},
	}}

	c := newTestCoordinator(fc, source, &fakeRepo{})
	result, err := c.Scrape(context.Background(), "test", true)

	assert.Equal(t, nil, err)
	assert.Equal(t, StatusCached, result.Status)
	assert.Equal(t, true, result.Background)
	assert.Equal(t, "Cached headline", result.Articles[0].Title)

	// The refresh keeps going behind the response.
	deadline := time.Now().Add(time.Second)
	for source.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, source.callCount())
}

func TestScrape_ForceWithEmptyCacheWaitsBounded(t *testing.T) {
	fc := newFakeCache()
	source := &fakeSource{items: []news.RawItem{
		{Title: "Quick", URL: "https://example.com/quick", PublishedAt: time.Now().Add(-time.Hour)},
	}}

	c := newTestCoordinator(fc, source, &fakeRepo{})
	result, err := c.Scrape(context.Background(), "test", true)

	assert.Equal(t, nil, err)
	assert.Equal(t, StatusFresh, result.Status)
	assert.Equal(t, 1, len(result.Articles))
}

func TestScrape_ForceWithEmptyCacheAndSlowFetchReturnsEarly(t *testing.T) {
	fc := newFakeCache()
	source := &fakeSource{delay: 300 * time.Millisecond, items: []news.RawItem{
		{Title: "Slow", URL: "https://example.com/slow", PublishedAt: time.Now().Add(-time.Hour)},
	}}

	c := newTestCoordinator(fc, source, &fakeRepo{})

	start := time.Now()
	result, err := c.Scrape(context.Background(), "test", true)
	elapsed := time.Since(start)

	assert.Equal(t, nil, err)
	assert.Equal(t, true, result.Background)
	assert.Equal(t, 0, len(result.Articles))
	if elapsed > 200*time.Millisecond {
		t.Fatalf("force refresh blocked for %v, want bounded wait", elapsed)
	}
}

func TestScrape_UnknownSource(t *testing.T) {
	c := newTestCoordinator(newFakeCache(), &fakeSource{}, &fakeRepo{})

	_, err := c.Scrape(context.Background(), "nope", false)
	assert.NotEqual(t, nil, err)
}
