package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjkiani/CB-news/internal/analysis"
	"github.com/fjkiani/CB-news/internal/cache"
	"github.com/fjkiani/CB-news/internal/model"
	"github.com/fjkiani/CB-news/internal/normalize"
	"github.com/fjkiani/CB-news/pkg/news"
)

// Outcome of one scrape cycle.
const (
	StatusCached        = "cached"
	StatusFresh         = "fresh"
	StatusStaleFallback = "stale-fallback"
)

type Result struct {
	Articles []model.Article
	Status   string
	// Background is set when the response was answered from cache and
	// the actual refresh continues behind it.
	Background bool
}

type Store interface {
	UpsertArticles(articles []model.Article) ([]model.StoredArticle, error)
}

type Analyzer interface {
	AnalyzeBatch(ctx context.Context, articles []model.Article) ([]*model.AnalysisResult, []analysis.ArticleError)
}

// CacheStore is the slice of the cache the coordinator needs.
type CacheStore interface {
	GetEntry(ctx context.Context, key string) (cache.Entry, bool)
	SetEntry(ctx context.Context, key string, payload any, ttl time.Duration) bool
}

// Coordinator wires the scrape cycle: check cache, fetch when stale or
// forced, normalize and dedup, enrich, persist, update cache. Fetch
// failures fall back to the last known good payload when one exists.
type Coordinator struct {
	cache      CacheStore
	sources    map[string]news.Source
	normalizer *normalize.Normalizer
	analyzer   Analyzer
	store      Store
	forceWait  time.Duration
}

func NewCoordinator(c CacheStore, sources map[string]news.Source, n *normalize.Normalizer, analyzer Analyzer, store Store, forceWait time.Duration) *Coordinator {
	return &Coordinator{
		cache:      c,
		sources:    sources,
		normalizer: n,
		analyzer:   analyzer,
		store:      store,
		forceWait:  forceWait,
	}
}

// Scrape runs one cycle for the named source. A forced refresh never
// blocks the caller indefinitely: when cached data exists it is served
// immediately and the refresh continues in the background; with an
// empty cache the caller waits at most forceWait.
func (c *Coordinator) Scrape(ctx context.Context, sourceName string, force bool) (Result, error) {
	source, ok := c.sources[sourceName]
	if !ok {
		return Result{}, fmt.Errorf("unknown source %q", sourceName)
	}

	key := cache.KeyPrefixArticles + sourceName
	entry, cached := c.cache.GetEntry(ctx, key)

	if cached && !force && !entry.StaleAfter(cache.TTLArticleList) {
		articles, err := decodeArticles(entry)
		if err == nil {
			return Result{Articles: articles, Status: StatusCached}, nil
		}
		slog.Error("cached article payload corrupt, refetching", "source", sourceName, "error", err)
	}

	if force {
		return c.forceRefresh(ctx, source, key, entry, cached)
	}

	articles, err := c.refresh(ctx, source, key, false)
	if err != nil {
		if cached {
			if stale, decErr := decodeArticles(entry); decErr == nil {
				slog.Warn("fetch failed, serving stale cache", "source", sourceName, "error", err)
				return Result{Articles: stale, Status: StatusStaleFallback}, nil
			}
		}
		return Result{}, err
	}

	return Result{Articles: articles, Status: StatusFresh}, nil
}

func (c *Coordinator) forceRefresh(ctx context.Context, source news.Source, key string, entry cache.Entry, cached bool) (Result, error) {
	// Detached so the refresh outlives the HTTP request that asked
	// for it.
	bgCtx := context.WithoutCancel(ctx)

	done := make(chan struct{})
	var fresh []model.Article
	var refreshErr error
	go func() {
		defer close(done)
		fresh, refreshErr = c.refresh(bgCtx, source, key, true)
		if refreshErr != nil {
			slog.Error("background refresh failed", "source", source.Name(), "error", refreshErr)
		}
	}()

	if cached {
		if articles, err := decodeArticles(entry); err == nil {
			return Result{Articles: articles, Status: StatusCached, Background: true}, nil
		}
	}

	select {
	case <-done:
		if refreshErr != nil {
			return Result{}, refreshErr
		}
		return Result{Articles: fresh, Status: StatusFresh}, nil
	case <-time.After(c.forceWait):
		return Result{Articles: nil, Status: StatusCached, Background: true}, nil
	}
}

// RefreshNow runs the fetch-through-persist sequence synchronously,
// bypassing the bounded-wait policy. Used by the CLI cycle runner.
func (c *Coordinator) RefreshNow(ctx context.Context, sourceName string, force bool) ([]model.Article, error) {
	source, ok := c.sources[sourceName]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", sourceName)
	}
	return c.refresh(ctx, source, cache.KeyPrefixArticles+sourceName, force)
}

// refresh is the fetch-normalize-analyze-persist-cache sequence.
func (c *Coordinator) refresh(ctx context.Context, source news.Source, key string, force bool) ([]model.Article, error) {
	items, err := source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	articles := c.normalizer.Normalize(ctx, items, force)

	if c.analyzer != nil && len(articles) > 0 {
		results, failures := c.analyzer.AnalyzeBatch(ctx, articles)
		for i, res := range results {
			if res != nil {
				articles[i].Sentiment = res.Sentiment
			}
		}
		for _, f := range failures {
			slog.Warn("article analysis failed, keeping neutral sentiment", "article_id", f.ArticleID, "error", f.Message)
		}
	}

	if c.store != nil && len(articles) > 0 {
		if _, err := c.store.UpsertArticles(articles); err != nil {
			return nil, fmt.Errorf("persist batch: %w", err)
		}
	}

	c.cache.SetEntry(ctx, key, articles, cache.TTLArticleList)
	return articles, nil
}

func decodeArticles(entry cache.Entry) ([]model.Article, error) {
	var articles []model.Article
	if err := json.Unmarshal(entry.Payload, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}
