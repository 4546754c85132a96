package normalize

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fjkiani/CB-news/internal/cache"
	"github.com/fjkiani/CB-news/internal/model"
	"github.com/fjkiani/CB-news/pkg/news"
)

const recentURLCap = 1000

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FreshnessStore is the slice of the cache the normalizer needs for
// its cross-cycle records.
type FreshnessStore interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, payload string, ttl time.Duration) bool
	Delete(ctx context.Context, key string)
}

// Normalizer turns raw upstream items into canonical articles and keeps
// the cross-cycle freshness records (capped recent-URL list, newest
// processed timestamp) in the cache.
type Normalizer struct {
	cache  FreshnessStore
	maxAge time.Duration
	now    func() time.Time
}

func New(c FreshnessStore, maxAge time.Duration) *Normalizer {
	return &Normalizer{cache: c, maxAge: maxAge, now: time.Now}
}

// Normalize processes a batch in source order and returns articles
// sorted newest first. The sort is stable: equal timestamps keep their
// original relative order. When force is set the recent-URL history is
// cleared first so previously skipped items can reappear.
func (n *Normalizer) Normalize(ctx context.Context, items []news.RawItem, force bool) []model.Article {
	now := n.now()

	if force {
		n.cache.Delete(ctx, cache.KeyProcessedURLs)
	}
	recent := n.loadRecentURLs(ctx)

	// First pass: the newest valid timestamp anywhere in the batch is
	// the substitute for items with no parseable date of their own.
	fallback := time.Time{}
	for _, item := range items {
		if ts, ok := n.resolveItemTime(item, now); ok && ts.After(fallback) {
			fallback = ts
		}
	}
	if fallback.IsZero() {
		fallback = now
	}

	seen := make(map[string]bool, len(items))
	var articles []model.Article
	var skippedBatch, skippedSeen, skippedOld int

	for _, item := range items {
		url := item.URL
		if url == "" {
			url = placeholderURL(item.Title)
			slog.Warn("item has no url, synthesized placeholder", "source", item.Source, "title", item.Title, "url", url)
		}

		if seen[url] {
			skippedBatch++
			continue
		}
		seen[url] = true

		if recent[url] {
			skippedSeen++
			continue
		}

		ts, ok := n.resolveItemTime(item, now)
		if !ok {
			ts = fallback
		}

		if n.maxAge > 0 && now.Sub(ts) > n.maxAge {
			skippedOld++
			continue
		}

		raw, _ := json.Marshal(item)
		articles = append(articles, model.Article{
			ID:          uuid.NewString(),
			Title:       item.Title,
			Content:     item.Text,
			URL:         url,
			PublishedAt: ts,
			Source:      item.Source,
			Category:    item.Category,
			Symbols:     item.Symbols,
			Sentiment:   model.NeutralSentiment(),
			RawData:     raw,
		})
	}

	n.recordProcessed(ctx, articles)

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})

	slog.Info("batch normalized",
		"items", len(items),
		"emitted", len(articles),
		"skipped_batch_dup", skippedBatch,
		"skipped_already_seen", skippedSeen,
		"skipped_too_old", skippedOld,
	)

	return articles
}

// resolveItemTime tries the item's date fields in preference order:
// pre-parsed epoch, then primary date string, then estimated date.
// Future-dated and unparseable values are rejected.
func (n *Normalizer) resolveItemTime(item news.RawItem, now time.Time) (time.Time, bool) {
	if valid(item.PublishedAt, now) {
		return item.PublishedAt, true
	}
	for _, raw := range []string{item.Date, item.EstimatedDate} {
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, raw); err == nil && valid(ts, now) {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func valid(ts, now time.Time) bool {
	return !ts.IsZero() && !ts.After(now)
}

func (n *Normalizer) loadRecentURLs(ctx context.Context) map[string]bool {
	recent := make(map[string]bool)
	raw, ok := n.cache.Get(ctx, cache.KeyProcessedURLs)
	if !ok {
		return recent
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		slog.Error("processed-url record corrupt, ignoring", "error", err)
		return recent
	}
	for _, u := range urls {
		recent[u] = true
	}
	return recent
}

// recordProcessed appends the emitted URLs to the capped recent list
// and advances the last-processed timestamp to the newest emitted one.
func (n *Normalizer) recordProcessed(ctx context.Context, articles []model.Article) {
	if len(articles) == 0 {
		return
	}

	var urls []string
	if raw, ok := n.cache.Get(ctx, cache.KeyProcessedURLs); ok {
		if err := json.Unmarshal([]byte(raw), &urls); err != nil {
			urls = nil
		}
	}

	newest := time.Time{}
	for _, a := range articles {
		urls = append(urls, a.URL)
		if a.PublishedAt.After(newest) {
			newest = a.PublishedAt
		}
	}
	if len(urls) > recentURLCap {
		urls = urls[len(urls)-recentURLCap:]
	}

	if encoded, err := json.Marshal(urls); err == nil {
		n.cache.Set(ctx, cache.KeyProcessedURLs, string(encoded), cache.TTLProcessedURLs)
	}
	n.cache.Set(ctx, cache.KeyLastTimestamp, newest.Format(time.RFC3339), cache.TTLLastTimestamp)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// placeholderURL synthesizes a stable stand-in for items the upstream
// returned without a link, so dedup and upsert still have an identity.
func placeholderURL(title string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = uuid.NewString()
	}
	return "https://cb-news.local/articles/" + slug
}
