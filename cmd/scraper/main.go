package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/fjkiani/CB-news/internal/analysis"
	"github.com/fjkiani/CB-news/internal/cache"
	"github.com/fjkiani/CB-news/internal/config"
	"github.com/fjkiani/CB-news/internal/normalize"
	"github.com/fjkiani/CB-news/internal/pipeline"
	"github.com/fjkiani/CB-news/internal/repository"
	"github.com/fjkiani/CB-news/pkg/news"
)

// One-shot scrape cycle across every configured source, meant to run
// from cron. Per-source failures are logged and do not stop the rest.
func main() {
	fresh := flag.Bool("fresh", false, "clear the recent-URL history and force a fresh cycle")
	flag.Parse()

	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	store, err := cache.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("error connecting to Redis: %v", err)
	}
	defer store.Close()

	db, err := repository.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	articleRepo := repository.NewArticleRepository(db)

	var provider analysis.Provider
	switch cfg.AnalysisProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey != "" {
			provider = analysis.NewAnthropicProvider(cfg.AnthropicAPIKey)
		}
	default:
		if cfg.OpenAIAPIKey != "" {
			provider = analysis.NewOpenAIProvider(cfg.OpenAIAPIKey)
		}
	}

	analyzer := analysis.NewService(
		store,
		provider,
		analysis.DefaultRetryPolicy(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		cfg.AnalysisTimeout,
	)

	normalizer := normalize.New(store, cfg.MaxArticleAge)

	sources := make(map[string]news.Source)
	for _, src := range cfg.Sources {
		switch src.Kind {
		case "diffbot":
			if cfg.DiffbotToken != "" {
				sources[src.Name] = news.NewDiffbotClient(cfg.DiffbotToken, src.Name, src.URL, cfg.FetchDelay)
			}
		case "finnhub":
			if cfg.FinnhubAPIKey != "" {
				sources[src.Name] = news.NewFinnhubClient(cfg.FinnhubAPIKey)
			}
		case "rss":
			sources[src.Name] = news.NewRSSClient(src.Name, src.URL)
		}
	}

	if len(sources) == 0 {
		slog.Error("no scrape sources configured")
		return
	}

	coordinator := pipeline.NewCoordinator(store, sources, normalizer, analyzer, articleRepo, cfg.ForceRefreshWait)

	ctx := context.Background()
	for name := range sources {
		articles, err := coordinator.RefreshNow(ctx, name, *fresh)
		if err != nil {
			slog.Error("scrape cycle failed", "source", name, "error", err)
			continue
		}
		slog.Info("scrape cycle complete", "source", name, "articles", len(articles))
	}
}
