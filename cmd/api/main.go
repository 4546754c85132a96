package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/fjkiani/CB-news/internal/analysis"
	"github.com/fjkiani/CB-news/internal/cache"
	"github.com/fjkiani/CB-news/internal/config"
	"github.com/fjkiani/CB-news/internal/handler"
	"github.com/fjkiani/CB-news/internal/normalize"
	"github.com/fjkiani/CB-news/internal/pipeline"
	"github.com/fjkiani/CB-news/internal/repository"
	"github.com/fjkiani/CB-news/pkg/news"
)

func main() {
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

	var articleRepo *repository.ArticleRepository
	if cfg.DatabaseURL != "" {
		db, err := repository.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("error connecting to DB: %v", err)
		}
		defer db.Close()
		articleRepo = repository.NewArticleRepository(db)
	} else {
		slog.Warn("DATABASE_URL not set, articles will not be persisted")
	}

	analyzer := analysis.NewService(
		store,
		buildProvider(cfg),
		analysis.DefaultRetryPolicy(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		cfg.AnalysisTimeout,
	)

	normalizer := normalize.New(store, cfg.MaxArticleAge)
	sources := buildSources(cfg)

	var pipelineStore pipeline.Store
	var articleStore handler.ArticleStore
	if articleRepo != nil {
		pipelineStore = articleRepo
		articleStore = articleRepo
	}
	coordinator := pipeline.NewCoordinator(store, sources, normalizer, analyzer, pipelineStore, cfg.ForceRefreshWait)

	scrapeHandler := handler.NewScrapeHandler(coordinator, articleStore)
	analysisHandler := handler.NewAnalysisHandler(analyzer)

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}
	if cfg.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.FrontendURL)
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{handler.BackgroundRefreshHeader},
	}))

	r.GET("/scrape/:source", scrapeHandler.Scrape)
	r.GET("/articles", scrapeHandler.GetRecentArticles)
	r.POST("/analysis/market-impact", analysisHandler.MarketImpact)
	r.POST("/analysis/batch-market-impact", analysisHandler.BatchMarketImpact)
	r.POST("/analysis/clear-cache", analysisHandler.ClearCache)
	r.GET("/health", scrapeHandler.GetHealth)

	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}

func buildProvider(cfg *config.Config) analysis.Provider {
	switch cfg.AnalysisProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey != "" {
			return analysis.NewAnthropicProvider(cfg.AnthropicAPIKey)
		}
	default:
		if cfg.OpenAIAPIKey != "" {
			return analysis.NewOpenAIProvider(cfg.OpenAIAPIKey)
		}
	}
	slog.Warn("no analysis API key configured, using rule-based analysis only")
	return nil
}

func buildSources(cfg *config.Config) map[string]news.Source {
	sources := make(map[string]news.Source)
	for _, src := range cfg.Sources {
		switch src.Kind {
		case "diffbot":
			if cfg.DiffbotToken == "" {
				slog.Warn("skipping diffbot source, DIFFBOT_TOKEN not set", "source", src.Name)
				continue
			}
			sources[src.Name] = news.NewDiffbotClient(cfg.DiffbotToken, src.Name, src.URL, cfg.FetchDelay)
		case "finnhub":
			if cfg.FinnhubAPIKey == "" {
				slog.Warn("skipping finnhub source, FINNHUB_API_KEY not set", "source", src.Name)
				continue
			}
			sources[src.Name] = news.NewFinnhubClient(cfg.FinnhubAPIKey)
		case "rss":
			sources[src.Name] = news.NewRSSClient(src.Name, src.URL)
		default:
			slog.Warn("unknown source kind, skipping", "source", src.Name, "kind", src.Kind)
		}
	}
	return sources
}
