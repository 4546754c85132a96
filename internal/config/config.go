package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const sourcesConfigEnv = "SOURCES_CONFIG"

// Config holds every tunable the pipeline reads. Values come from the
// environment; the scrape-source list can additionally come from a YAML
// file pointed at by SOURCES_CONFIG.
type Config struct {
	ServerPort  string
	FrontendURL string

	DatabaseURL string
	RedisURL    string

	DiffbotToken  string
	FinnhubAPIKey string

	OpenAIAPIKey     string
	AnthropicAPIKey  string
	AnalysisProvider string

	AnalysisTimeout  time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	FetchDelay       time.Duration
	MaxArticleAge    time.Duration
	ForceRefreshWait time.Duration

	Sources []Source
}

// Source describes one scrape target.
type Source struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // diffbot, finnhub, rss
	URL  string `yaml:"url"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		DiffbotToken:  getEnv("DIFFBOT_TOKEN", ""),
		FinnhubAPIKey: getEnv("FINNHUB_API_KEY", ""),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnalysisProvider: getEnv("ANALYSIS_PROVIDER", "openai"),

		AnalysisTimeout:  getEnvAsDuration("ANALYSIS_TIMEOUT", 120*time.Second),
		RetryMaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvAsDuration("RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:    getEnvAsDuration("RETRY_MAX_DELAY", 30*time.Second),

		FetchDelay:       getEnvAsDuration("FETCH_DELAY", time.Second),
		MaxArticleAge:    getEnvAsDuration("MAX_ARTICLE_AGE", 7*24*time.Hour),
		ForceRefreshWait: getEnvAsDuration("FORCE_REFRESH_WAIT", 2*time.Second),
	}

	if path := os.Getenv(sourcesConfigEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sources config %s: %w", path, err)
		}
		var file sourcesFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse sources config %s: %w", path, err)
		}
		cfg.Sources = file.Sources
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultSources()
	}

	return cfg, nil
}

func defaultSources() []Source {
	return []Source{
		{Name: "finnhub", Kind: "finnhub"},
		{Name: "cnbc", Kind: "diffbot", URL: "https://www.cnbc.com/finance/"},
		{Name: "marketwatch", Kind: "rss", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
