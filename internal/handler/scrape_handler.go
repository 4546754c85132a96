package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fjkiani/CB-news/internal/model"
	"github.com/fjkiani/CB-news/internal/pipeline"
	"github.com/fjkiani/CB-news/pkg/news"
)

// BackgroundRefreshHeader signals that the response came from cache and
// a refresh continues behind it.
const BackgroundRefreshHeader = "X-Background-Refresh"

type Scraper interface {
	Scrape(ctx context.Context, source string, force bool) (pipeline.Result, error)
}

type ArticleStore interface {
	GetRecentArticles(limit int) ([]model.StoredArticle, int, error)
}

type ScrapeHandler struct {
	scraper Scraper
	store   ArticleStore
}

func NewScrapeHandler(scraper Scraper, store ArticleStore) *ScrapeHandler {
	return &ScrapeHandler{scraper: scraper, store: store}
}

func (h *ScrapeHandler) Scrape(c *gin.Context) {
	source := c.Param("source")
	force := c.Query("fresh") == "true"

	result, err := h.scraper.Scrape(c.Request.Context(), source, force)
	if err != nil {
		var fetchErr *news.FetchError
		if errors.As(err, &fetchErr) {
			slog.Error("scrape failed with no cache to fall back on", "source", source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Fetch failed",
				"message": "The news source could not be reached and no cached data is available",
			})
			return
		}
		slog.Error("scrape failed", "source", source, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Scrape failed",
			"message": err.Error(),
		})
		return
	}

	if result.Background {
		c.Header(BackgroundRefreshHeader, "true")
	}

	articles := make([]ArticleResponse, 0, len(result.Articles))
	for _, a := range result.Articles {
		articles = append(articles, toArticleResponse(a))
	}

	c.JSON(http.StatusOK, ScrapeResponse{
		Articles: articles,
		Count:    len(articles),
		Status:   result.Status,
	})
}

func (h *ScrapeHandler) GetRecentArticles(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Persistence not configured",
			"message": "No database is connected, stored articles are unavailable",
		})
		return
	}

	limit := getQueryLimit(c)

	stored, total, err := h.store.GetRecentArticles(limit)
	if err != nil {
		slog.Error("error fetching recent articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "message": "Could not load articles"})
		return
	}

	articles := make([]ArticleResponse, 0, len(stored))
	for _, a := range stored {
		articles = append(articles, toArticleResponse(a.Article))
	}

	c.JSON(http.StatusOK, RecentArticlesResponse{
		Articles: articles,
		Total:    total,
		Limit:    limit,
	})
}

func (h *ScrapeHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func getQueryLimit(c *gin.Context) int {
	const (
		defaultLimit = 20
		maxLimit     = 100
	)

	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		slog.Warn("invalid limit, using default", "value", raw)
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
