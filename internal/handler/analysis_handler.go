package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fjkiani/CB-news/internal/analysis"
	"github.com/fjkiani/CB-news/internal/model"
)

const timeoutMessage = "The request took too long to process"

type AnalysisService interface {
	Analyze(ctx context.Context, content string) (model.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, articles []model.Article) ([]*model.AnalysisResult, []analysis.ArticleError)
	ClearCache(ctx context.Context) int
}

type AnalysisHandler struct {
	service AnalysisService
}

func NewAnalysisHandler(service AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

func (h *AnalysisHandler) MarketImpact(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing required field",
			"message": "Request body must include a non-empty content field",
		})
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), req.Content)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAnalysisResponse(result))
}

func (h *AnalysisHandler) BatchMarketImpact(c *gin.Context) {
	var req BatchAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Articles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing required field",
			"message": "Request body must include a non-empty articles array",
		})
		return
	}

	articles := make([]model.Article, len(req.Articles))
	for i, a := range req.Articles {
		articles[i] = model.Article{ID: a.ID, Content: a.Content}
	}

	results, failures := h.service.AnalyzeBatch(c.Request.Context(), articles)

	res := BatchAnalysisResponse{
		Results: make([]*AnalysisResponse, len(results)),
		Errors:  []BatchErrorDetail{},
	}
	for i, r := range results {
		if r != nil {
			res.Results[i] = toAnalysisResponse(*r)
		}
	}
	for _, f := range failures {
		res.Errors = append(res.Errors, BatchErrorDetail{ArticleID: f.ArticleID, Message: f.Message})
	}

	c.JSON(http.StatusOK, res)
}

func (h *AnalysisHandler) ClearCache(c *gin.Context) {
	deleted := h.service.ClearCache(c.Request.Context())
	slog.Info("analysis cache cleared", "deleted", deleted)
	c.JSON(http.StatusOK, gin.H{"cleared": deleted})
}

// writeAnalysisError maps the analysis error taxonomy to response
// codes: 504 for blown time budgets, 429 when the upstream rate limit
// is what exhausted the retries, 500 otherwise.
func writeAnalysisError(c *gin.Context, err error) {
	if errors.Is(err, analysis.ErrTimeout) {
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":    "Request timeout",
			"message":  timeoutMessage,
			"guidance": "Retry requesting cached results; previously analyzed content is served from cache",
		})
		return
	}

	var upstream *analysis.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode == http.StatusTooManyRequests {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Rate limited",
			"message": "The analysis provider is rate limiting requests, retry shortly",
		})
		return
	}

	slog.Error("analysis failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Analysis failed",
		"message": err.Error(),
	})
}
