package handler

import (
	"time"

	"github.com/fjkiani/CB-news/internal/model"
)

type SentimentResponse struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type ArticleResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	URL         string            `json:"url"`
	PublishedAt string            `json:"published_at"`
	Source      string            `json:"source"`
	Category    string            `json:"category"`
	Symbols     []string          `json:"symbols"`
	Sentiment   SentimentResponse `json:"sentiment"`
}

type ScrapeResponse struct {
	Articles []ArticleResponse `json:"articles"`
	Count    int               `json:"count"`
	Status   string            `json:"status"`
}

type RecentArticlesResponse struct {
	Articles []ArticleResponse `json:"articles"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
}

type MarketAnalysisResponse struct {
	Overview      string   `json:"overview"`
	Catalysts     []string `json:"catalysts"`
	SectorImpacts []string `json:"sectorImpacts"`
	ShortTerm     string   `json:"shortTerm"`
	LongTerm      string   `json:"longTerm"`
}

type AnalysisResponse struct {
	Sentiment      SentimentResponse      `json:"sentiment"`
	MarketAnalysis MarketAnalysisResponse `json:"marketAnalysis"`
	Confidence     float64                `json:"confidence"`
	Source         string                 `json:"source"`
}

type BatchArticleRequest struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type BatchAnalysisRequest struct {
	Articles []BatchArticleRequest `json:"articles"`
}

type BatchAnalysisResponse struct {
	Results []*AnalysisResponse `json:"results"`
	Errors  []BatchErrorDetail  `json:"errors"`
}

type BatchErrorDetail struct {
	ArticleID string `json:"articleId"`
	Message   string `json:"message"`
}

func toArticleResponse(a model.Article) ArticleResponse {
	return ArticleResponse{
		ID:          a.ID,
		Title:       a.Title,
		Content:     a.Content,
		URL:         a.URL,
		PublishedAt: a.PublishedAt.Format(time.RFC3339),
		Source:      a.Source,
		Category:    a.Category,
		Symbols:     a.Symbols,
		Sentiment: SentimentResponse{
			Score:      a.Sentiment.Score,
			Label:      a.Sentiment.Label,
			Confidence: a.Sentiment.Confidence,
		},
	}
}

func toAnalysisResponse(r model.AnalysisResult) *AnalysisResponse {
	return &AnalysisResponse{
		Sentiment: SentimentResponse{
			Score:      r.Sentiment.Score,
			Label:      r.Sentiment.Label,
			Confidence: r.Sentiment.Confidence,
		},
		MarketAnalysis: MarketAnalysisResponse{
			Overview:      r.MarketAnalysis.Overview,
			Catalysts:     r.MarketAnalysis.Catalysts,
			SectorImpacts: r.MarketAnalysis.SectorImpacts,
			ShortTerm:     r.MarketAnalysis.ShortTerm,
			LongTerm:      r.MarketAnalysis.LongTerm,
		},
		Confidence: r.Confidence,
		Source:     r.Source,
	}
}
