package model

import "time"

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Article is one normalized news item. URL is the durable identity used
// for dedup and upsert; ID is a per-run cache/display key.
type Article struct {
	ID          string
	Title       string
	Content     string
	URL         string
	PublishedAt time.Time
	Source      string
	Category    string
	Symbols     []string
	Sentiment   Sentiment
	RawData     []byte
}

type Sentiment struct {
	Score      float64 `json:"score" validate:"gte=-1,lte=1"`
	Label      string  `json:"label" validate:"required,oneof=positive negative neutral"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// NeutralSentiment is the placeholder every article carries until the
// analysis stage overwrites it.
func NeutralSentiment() Sentiment {
	return Sentiment{Score: 0, Label: SentimentNeutral, Confidence: 0}
}

type StoredArticle struct {
	Article
	CreatedAt time.Time
	UpdatedAt time.Time
}
