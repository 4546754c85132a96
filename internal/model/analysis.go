package model

const (
	AnalysisSourceLLM  = "llm"
	AnalysisSourceRule = "rule-based"
)

// AnalysisResult is the market-impact enrichment for one article. Every
// populated field must satisfy the validate tags; a violation anywhere
// rejects the whole result, never a partial acceptance.
type AnalysisResult struct {
	Sentiment      Sentiment      `json:"sentiment" validate:"required"`
	MarketAnalysis MarketAnalysis `json:"marketAnalysis" validate:"required"`
	Confidence     float64        `json:"confidence" validate:"gte=0,lte=1"`
	Source         string         `json:"source" validate:"required,oneof=llm rule-based"`
}

type MarketAnalysis struct {
	Overview      string   `json:"overview" validate:"required"`
	Catalysts     []string `json:"catalysts" validate:"required"`
	SectorImpacts []string `json:"sectorImpacts" validate:"required"`
	ShortTerm     string   `json:"shortTerm" validate:"required"`
	LongTerm      string   `json:"longTerm" validate:"required"`
}
