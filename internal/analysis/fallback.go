package analysis

import (
	"fmt"
	"strings"

	"github.com/fjkiani/CB-news/internal/model"
)

// ruleConfidence is deliberately lower than anything the LLM path
// reports so consumers can rank the two sources.
const ruleConfidence = 0.35

var positiveWords = []string{
	"beat", "beats", "surge", "rally", "gain", "gains", "growth",
	"upgrade", "record", "strong", "profit", "bullish", "rose",
	"outperform", "exceed", "expansion", "recovery",
}

var negativeWords = []string{
	"miss", "misses", "drop", "fall", "falls", "decline", "loss",
	"losses", "downgrade", "weak", "bearish", "fell", "cut", "layoff",
	"layoffs", "recession", "default", "bankruptcy", "lawsuit",
}

var sectorKeywords = map[string][]string{
	"Technology": {"software", "chip", "semiconductor", "cloud", "ai ", "tech"},
	"Financials": {"bank", "lender", "insurance", "credit", "mortgage"},
	"Energy":     {"oil", "gas", "crude", "opec", "energy", "renewable"},
	"Healthcare": {"drug", "pharma", "fda", "vaccine", "biotech", "clinical"},
	"Consumer":   {"retail", "consumer", "sales", "e-commerce", "brand"},
	"Industrial": {"manufactur", "factory", "aerospace", "shipping", "supply chain"},
}

var catalystKeywords = []string{
	"earnings", "guidance", "dividend", "buyback", "merger",
	"acquisition", "ipo", "rate", "inflation", "tariff", "regulation",
}

// RuleBasedAnalyzer scores content against fixed word lists. It makes
// no upstream call and conforms to the same schema as the LLM path,
// tagged with a distinct source.
type RuleBasedAnalyzer struct{}

func NewRuleBasedAnalyzer() *RuleBasedAnalyzer {
	return &RuleBasedAnalyzer{}
}

func (a *RuleBasedAnalyzer) Analyze(content string) model.AnalysisResult {
	lower := strings.ToLower(content)

	pos := countMatches(lower, positiveWords)
	neg := countMatches(lower, negativeWords)

	score := 0.0
	label := model.SentimentNeutral
	if pos+neg > 0 {
		score = float64(pos-neg) / float64(pos+neg)
	}
	switch {
	case score > 0.2:
		label = model.SentimentPositive
	case score < -0.2:
		label = model.SentimentNegative
	}

	var sectors []string
	for sector, words := range sectorKeywords {
		if countMatches(lower, words) > 0 {
			sectors = append(sectors, fmt.Sprintf("%s: %s signal from keyword match", sector, label))
		}
	}
	if len(sectors) == 0 {
		sectors = []string{"Broad market: no sector-specific signal detected"}
	}

	var catalysts []string
	for _, word := range catalystKeywords {
		if strings.Contains(lower, word) {
			catalysts = append(catalysts, word)
		}
	}
	if catalysts == nil {
		catalysts = []string{}
	}

	return model.AnalysisResult{
		Sentiment: model.Sentiment{
			Score:      score,
			Label:      label,
			Confidence: ruleConfidence,
		},
		MarketAnalysis: model.MarketAnalysis{
			Overview:      fmt.Sprintf("Keyword screen suggests %s sentiment (%d positive, %d negative terms).", label, pos, neg),
			Catalysts:     catalysts,
			SectorImpacts: sectors,
			ShortTerm:     "Keyword-derived signal only; treat as low-fidelity direction.",
			LongTerm:      "No long-horizon view available from keyword matching.",
		},
		Confidence: ruleConfidence,
		Source:     model.AnalysisSourceRule,
	}
}

func countMatches(text string, words []string) int {
	count := 0
	for _, w := range words {
		count += strings.Count(text, w)
	}
	return count
}
