package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fjkiani/CB-news/internal/model"
)

// One validator instance checks every response shape; the schema itself
// lives in the model's validate tags.
var validate = validator.New()

// parseResult turns raw model output into a validated AnalysisResult.
// JSON failures become ParseError, schema violations ValidationError;
// either rejects the whole result.
func parseResult(content string) (model.AnalysisResult, error) {
	cleaned := cleanJSONResponse(content)

	var wire wireResult
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return model.AnalysisResult{}, &ParseError{Content: cleaned, Err: err}
	}

	result := model.AnalysisResult{
		Sentiment: model.Sentiment{
			Score:      wire.Sentiment.Score,
			Label:      strings.ToLower(strings.TrimSpace(wire.Sentiment.Label)),
			Confidence: wire.Sentiment.Confidence,
		},
		MarketAnalysis: model.MarketAnalysis{
			Overview:      wire.MarketAnalysis.Overview,
			Catalysts:     wire.MarketAnalysis.Catalysts,
			SectorImpacts: sectorStrings(wire.MarketAnalysis.SectorImpacts),
			ShortTerm:     wire.MarketAnalysis.ShortTerm,
			LongTerm:      wire.MarketAnalysis.LongTerm,
		},
		Confidence: wire.Confidence,
		Source:     model.AnalysisSourceLLM,
	}

	if err := validate.Struct(result); err != nil {
		return model.AnalysisResult{}, &ValidationError{Err: err}
	}

	return result, nil
}

type wireResult struct {
	Sentiment struct {
		Score      float64 `json:"score"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"sentiment"`
	MarketAnalysis struct {
		Overview      string         `json:"overview"`
		Catalysts     []string       `json:"catalysts"`
		SectorImpacts []sectorImpact `json:"sectorImpacts"`
		ShortTerm     string         `json:"shortTerm"`
		LongTerm      string         `json:"longTerm"`
	} `json:"marketAnalysis"`
	Confidence float64 `json:"confidence"`
}

// sectorImpact accepts either a display string or the structured
// {sector, impact} object some model responses use, coercing the
// latter to a display string.
type sectorImpact string

func (s *sectorImpact) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*s = sectorImpact(plain)
		return nil
	}

	var structured struct {
		Sector string `json:"sector"`
		Impact string `json:"impact"`
	}
	if err := json.Unmarshal(data, &structured); err != nil {
		return err
	}
	*s = sectorImpact(fmt.Sprintf("%s: %s", structured.Sector, structured.Impact))
	return nil
}

func sectorStrings(impacts []sectorImpact) []string {
	if impacts == nil {
		return nil
	}
	out := make([]string, len(impacts))
	for i, s := range impacts {
		out[i] = string(s)
	}
	return out
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
