package analysis

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fjkiani/CB-news/internal/cache"
	"github.com/fjkiani/CB-news/internal/model"
)

const fingerprintLength = 100

// Fingerprint is the coarse coalescing/cache key: the first ~100
// characters of content, hex-encoded for key safety. Near-duplicate
// openings collide on purpose to save upstream calls.
func Fingerprint(content string) string {
	runes := []rune(content)
	if len(runes) > fingerprintLength {
		runes = runes[:fingerprintLength]
	}
	return hex.EncodeToString([]byte(string(runes)))
}

// Store is the slice of the cache the service needs.
type Store interface {
	GetEntry(ctx context.Context, key string) (cache.Entry, bool)
	SetEntry(ctx context.Context, key string, payload any, ttl time.Duration) bool
	DeletePattern(ctx context.Context, pattern string) int
}

// Service is the analysis client: fingerprint cache in front, a
// singleflight group so concurrent identical requests share one
// upstream call, retry with backoff behind, and a rule-based fallback
// when the model output fails validation.
type Service struct {
	cache    Store
	provider Provider
	fallback *RuleBasedAnalyzer
	retry    RetryPolicy
	timeout  time.Duration
	group    singleflight.Group
}

func NewService(c Store, provider Provider, retry RetryPolicy, timeout time.Duration) *Service {
	return &Service{
		cache:    c,
		provider: provider,
		fallback: NewRuleBasedAnalyzer(),
		retry:    retry,
		timeout:  timeout,
	}
}

// Analyze returns the market-impact result for the given content,
// serving from cache when the fingerprint is fresh and joining any
// identical in-flight request instead of issuing a duplicate call.
func (s *Service) Analyze(ctx context.Context, content string) (model.AnalysisResult, error) {
	fp := Fingerprint(content)
	key := cache.KeyPrefixAnalysis + fp

	if cached, ok := s.lookupCached(ctx, key); ok {
		return cached, nil
	}

	// The flight entry is released when the shared call returns,
	// whatever its outcome.
	res, err, _ := s.group.Do(fp, func() (any, error) {
		return s.analyzeUpstream(ctx, key, content)
	})
	if err != nil {
		return model.AnalysisResult{}, err
	}

	return res.(model.AnalysisResult), nil
}

func (s *Service) analyzeUpstream(ctx context.Context, key, content string) (model.AnalysisResult, error) {
	if s.provider == nil {
		result := s.fallback.Analyze(content)
		s.store(ctx, key, result)
		return result, nil
	}

	// The budget is detached from the requester's context so a caller
	// that gives up does not cancel the call for coalesced sharers.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var result model.AnalysisResult
	err := s.retry.Do(callCtx, func(ctx context.Context) error {
		raw, err := s.provider.MarketImpact(ctx, content)
		if err != nil {
			return err
		}
		result, err = parseResult(raw)
		return err
	})

	if err != nil {
		var parseErr *ParseError
		var validationErr *ValidationError
		if errors.As(err, &parseErr) || errors.As(err, &validationErr) {
			slog.Warn("model output rejected, using rule-based fallback", "provider", s.provider.Name(), "error", err)
			result := s.fallback.Analyze(content)
			s.store(ctx, key, result)
			return result, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return model.AnalysisResult{}, ErrTimeout
		}
		return model.AnalysisResult{}, err
	}

	s.store(ctx, key, result)
	return result, nil
}

// ArticleError pairs one article of a batch with its own failure.
type ArticleError struct {
	ArticleID string `json:"articleId"`
	Message   string `json:"message"`
}

// AnalyzeBatch runs per-article analysis concurrently, best effort per
// item: one article's failure never aborts its siblings. The results
// slice aligns with the input; failed slots stay nil.
func (s *Service) AnalyzeBatch(ctx context.Context, articles []model.Article) ([]*model.AnalysisResult, []ArticleError) {
	results := make([]*model.AnalysisResult, len(articles))
	errs := make([]ArticleError, len(articles))

	done := make(chan int, len(articles))
	for i := range articles {
		go func(i int) {
			defer func() { done <- i }()
			res, err := s.Analyze(ctx, articles[i].Content)
			if err != nil {
				errs[i] = ArticleError{ArticleID: articles[i].ID, Message: err.Error()}
				return
			}
			results[i] = &res
		}(i)
	}
	for range articles {
		<-done
	}

	var failed []ArticleError
	for _, e := range errs {
		if e.Message != "" {
			failed = append(failed, e)
		}
	}
	return results, failed
}

func (s *Service) lookupCached(ctx context.Context, key string) (model.AnalysisResult, bool) {
	entry, ok := s.cache.GetEntry(ctx, key)
	if !ok || entry.StaleAfter(cache.TTLAnalysis) {
		return model.AnalysisResult{}, false
	}
	var result model.AnalysisResult
	if err := json.Unmarshal(entry.Payload, &result); err != nil {
		return model.AnalysisResult{}, false
	}
	return result, true
}

// store caches a result that already passed validation; nothing
// schema-violating can reach the cache through here.
func (s *Service) store(ctx context.Context, key string, result model.AnalysisResult) {
	s.cache.SetEntry(ctx, key, result, cache.TTLAnalysis)
}

// ClearCache drops every cached analysis result.
func (s *Service) ClearCache(ctx context.Context) int {
	return s.cache.DeletePattern(ctx, cache.KeyPrefixAnalysis+"*")
}
