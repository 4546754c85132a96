package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const diffbotBaseURL = "https://api.diffbot.com/v3/analyze"

// DiffbotClient scrapes one rendered listing page through the Diffbot
// analyze API, then fills in article bodies item by item. A fixed
// inter-request delay paces the per-item calls.
type DiffbotClient struct {
	token      string
	targetURL  string
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewDiffbotClient(token, name, targetURL string, fetchDelay time.Duration) *DiffbotClient {
	return &DiffbotClient{
		token:      token,
		targetURL:  targetURL,
		name:       name,
		baseURL:    diffbotBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(fetchDelay), 1),
	}
}

func (c *DiffbotClient) Name() string {
	return c.name
}

func (c *DiffbotClient) Fetch(ctx context.Context) ([]RawItem, error) {
	obj, err := c.analyze(ctx, c.targetURL)
	if err != nil {
		return nil, err
	}

	if obj.Items == nil {
		return nil, &FetchError{Source: c.name, Reason: "response missing items array"}
	}

	items := make([]RawItem, 0, len(obj.Items))
	for _, it := range obj.Items {
		raw := RawItem{
			Title:         it.Title,
			Text:          textOf(it),
			URL:           it.Link,
			Date:          it.Date,
			EstimatedDate: it.EstimatedDate,
			Source:        c.name,
			Category:      it.Category,
		}

		// List items usually carry only a teaser. Pull the full body
		// when there is a link to follow; a miss here degrades to the
		// teaser, it never fails the batch.
		if raw.Text == "" && raw.URL != "" {
			if body := c.fetchBody(ctx, raw.URL); body != "" {
				raw.Text = body
			}
		}

		items = append(items, raw)
	}

	return items, nil
}

func (c *DiffbotClient) fetchBody(ctx context.Context, articleURL string) string {
	if err := c.limiter.Wait(ctx); err != nil {
		return ""
	}
	obj, err := c.analyze(ctx, articleURL)
	if err != nil {
		slog.Warn("diffbot article fetch failed, keeping teaser", "source", c.name, "url", articleURL, "error", err)
		return ""
	}
	return textOf(obj.diffbotItem)
}

func (c *DiffbotClient) analyze(ctx context.Context, target string) (*diffbotObject, error) {
	params := url.Values{}
	params.Set("token", c.token)
	params.Set("url", target)
	params.Set("discussion", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Source: c.name, Reason: "build request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Source: c.name, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Source: c.name, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var raw diffbotResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &FetchError{Source: c.name, Reason: "decode response", Err: err}
	}

	if len(raw.Objects) == 0 {
		return nil, &FetchError{Source: c.name, Reason: "response missing objects array"}
	}

	return &raw.Objects[0], nil
}

// textOf prefers the plain-text field and falls back to stripping the
// rendered HTML.
func textOf(it diffbotItem) string {
	if it.Text != "" {
		return it.Text
	}
	if it.HTML == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(it.HTML))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

type diffbotResponse struct {
	Objects []diffbotObject `json:"objects"`
}

type diffbotObject struct {
	diffbotItem
	Items []diffbotItem `json:"items"`
}

type diffbotItem struct {
	Title         string `json:"title"`
	Text          string `json:"text"`
	HTML          string `json:"html"`
	Link          string `json:"link"`
	Date          string `json:"date"`
	EstimatedDate string `json:"estimatedDate"`
	Category      string `json:"category"`
}
