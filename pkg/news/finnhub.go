package news

import (
	"context"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

// FinnhubClient pulls general market news from the Finnhub search API.
type FinnhubClient struct {
	client *finnhub.DefaultApiService
}

func NewFinnhubClient(apiKey string) *FinnhubClient {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	client := finnhub.NewAPIClient(cfg).DefaultApi
	return &FinnhubClient{client: client}
}

func (c *FinnhubClient) Name() string {
	return "finnhub"
}

func (c *FinnhubClient) Fetch(ctx context.Context) ([]RawItem, error) {
	res, _, err := c.client.MarketNews(ctx).Category("general").Execute()
	if err != nil {
		return nil, &FetchError{Source: c.Name(), Reason: "market news request failed", Err: err}
	}

	items := make([]RawItem, 0, len(res))
	for _, n := range res {
		item := RawItem{Source: c.Name()}

		if n.Headline != nil {
			item.Title = *n.Headline
		}
		if n.Summary != nil {
			item.Text = *n.Summary
		}
		if n.Url != nil {
			item.URL = *n.Url
		}
		if n.Datetime != nil {
			item.PublishedAt = time.Unix(*n.Datetime, 0)
		}
		if n.Category != nil {
			item.Category = *n.Category
		}
		if n.Related != nil && *n.Related != "" {
			item.Symbols = strings.Split(*n.Related, ",")
		}

		items = append(items, item)
	}

	return items, nil
}
