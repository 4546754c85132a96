package news

import (
	"context"

	"github.com/mmcdole/gofeed"
)

// RSSClient reads a single feed. Feed items already carry parsed
// timestamps when the feed declares them.
type RSSClient struct {
	name    string
	feedURL string
	parser  *gofeed.Parser
}

func NewRSSClient(name, feedURL string) *RSSClient {
	return &RSSClient{
		name:    name,
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
	}
}

func (c *RSSClient) Name() string {
	return c.name
}

func (c *RSSClient) Fetch(ctx context.Context) ([]RawItem, error) {
	feed, err := c.parser.ParseURLWithContext(c.feedURL, ctx)
	if err != nil {
		return nil, &FetchError{Source: c.name, Reason: "parse feed", Err: err}
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := RawItem{
			Title:  it.Title,
			Text:   it.Description,
			URL:    it.Link,
			Date:   it.Published,
			Source: c.name,
		}
		if it.Content != "" {
			item.Text = it.Content
		}
		if it.PublishedParsed != nil {
			item.PublishedAt = *it.PublishedParsed
		}
		if len(it.Categories) > 0 {
			item.Category = it.Categories[0]
		}
		items = append(items, item)
	}

	return items, nil
}
