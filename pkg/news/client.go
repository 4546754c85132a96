package news

import (
	"context"
	"fmt"
	"time"
)

// RawItem is one item as the upstream returned it. No field is
// guaranteed: title, dates, and body must each tolerate being absent.
type RawItem struct {
	Title         string
	Text          string
	URL           string
	Date          string    // upstream's primary date field, unparsed
	EstimatedDate string    // upstream's secondary date field, unparsed
	PublishedAt   time.Time // set when upstream gives an epoch directly
	Source        string
	Category      string
	Symbols       []string
}

type Source interface {
	Fetch(ctx context.Context) ([]RawItem, error)
	Name() string
}

// FetchError marks the upstream content API as unreachable or its
// payload as malformed. No partial results accompany it.
type FetchError struct {
	Source string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s fetch: %s", e.Source, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }
