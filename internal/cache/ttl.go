package cache

import "time"

// TTLs per data class. Article lists turn over quickly; analysis is
// expensive to recompute and its inputs rarely change within the hour.
const (
	TTLArticleList = 5 * time.Minute
	TTLAnalysis    = time.Hour

	// Bookkeeping records used only to decide what counts as "new" in
	// a scrape cycle, not a correctness-critical ledger.
	TTLProcessedURLs = 24 * time.Hour
	TTLLastTimestamp = 24 * time.Hour
)

// Key prefixes, one namespace per concern so DeletePattern can clear a
// concern wholesale.
const (
	KeyPrefixArticles = "cbnews:articles:"
	KeyPrefixAnalysis = "cbnews:analysis:"
	KeyProcessedURLs  = "cbnews:processed_urls"
	KeyLastTimestamp  = "cbnews:last_processed_ts"
)
