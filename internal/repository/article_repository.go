package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/fjkiani/CB-news/internal/model"
)

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// UpsertArticles writes a batch keyed by URL with update-on-conflict
// semantics. The input is deduped first, last write for a URL wins, and
// the whole batch commits in one transaction.
func (r *ArticleRepository) UpsertArticles(articles []model.Article) ([]model.StoredArticle, error) {
	deduped := dedupeByURL(articles)
	if len(deduped) == 0 {
		return nil, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stored := make([]model.StoredArticle, 0, len(deduped))
	for _, a := range deduped {
		var s model.StoredArticle
		s.Article = a
		err := tx.QueryRow(`
			INSERT INTO articles(id, title, content, url, published_at, source, category, symbols,
				sentiment_score, sentiment_label, sentiment_confidence, raw_data)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (url) DO UPDATE SET
				title = EXCLUDED.title,
				content = EXCLUDED.content,
				published_at = EXCLUDED.published_at,
				source = EXCLUDED.source,
				category = EXCLUDED.category,
				symbols = EXCLUDED.symbols,
				sentiment_score = EXCLUDED.sentiment_score,
				sentiment_label = EXCLUDED.sentiment_label,
				sentiment_confidence = EXCLUDED.sentiment_confidence,
				raw_data = EXCLUDED.raw_data,
				updated_at = NOW()
			RETURNING id, created_at, updated_at
		`, a.ID, a.Title, a.Content, a.URL, a.PublishedAt, a.Source, a.Category, pq.Array(a.Symbols),
			a.Sentiment.Score, a.Sentiment.Label, a.Sentiment.Confidence, a.RawData,
		).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("upsert article %s: %w", a.URL, err)
		}
		stored = append(stored, s)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}

	return stored, nil
}

// GetRecentArticles returns the newest articles by publish timestamp
// together with the total row count.
func (r *ArticleRepository) GetRecentArticles(limit int) ([]model.StoredArticle, int, error) {
	rows, err := r.db.Query(`
		SELECT id, title, content, url, published_at, source, category, symbols,
			sentiment_score, sentiment_label, sentiment_confidence, raw_data,
			created_at, updated_at
		FROM articles
		ORDER BY published_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var articles []model.StoredArticle
	for rows.Next() {
		var a model.StoredArticle
		err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.URL, &a.PublishedAt, &a.Source,
			&a.Category, pq.Array(&a.Symbols), &a.Sentiment.Score, &a.Sentiment.Label,
			&a.Sentiment.Confidence, &a.RawData, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM articles`).Scan(&total); err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

// dedupeByURL keeps one entry per URL, the last one in batch order, and
// preserves the position of each URL's first appearance.
func dedupeByURL(articles []model.Article) []model.Article {
	index := make(map[string]int, len(articles))
	var deduped []model.Article
	for _, a := range articles {
		if i, ok := index[a.URL]; ok {
			deduped[i] = a
			continue
		}
		index[a.URL] = len(deduped)
		deduped = append(deduped, a)
	}
	return deduped
}
