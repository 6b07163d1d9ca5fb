package news

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/allstar/stockwatch/pkg/domain"
)

// maxArticles caps every aggregated result set
const maxArticles = 6

// Source provides raw articles from the upstream API
type Source interface {
	CompanyNews(ctx context.Context, symbol string) ([]domain.RawArticle, error)
	GeneralNews(ctx context.Context) ([]domain.RawArticle, error)
}

// Aggregator assembles a bounded, deduplicated article set for a user.
// With symbols it fans out round-robin so the result touches as many watched
// symbols as possible; without symbols it falls back to general market news.
type Aggregator struct {
	source Source
}

// NewAggregator creates an aggregator over the given source
func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

// GetNews returns at most 6 formatted articles, newest first. Any upstream
// failure aborts the whole call - callers in batch context downgrade the
// error to an empty set.
func (a *Aggregator) GetNews(ctx context.Context, symbols []string) ([]domain.Article, error) {
	cleaned := cleanSymbols(symbols)

	var articles []domain.Article
	var err error
	if len(cleaned) > 0 {
		articles, err = a.symbolNews(ctx, cleaned)
	} else {
		articles, err = a.generalNews(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Datetime.After(articles[j].Datetime)
	})
	return articles, nil
}

// symbolNews iterates symbols round-robin, taking at most one fresh article
// per (round, symbol) pair. Breadth over depth: six articles from six symbols
// beat six articles from one.
func (a *Aggregator) symbolNews(ctx context.Context, symbols []string) ([]domain.Article, error) {
	maxRounds := len(symbols)
	if maxRounds > maxArticles {
		maxRounds = maxArticles
	}

	seen := make(map[string]struct{})
	collected := make([]domain.Article, 0, maxArticles)

	for round := 0; round < maxRounds && len(collected) < maxArticles; round++ {
		for _, symbol := range symbols {
			if len(collected) >= maxArticles {
				break
			}

			raw, err := a.source.CompanyNews(ctx, symbol)
			if err != nil {
				return nil, err
			}

			for i := range raw {
				if !raw[i].Valid() {
					continue
				}
				formatted := domain.FormatArticle(&raw[i])
				if _, dup := seen[formatted.URL]; dup {
					continue
				}
				seen[formatted.URL] = struct{}{}
				collected = append(collected, formatted)
				break // one article per symbol per round
			}
		}
	}

	lgr.Printf("[DEBUG] aggregated %d articles for %d symbols", len(collected), len(symbols))
	return collected, nil
}

// generalNews takes the first 6 valid articles from the general feed,
// deduplicated by id, then url, then headline
func (a *Aggregator) generalNews(ctx context.Context) ([]domain.Article, error) {
	raw, err := a.source.GeneralNews(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	collected := make([]domain.Article, 0, maxArticles)

	for i := range raw {
		if !raw[i].Valid() {
			continue
		}
		key := raw[i].DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		collected = append(collected, domain.FormatArticle(&raw[i]))
		if len(collected) >= maxArticles {
			break
		}
	}

	return collected, nil
}

// cleanSymbols trims, uppercases and drops empty symbols, preserving order
func cleanSymbols(symbols []string) []string {
	cleaned := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}
