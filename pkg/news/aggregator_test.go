package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allstar/stockwatch/pkg/domain"
)

// mockSource implements Source with func fields
type mockSource struct {
	companyNewsFunc func(ctx context.Context, symbol string) ([]domain.RawArticle, error)
	generalNewsFunc func(ctx context.Context) ([]domain.RawArticle, error)
}

func (m *mockSource) CompanyNews(ctx context.Context, symbol string) ([]domain.RawArticle, error) {
	return m.companyNewsFunc(ctx, symbol)
}

func (m *mockSource) GeneralNews(ctx context.Context) ([]domain.RawArticle, error) {
	return m.generalNewsFunc(ctx)
}

func rawArticle(id int64, symbol string, n int, ts int64) domain.RawArticle {
	return domain.RawArticle{
		ID:       id,
		Headline: fmt.Sprintf("%s story %d", symbol, n),
		URL:      fmt.Sprintf("https://example.com/%s/%d", symbol, n),
		Source:   "TestWire",
		Datetime: ts,
	}
}

func TestAggregator_GetNews_SymbolMode(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix()

	t.Run("round robin covers all symbols", func(t *testing.T) {
		src := &mockSource{
			companyNewsFunc: func(_ context.Context, symbol string) ([]domain.RawArticle, error) {
				articles := make([]domain.RawArticle, 10)
				for i := range articles {
					articles[i] = rawArticle(int64(i), symbol, i, base+int64(i))
				}
				return articles, nil
			},
		}

		agg := NewAggregator(src)
		got, err := agg.GetNews(context.Background(), []string{"AAPL", "TSLA", "MSFT"})
		require.NoError(t, err)
		require.Len(t, got, 6)

		// every symbol contributes despite each having 10 articles available
		bySymbol := map[string]int{}
		for _, a := range got {
			for _, sym := range []string{"AAPL", "TSLA", "MSFT"} {
				if strings.Contains(a.URL, "/"+sym+"/") {
					bySymbol[sym]++
				}
			}
		}
		assert.Equal(t, 2, bySymbol["AAPL"])
		assert.Equal(t, 2, bySymbol["TSLA"])
		assert.Equal(t, 2, bySymbol["MSFT"])
	})

	t.Run("result is unique by url and sorted newest first", func(t *testing.T) {
		src := &mockSource{
			companyNewsFunc: func(_ context.Context, symbol string) ([]domain.RawArticle, error) {
				// same articles for every symbol, dedupe must collapse them
				return []domain.RawArticle{
					rawArticle(1, "X", 1, base+100),
					rawArticle(2, "X", 2, base+300),
					rawArticle(3, "X", 3, base+200),
				}, nil
			},
		}

		agg := NewAggregator(src)
		got, err := agg.GetNews(context.Background(), []string{"AAPL", "TSLA"})
		require.NoError(t, err)
		require.Len(t, got, 3)

		seen := map[string]bool{}
		for _, a := range got {
			assert.False(t, seen[a.URL], "duplicate url %s", a.URL)
			seen[a.URL] = true
		}
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].Datetime.After(got[i-1].Datetime), "not sorted newest first")
		}
	})

	t.Run("skips invalid articles", func(t *testing.T) {
		src := &mockSource{
			companyNewsFunc: func(_ context.Context, symbol string) ([]domain.RawArticle, error) {
				return []domain.RawArticle{
					{Headline: "", URL: "https://example.com/no-headline", Datetime: base},
					{Headline: "no url", URL: "", Datetime: base},
					{Headline: "no datetime", URL: "https://example.com/no-ts"},
					rawArticle(9, symbol, 9, base+50),
				}, nil
			},
		}

		agg := NewAggregator(src)
		got, err := agg.GetNews(context.Background(), []string{"AAPL"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "AAPL story 9", got[0].Headline)
	})

	t.Run("symbols cleaned before fan out", func(t *testing.T) {
		var queried []string
		src := &mockSource{
			companyNewsFunc: func(_ context.Context, symbol string) ([]domain.RawArticle, error) {
				queried = append(queried, symbol)
				return nil, nil
			},
		}

		agg := NewAggregator(src)
		_, err := agg.GetNews(context.Background(), []string{" aapl ", "", "tsla"})
		require.NoError(t, err)
		assert.Contains(t, queried, "AAPL")
		assert.Contains(t, queried, "TSLA")
		assert.NotContains(t, queried, "")
	})

	t.Run("upstream error aborts the whole call", func(t *testing.T) {
		src := &mockSource{
			companyNewsFunc: func(_ context.Context, symbol string) ([]domain.RawArticle, error) {
				if symbol == "TSLA" {
					return nil, errors.New("upstream down")
				}
				return []domain.RawArticle{rawArticle(1, symbol, 1, base)}, nil
			},
		}

		agg := NewAggregator(src)
		got, err := agg.GetNews(context.Background(), []string{"AAPL", "TSLA"})
		require.Error(t, err)
		assert.Nil(t, got)
	})
}

func TestAggregator_GetNews_GeneralMode(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix()

	t.Run("dedupes and caps at six", func(t *testing.T) {
		src := &mockSource{
			generalNewsFunc: func(_ context.Context) ([]domain.RawArticle, error) {
				articles := []domain.RawArticle{
					rawArticle(1, "GEN", 1, base+1),
					rawArticle(1, "GEN", 1, base+1), // exact duplicate by id
				}
				for i := 2; i < 12; i++ {
					articles = append(articles, rawArticle(int64(i), "GEN", i, base+int64(i)))
				}
				return articles, nil
			},
		}

		agg := NewAggregator(src)
		got, err := agg.GetNews(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, got, 6)
	})

	t.Run("sorted newest first", func(t *testing.T) {
		src := &mockSource{
			generalNewsFunc: func(_ context.Context) ([]domain.RawArticle, error) {
				return []domain.RawArticle{
					rawArticle(1, "GEN", 1, base+10),
					rawArticle(2, "GEN", 2, base+30),
					rawArticle(3, "GEN", 3, base+20),
				}, nil
			},
		}

		agg := NewAggregator(src)
		got, err := agg.GetNews(context.Background(), []string{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "GEN story 2", got[0].Headline)
		assert.Equal(t, "GEN story 3", got[1].Headline)
		assert.Equal(t, "GEN story 1", got[2].Headline)
	})

	t.Run("error propagates", func(t *testing.T) {
		src := &mockSource{
			generalNewsFunc: func(_ context.Context) ([]domain.RawArticle, error) {
				return nil, errors.New("boom")
			},
		}

		agg := NewAggregator(src)
		_, err := agg.GetNews(context.Background(), nil)
		require.Error(t, err)
	})
}
