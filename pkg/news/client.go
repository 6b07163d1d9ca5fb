// Package news talks to the Finnhub market data API and assembles bounded,
// deduplicated article sets for the digest pipeline.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/allstar/stockwatch/pkg/config"
	"github.com/allstar/stockwatch/pkg/domain"
)

// ErrNoAPIKey is returned when the upstream token is not configured
var ErrNoAPIKey = fmt.Errorf("finnhub api key is not configured")

// ErrNoQuote is returned when the upstream has no price data for a symbol
var ErrNoQuote = fmt.Errorf("no quote data")

// Client is a thin Finnhub HTTP client with a TTL cache over news responses.
// Quote responses are never cached, they go stale in seconds.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *responseCache
}

// NewClient creates a Finnhub client from configuration
func NewClient(cfg config.FinnhubConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      newResponseCache(cfg.CacheTTL),
	}
}

// CompanyNews fetches articles for one symbol over the trailing 5 days,
// cached for the configured TTL
func (c *Client) CompanyNews(ctx context.Context, symbol string) ([]domain.RawArticle, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -5).Format("2006-01-02")
	to := now.Format("2006-01-02")

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", from)
	q.Set("to", to)

	var articles []domain.RawArticle
	if err := c.getJSON(ctx, "/company-news", q, true, &articles); err != nil {
		return nil, fmt.Errorf("company news for %s: %w", symbol, err)
	}
	return articles, nil
}

// GeneralNews fetches general market news, cached for the configured TTL
func (c *Client) GeneralNews(ctx context.Context) ([]domain.RawArticle, error) {
	q := url.Values{}
	q.Set("category", "general")
	q.Set("minId", "0")

	var articles []domain.RawArticle
	if err := c.getJSON(ctx, "/news", q, true, &articles); err != nil {
		return nil, fmt.Errorf("general news: %w", err)
	}
	return articles, nil
}

// quoteResponse is Finnhub's /quote payload
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	PrevClose     float64 `json:"pc"`
}

// profileResponse is the subset of /stock/profile2 this service reads
type profileResponse struct {
	Logo string `json:"logo"`
}

// Quote fetches the current price snapshot and company logo for a symbol.
// A zero quote with zero previous close means the symbol is unknown upstream.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var quote quoteResponse
	if err := c.getJSON(ctx, "/quote", q, false, &quote); err != nil {
		return nil, fmt.Errorf("quote for %s: %w", symbol, err)
	}

	if quote.Current == 0 && quote.PrevClose == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoQuote, symbol)
	}

	result := &domain.Quote{
		Symbol:        symbol,
		Price:         quote.Current,
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
	}

	// logo is cosmetic, its failure never fails the quote
	var profile profileResponse
	if err := c.getJSON(ctx, "/stock/profile2", q, true, &profile); err == nil {
		result.Logo = profile.Logo
	}

	return result, nil
}

// getJSON issues a GET against the API and decodes the response, serving and
// populating the cache when cacheable is set
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, cacheable bool, out interface{}) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	// cache key excludes the token
	cacheKey := path + "?" + query.Encode()
	if cacheable {
		if data, ok := c.cache.get(cacheKey); ok {
			return json.Unmarshal(data, out)
		}
	}

	withToken := url.Values{}
	for k, v := range query {
		withToken[k] = v
	}
	withToken.Set("token", c.apiKey)
	reqURL := c.baseURL + path + "?" + withToken.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finnhub api error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if cacheable {
		c.cache.set(cacheKey, data)
	}
	return nil
}
