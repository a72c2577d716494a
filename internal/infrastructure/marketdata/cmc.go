package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
)

const cmcBaseURL = "https://pro-api.coinmarketcap.com"

// CMCClient fetches quotes from CoinMarketCap, caching one response per
// refresh interval to stay inside the free-tier call quota.
type CMCClient struct {
	client  *resty.Client
	symbols []string

	mu        sync.Mutex
	cached    []domain.MarketData
	fetchedAt time.Time
	ttl       time.Duration

	timeNow func() time.Time // For testing
}

func NewCMCClient(apiKey string, symbols []string, ttl time.Duration) *CMCClient {
	client := resty.New().
		SetBaseURL(cmcBaseURL).
		SetTimeout(15 * time.Second).
		SetHeader("X-CMC_PRO_API_KEY", apiKey).
		SetHeader("Accept", "application/json")

	return &CMCClient{
		client:  client,
		symbols: symbols,
		ttl:     ttl,
		timeNow: time.Now,
	}
}

type cmcQuoteResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string][]struct {
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
		CmcRank int    `json:"cmc_rank"`
		Quote   map[string]struct {
			Price            float64 `json:"price"`
			MarketCap        float64 `json:"market_cap"`
			PercentChange24h float64 `json:"percent_change_24h"`
		} `json:"quote"`
	} `json:"data"`
}

// Quotes returns the latest quotes for the configured symbols, serving the
// cached copy while it is fresh.
func (c *CMCClient) Quotes(ctx context.Context) ([]domain.MarketData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.timeNow().Sub(c.fetchedAt) < c.ttl {
		return c.cached, nil
	}

	var out cmcQuoteResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", strings.Join(c.symbols, ",")).
		SetQueryParam("convert", "USD").
		SetResult(&out).
		Get("/v2/cryptocurrency/quotes/latest")
	if err != nil {
		return c.cached, err
	}
	if resp.IsError() || out.Status.ErrorCode != 0 {
		return c.cached, fmt.Errorf("cmc error %d: %s", out.Status.ErrorCode, out.Status.ErrorMessage)
	}

	var quotes []domain.MarketData
	for symbol, entries := range out.Data {
		if len(entries) == 0 {
			continue
		}
		// CMC returns multiple listings per symbol; first is the ranked one.
		entry := entries[0]
		usd := entry.Quote["USD"]
		quotes = append(quotes, domain.MarketData{
			Symbol:           symbol,
			Name:             entry.Name,
			Rank:             entry.CmcRank,
			Price:            usd.Price,
			MarketCap:        usd.MarketCap,
			PercentChange24h: usd.PercentChange24h,
		})
	}

	c.cached = quotes
	c.fetchedAt = c.timeNow()
	return quotes, nil
}
