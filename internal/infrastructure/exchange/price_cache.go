package exchange

import (
	"sync"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
)

// PriceCache holds the last streamed price per holding. Fed by websocket
// callbacks, read by the asset aggregator.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[domain.AssetKey]float64
}

func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[domain.AssetKey]float64)}
}

func (c *PriceCache) Update(platform, base string, price float64) {
	if price <= 0 {
		return
	}
	c.mu.Lock()
	c.prices[domain.AssetKey{Base: base, Platform: platform}] = price
	c.mu.Unlock()
}

func (c *PriceCache) Last(platform, base string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	price, ok := c.prices[domain.AssetKey{Base: base, Platform: platform}]
	return price, ok
}
