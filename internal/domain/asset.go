package domain

import "time"

// HighestPrice is the persisted trailing-stop ratchet for one holding.
// Only ever written by the hedge manager, and only upward.
type HighestPrice struct {
	Platform  string
	Base      string
	Price     float64
	UpdatedAt time.Time
}

// MarketData is one CoinMarketCap quote row.
type MarketData struct {
	Symbol           string
	Name             string
	Rank             int
	Price            float64
	MarketCap        float64
	PercentChange24h float64
}

// Asset is the aggregated read model for one holding. Rebuilt on every
// aggregation pass, never mutated in place.
type Asset struct {
	Base              string
	Platform          string
	Quantity          float64
	Available         float64
	Price             float64
	TotalBuy          float64
	TotalSell         float64
	AverageEntryPrice float64
	Recovery          RecoveryState
	Ladder            TakeProfitLadder
	OpenOrders        int
	Name              string
	Rank              int
	MarketCap         float64
	PercentChange24h  float64
}
