package domain

import "context"

// Exchange defines the interface for one trading platform. Implementations
// own credentials and wire protocol; symbols are addressed by base asset.
type Exchange interface {
	Name() string
	FeePercent() float64
	FetchBalances(ctx context.Context) ([]Balance, error)
	FetchTicker(ctx context.Context, base string) (float64, error)
	FetchTrades(ctx context.Context, base string) ([]Trade, error)
	FetchOpenOrders(ctx context.Context, base string) ([]Order, error)
	CancelOrders(ctx context.Context, base string, orderIDs []string) error
	PlaceStopLossOrder(ctx context.Context, base string, amount, stopPrice float64) (string, error)
}

// ExchangeRegistry resolves platform names to adapters, built once at startup.
type ExchangeRegistry interface {
	Get(platform string) (Exchange, bool)
	Platforms() []string
}

// BalanceRepository stores the last reconciled balance snapshot per platform.
type BalanceRepository interface {
	GetBalances(ctx context.Context, platform string) ([]Balance, error)
	SaveBalances(ctx context.Context, platform string, balances []Balance) error
}

// TradeRepository stores canonical trades.
type TradeRepository interface {
	GetTrades(ctx context.Context) ([]Trade, error)
	InsertTrades(ctx context.Context, trades []Trade) error
}

// HighestPriceRepository stores the trailing-stop ratchet records.
type HighestPriceRepository interface {
	GetHighestPrice(ctx context.Context, platform, base string) (float64, bool, error)
	SetHighestPrice(ctx context.Context, platform, base string, price float64) error
	ClearHighestPrice(ctx context.Context, platform, base string) error
}

// StrategyRepository reads the externally edited strategy config.
// GetStrategy returns nil when no config exists for the base.
type StrategyRepository interface {
	GetStrategy(ctx context.Context, base string) (*StrategyConfig, error)
	SaveStrategy(ctx context.Context, config *StrategyConfig) error
}
