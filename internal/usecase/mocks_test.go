package usecase_test

import (
	"context"
	"fmt"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
)

// MockExchange records order traffic and serves scripted data.
type MockExchange struct {
	Platform string
	Fee      float64

	Balances   []domain.Balance
	Ticker     map[string]float64
	TickerErr  map[string]error
	Trades     map[string][]domain.Trade
	TradesErr  map[string]error
	OpenOrders map[string][]domain.Order

	PlacedStops  []PlacedStop
	CancelledIDs []string
	PlaceErr     error
	nextOrderID  int
}

type PlacedStop struct {
	Base      string
	Amount    float64
	StopPrice float64
}

func (m *MockExchange) Name() string        { return m.Platform }
func (m *MockExchange) FeePercent() float64 { return m.Fee }

func (m *MockExchange) FetchBalances(ctx context.Context) ([]domain.Balance, error) {
	return m.Balances, nil
}

func (m *MockExchange) FetchTicker(ctx context.Context, base string) (float64, error) {
	if err := m.TickerErr[base]; err != nil {
		return 0, err
	}
	return m.Ticker[base], nil
}

func (m *MockExchange) FetchTrades(ctx context.Context, base string) ([]domain.Trade, error) {
	if err := m.TradesErr[base]; err != nil {
		return nil, err
	}
	return m.Trades[base], nil
}

func (m *MockExchange) FetchOpenOrders(ctx context.Context, base string) ([]domain.Order, error) {
	return m.OpenOrders[base], nil
}

func (m *MockExchange) CancelOrders(ctx context.Context, base string, orderIDs []string) error {
	m.CancelledIDs = append(m.CancelledIDs, orderIDs...)
	remaining := m.OpenOrders[base][:0]
	for _, o := range m.OpenOrders[base] {
		keep := true
		for _, id := range orderIDs {
			if o.ID == id {
				keep = false
			}
		}
		if keep {
			remaining = append(remaining, o)
		}
	}
	m.OpenOrders[base] = remaining
	return nil
}

func (m *MockExchange) PlaceStopLossOrder(ctx context.Context, base string, amount, stopPrice float64) (string, error) {
	if m.PlaceErr != nil {
		return "", m.PlaceErr
	}
	m.nextOrderID++
	id := fmt.Sprintf("stop-%d", m.nextOrderID)
	m.PlacedStops = append(m.PlacedStops, PlacedStop{Base: base, Amount: amount, StopPrice: stopPrice})
	if m.OpenOrders == nil {
		m.OpenOrders = make(map[string][]domain.Order)
	}
	m.OpenOrders[base] = append(m.OpenOrders[base], domain.Order{
		ID:        id,
		Platform:  m.Platform,
		Base:      base,
		Side:      domain.SideSell,
		Type:      "stop_loss",
		StopPrice: stopPrice,
		Amount:    amount,
	})
	return id, nil
}

// MockRegistry serves mock exchanges in a fixed order.
type MockRegistry struct {
	Exchanges []*MockExchange
}

func (r *MockRegistry) Get(platform string) (domain.Exchange, bool) {
	for _, ex := range r.Exchanges {
		if ex.Platform == platform {
			return ex, true
		}
	}
	return nil, false
}

func (r *MockRegistry) Platforms() []string {
	names := make([]string, len(r.Exchanges))
	for i, ex := range r.Exchanges {
		names[i] = ex.Platform
	}
	return names
}

// MockBalanceRepo keeps snapshots in memory.
type MockBalanceRepo struct {
	Snapshots map[string][]domain.Balance
	GetErr    error
}

func (m *MockBalanceRepo) GetBalances(ctx context.Context, platform string) ([]domain.Balance, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Snapshots[platform], nil
}

func (m *MockBalanceRepo) SaveBalances(ctx context.Context, platform string, balances []domain.Balance) error {
	if m.Snapshots == nil {
		m.Snapshots = make(map[string][]domain.Balance)
	}
	m.Snapshots[platform] = balances
	return nil
}

// MockTradeRepo keeps trades in memory.
type MockTradeRepo struct {
	Stored []domain.Trade
}

func (m *MockTradeRepo) GetTrades(ctx context.Context) ([]domain.Trade, error) {
	return m.Stored, nil
}

func (m *MockTradeRepo) InsertTrades(ctx context.Context, trades []domain.Trade) error {
	m.Stored = append(m.Stored, trades...)
	return nil
}

// MockHighRepo keeps ratchet records in memory.
type MockHighRepo struct {
	Highs map[string]float64
}

func (m *MockHighRepo) key(platform, base string) string { return platform + "|" + base }

func (m *MockHighRepo) GetHighestPrice(ctx context.Context, platform, base string) (float64, bool, error) {
	price, ok := m.Highs[m.key(platform, base)]
	return price, ok, nil
}

func (m *MockHighRepo) SetHighestPrice(ctx context.Context, platform, base string, price float64) error {
	if m.Highs == nil {
		m.Highs = make(map[string]float64)
	}
	m.Highs[m.key(platform, base)] = price
	return nil
}

func (m *MockHighRepo) ClearHighestPrice(ctx context.Context, platform, base string) error {
	delete(m.Highs, m.key(platform, base))
	return nil
}

// MockStrategyRepo serves fixed configs per base.
type MockStrategyRepo struct {
	Configs map[string]*domain.StrategyConfig
}

func (m *MockStrategyRepo) GetStrategy(ctx context.Context, base string) (*domain.StrategyConfig, error) {
	return m.Configs[base], nil
}

func (m *MockStrategyRepo) SaveStrategy(ctx context.Context, config *domain.StrategyConfig) error {
	if m.Configs == nil {
		m.Configs = make(map[string]*domain.StrategyConfig)
	}
	m.Configs[config.Base] = config
	return nil
}

// MockQuotes serves a fixed quote set.
type MockQuotes struct {
	Data []domain.MarketData
	Err  error
}

func (m *MockQuotes) Quotes(ctx context.Context) ([]domain.MarketData, error) {
	return m.Data, m.Err
}
