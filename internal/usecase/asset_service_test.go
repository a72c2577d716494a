package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"github.com/vitos/crypto_portfolio_guard/internal/usecase"
	"go.uber.org/zap"
)

// MockPrices serves scripted live stream prices.
type MockPrices struct {
	Data map[string]float64 // key: platform|base
}

func (m *MockPrices) Last(platform, base string) (float64, bool) {
	price, ok := m.Data[platform+"|"+base]
	return price, ok
}

type assetFixture struct {
	exchange *MockExchange
	balances *MockBalanceRepo
	trades   *MockTradeRepo
	strats   *MockStrategyRepo
	quotes   *MockQuotes
	prices   *MockPrices
}

func newAssetFixture() *assetFixture {
	return &assetFixture{
		exchange: &MockExchange{Platform: "binance", Fee: 0},
		balances: &MockBalanceRepo{Snapshots: map[string][]domain.Balance{}},
		trades:   &MockTradeRepo{},
		strats:   &MockStrategyRepo{},
		quotes:   &MockQuotes{},
		prices:   &MockPrices{Data: map[string]float64{}},
	}
}

func (f *assetFixture) service() *usecase.AssetService {
	registry := &MockRegistry{Exchanges: []*MockExchange{f.exchange}}
	return usecase.NewAssetService(registry, f.balances, f.trades, f.strats,
		f.quotes, f.prices, 100, zap.NewNop())
}

func TestComputeAssetMetrics_OmitsHoldingsWithNoContext(t *testing.T) {
	f := newAssetFixture()
	f.balances.Snapshots["binance"] = []domain.Balance{
		bal("binance", "BTC", 1),
		bal("binance", "DUST", 5),
	}
	f.quotes.Data = []domain.MarketData{{Symbol: "BTC", Name: "Bitcoin", Rank: 1, Price: 100}}

	assets, err := f.service().ComputeAssetMetrics(context.Background())
	require.NoError(t, err)

	require.Len(t, assets, 1)
	assert.Equal(t, "BTC", assets[0].Base)
}

func TestComputeAssetMetrics_SortsByRankRanklessLast(t *testing.T) {
	f := newAssetFixture()
	f.balances.Snapshots["binance"] = []domain.Balance{
		bal("binance", "SOL", 10),
		bal("binance", "BTC", 1),
		bal("binance", "OBSCURE", 3),
	}
	f.quotes.Data = []domain.MarketData{
		{Symbol: "SOL", Rank: 6, Price: 20},
		{Symbol: "BTC", Rank: 1, Price: 100},
	}
	// OBSCURE has no quote but does have trade history, so it stays.
	f.trades.Stored = []domain.Trade{trade("binance", "OBSCURE", "o-1", domain.SideBuy, 2, 3)}

	assets, err := f.service().ComputeAssetMetrics(context.Background())
	require.NoError(t, err)

	require.Len(t, assets, 3)
	assert.Equal(t, "BTC", assets[0].Base)
	assert.Equal(t, "SOL", assets[1].Base)
	assert.Equal(t, "OBSCURE", assets[2].Base)
}

func TestComputeAssetMetrics_DerivesTotalsAndRecovery(t *testing.T) {
	f := newAssetFixture()
	f.balances.Snapshots["binance"] = []domain.Balance{bal("binance", "BTC", 2)}
	f.quotes.Data = []domain.MarketData{{Symbol: "BTC", Rank: 1, Price: 105}}
	f.trades.Stored = []domain.Trade{
		trade("binance", "BTC", "o-1", domain.SideBuy, 100, 1),
		trade("binance", "BTC", "o-2", domain.SideBuy, 100, 1),
	}

	assets, err := f.service().ComputeAssetMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	got := assets[0]
	assert.Equal(t, 200.0, got.TotalBuy)
	assert.Equal(t, 0.0, got.TotalSell)
	assert.Equal(t, 100.0, got.AverageEntryPrice)
	// Exposure is capped by the default, and the cap starts cycle zero.
	assert.Equal(t, 100.0, got.Recovery.MaxExposition)
	assert.Equal(t, 0, got.Recovery.TotalShadCycles)
}

func TestComputeAssetMetrics_LadderFilledFromOpenOrders(t *testing.T) {
	f := newAssetFixture()
	f.balances.Snapshots["binance"] = []domain.Balance{bal("binance", "BTC", 2)}
	f.quotes.Data = []domain.MarketData{{Symbol: "BTC", Rank: 1, Price: 105}}
	f.trades.Stored = []domain.Trade{
		trade("binance", "BTC", "o-1", domain.SideBuy, 100, 2),
	}
	// Tier 1 here sells half the balance (1.0) to recover the principal
	// outside the cap (100), i.e. at price 100.
	f.exchange.OpenOrders = map[string][]domain.Order{
		"BTC": {{ID: "tp-1", Side: domain.SideSell, Type: "limit", Amount: 1, Price: 100}},
	}

	assets, err := f.service().ComputeAssetMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	got := assets[0]
	assert.Equal(t, 1, got.OpenOrders)
	assert.True(t, got.Ladder.Filled[0])
	assert.False(t, got.Ladder.Filled[1])
}

func TestComputeAssetMetrics_LivePriceOverridesQuote(t *testing.T) {
	f := newAssetFixture()
	f.balances.Snapshots["binance"] = []domain.Balance{bal("binance", "BTC", 1)}
	f.quotes.Data = []domain.MarketData{{Symbol: "BTC", Rank: 1, Price: 100}}
	f.prices.Data["binance|BTC"] = 101.5

	assets, err := f.service().ComputeAssetMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, 101.5, assets[0].Price)
}

func TestComputeAssetMetrics_StrategyOverridesExposure(t *testing.T) {
	f := newAssetFixture()
	f.balances.Snapshots["binance"] = []domain.Balance{bal("binance", "BTC", 2)}
	f.quotes.Data = []domain.MarketData{{Symbol: "BTC", Rank: 1, Price: 105}}
	f.trades.Stored = []domain.Trade{
		trade("binance", "BTC", "o-1", domain.SideBuy, 100, 2),
	}
	f.strats.Configs = map[string]*domain.StrategyConfig{
		"BTC": {
			Base:        "BTC",
			Names:       map[string]string{"binance": "shad"},
			MaxExposure: map[string]float64{"binance": 50},
		},
	}

	assets, err := f.service().ComputeAssetMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	got := assets[0]
	assert.Equal(t, 50.0, got.Recovery.MaxExposition)
	assert.Equal(t, 2.0, got.Recovery.Ratio)
}
