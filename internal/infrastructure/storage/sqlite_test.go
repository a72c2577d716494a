package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"github.com/vitos/crypto_portfolio_guard/internal/infrastructure/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveBalancesReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []domain.Balance{
		{Platform: "binance", Base: "BTC", Quantity: 1, Available: 1},
		{Platform: "binance", Base: "ETH", Quantity: 5, Available: 4},
	}
	require.NoError(t, store.SaveBalances(ctx, "binance", first))
	require.NoError(t, store.SaveBalances(ctx, "kucoin", []domain.Balance{
		{Platform: "kucoin", Base: "SOL", Quantity: 20, Available: 20},
	}))

	// A new snapshot fully replaces the old one for that platform only.
	second := []domain.Balance{
		{Platform: "binance", Base: "BTC", Quantity: 2, Available: 2},
	}
	require.NoError(t, store.SaveBalances(ctx, "binance", second))

	got, err := store.GetBalances(ctx, "binance")
	require.NoError(t, err)
	assert.Equal(t, second, got)

	kucoin, err := store.GetBalances(ctx, "kucoin")
	require.NoError(t, err)
	require.Len(t, kucoin, 1)
	assert.Equal(t, "SOL", kucoin[0].Base)
}

func TestSQLiteStore_GetBalancesEmptyPlatform(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetBalances(context.Background(), "binance")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_TradesRoundTripOrderedByTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	later := domain.Trade{
		Platform: "binance", Base: "BTC", Quote: "USDC", Pair: "BTCUSDC",
		Side: domain.SideSell, Price: 110, Amount: 1, Total: 110,
		Fee: 0.11, FeeCurrency: "USDC", OrderID: "o-2",
		Timestamp: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	earlier := domain.Trade{
		Platform: "binance", Base: "BTC", Quote: "USDC", Pair: "BTCUSDC",
		Side: domain.SideBuy, Price: 100, Amount: 1, Total: 100,
		Fee: 0.1, FeeCurrency: "USDC", OrderID: "o-1",
		Timestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.InsertTrades(ctx, []domain.Trade{later, earlier}))

	got, err := store.GetTrades(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "o-1", got[0].OrderID)
	assert.Equal(t, "o-2", got[1].OrderID)
	assert.Equal(t, domain.SideBuy, got[0].Side)
	assert.Equal(t, 100.0, got[0].Price)
	assert.Equal(t, "USDC", got[0].FeeCurrency)
	assert.True(t, got[0].Timestamp.Equal(earlier.Timestamp))
}

func TestSQLiteStore_HighestPriceLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Missing record is a miss, not an error.
	_, exists, err := store.GetHighestPrice(ctx, "binance", "BTC")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.SetHighestPrice(ctx, "binance", "BTC", 100))
	price, exists, err := store.GetHighestPrice(ctx, "binance", "BTC")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 100.0, price)

	// Upsert raises the ratchet in place.
	require.NoError(t, store.SetHighestPrice(ctx, "binance", "BTC", 110))
	price, _, err = store.GetHighestPrice(ctx, "binance", "BTC")
	require.NoError(t, err)
	assert.Equal(t, 110.0, price)

	require.NoError(t, store.ClearHighestPrice(ctx, "binance", "BTC"))
	_, exists, err = store.GetHighestPrice(ctx, "binance", "BTC")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSQLiteStore_StrategyRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// No rows means no config, not an error.
	config, err := store.GetStrategy(ctx, "BTC")
	require.NoError(t, err)
	assert.Nil(t, config)

	saved := &domain.StrategyConfig{
		Base:        "BTC",
		Names:       map[string]string{"binance": "shad8", "kucoin": "shad"},
		MaxExposure: map[string]float64{"binance": 100, "kucoin": 50},
	}
	require.NoError(t, store.SaveStrategy(ctx, saved))

	config, err = store.GetStrategy(ctx, "BTC")
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, saved.Names, config.Names)
	assert.Equal(t, saved.MaxExposure, config.MaxExposure)

	// Re-saving overwrites per platform.
	saved.Names["binance"] = "shad16"
	saved.MaxExposure["binance"] = 200
	require.NoError(t, store.SaveStrategy(ctx, saved))

	config, err = store.GetStrategy(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, "shad16", config.Names["binance"])
	assert.Equal(t, 200.0, config.MaxExposure["binance"])
}
