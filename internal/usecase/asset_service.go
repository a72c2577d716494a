package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"go.uber.org/zap"
)

// QuoteProvider supplies the latest market-data quotes (CMC).
type QuoteProvider interface {
	Quotes(ctx context.Context) ([]domain.MarketData, error)
}

// LastPriceSource serves live prices collected from exchange streams.
type LastPriceSource interface {
	Last(platform, base string) (float64, bool)
}

// AssetService builds the per-holding read model from balances, trades,
// strategy config, open orders and market data.
type AssetService struct {
	registry           domain.ExchangeRegistry
	balances           domain.BalanceRepository
	trades             domain.TradeRepository
	strategies         domain.StrategyRepository
	quotes             QuoteProvider
	prices             LastPriceSource // may be nil
	defaultMaxExposure float64
	logger             *zap.Logger
}

func NewAssetService(
	registry domain.ExchangeRegistry,
	balances domain.BalanceRepository,
	trades domain.TradeRepository,
	strategies domain.StrategyRepository,
	quotes QuoteProvider,
	prices LastPriceSource,
	defaultMaxExposure float64,
	logger *zap.Logger,
) *AssetService {
	return &AssetService{
		registry:           registry,
		balances:           balances,
		trades:             trades,
		strategies:         strategies,
		quotes:             quotes,
		prices:             prices,
		defaultMaxExposure: defaultMaxExposure,
		logger:             logger,
	}
}

// ComputeAssetMetrics assembles one Asset per non-zero holding. Holdings
// with no market data, trades, strategy or open orders at all are omitted
// with a diagnostic. Output is sorted by market-cap rank, rank-less last.
func (s *AssetService) ComputeAssetMetrics(ctx context.Context) ([]domain.Asset, error) {
	allTrades, err := s.trades.GetTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	quoteBySymbol := make(map[string]domain.MarketData)
	if s.quotes != nil {
		quotes, err := s.quotes.Quotes(ctx)
		if err != nil {
			s.logger.Warn("Market data unavailable this pass", zap.Error(err))
		}
		for _, q := range quotes {
			quoteBySymbol[strings.ToUpper(q.Symbol)] = q
		}
	}

	var assets []domain.Asset
	for _, platform := range s.registry.Platforms() {
		ex, _ := s.registry.Get(platform)

		balances, err := s.balances.GetBalances(ctx, platform)
		if err != nil {
			s.logger.Error("Failed to load balances",
				zap.String("platform", platform), zap.Error(err))
			continue
		}

		for _, bal := range balances {
			if bal.Quantity <= 0 {
				continue
			}
			asset, ok := s.buildAsset(ctx, ex, bal, allTrades, quoteBySymbol)
			if !ok {
				continue
			}
			assets = append(assets, asset)
		}
	}

	sort.Slice(assets, func(i, j int) bool {
		ri, rj := assets[i].Rank, assets[j].Rank
		if ri == 0 {
			return false
		}
		if rj == 0 {
			return true
		}
		return ri < rj
	})
	return assets, nil
}

func (s *AssetService) buildAsset(
	ctx context.Context,
	ex domain.Exchange,
	bal domain.Balance,
	allTrades []domain.Trade,
	quoteBySymbol map[string]domain.MarketData,
) (domain.Asset, bool) {
	platform := ex.Name()
	md, hasMD := quoteBySymbol[strings.ToUpper(bal.Base)]

	var assetTrades []domain.Trade
	for _, t := range allTrades {
		if t.Base == bal.Base && t.Platform == platform {
			assetTrades = append(assetTrades, t)
		}
	}

	strat, err := s.strategies.GetStrategy(ctx, bal.Base)
	if err != nil {
		s.logger.Warn("Failed to load strategy",
			zap.String("base", bal.Base), zap.Error(err))
		strat = nil
	}

	open, err := ex.FetchOpenOrders(ctx, bal.Base)
	if err != nil {
		s.logger.Warn("Failed to fetch open orders",
			zap.String("platform", platform),
			zap.String("base", bal.Base), zap.Error(err))
		open = nil
	}

	if !hasMD && len(assetTrades) == 0 && strat == nil && len(open) == 0 {
		s.logger.Debug("Omitting asset with no context",
			zap.String("platform", platform),
			zap.String("base", bal.Base))
		return domain.Asset{}, false
	}

	totalBuy, totalSell, avgEntry := tradeTotals(assetTrades)
	maxExposure := strat.ExposureFor(platform, s.defaultMaxExposure)
	state := ComputeRecoveryState(totalBuy, totalSell, maxExposure, strat.NameFor(platform))

	ladder := BuildLadder(state, bal.Quantity, avgEntry, ex.FeePercent())
	ladder.Filled = LadderStatus(open, ladder)

	price := md.Price
	if s.prices != nil {
		if last, ok := s.prices.Last(platform, bal.Base); ok {
			price = last
		}
	}

	return domain.Asset{
		Base:              bal.Base,
		Platform:          platform,
		Quantity:          bal.Quantity,
		Available:         bal.Available,
		Price:             price,
		TotalBuy:          totalBuy,
		TotalSell:         totalSell,
		AverageEntryPrice: avgEntry,
		Recovery:          state,
		Ladder:            ladder,
		OpenOrders:        len(open),
		Name:              md.Name,
		Rank:              md.Rank,
		MarketCap:         md.MarketCap,
		PercentChange24h:  md.PercentChange24h,
	}, true
}

// tradeTotals sums the USD-equivalent buy/sell totals and derives the
// volume-weighted average entry price over buys.
func tradeTotals(trades []domain.Trade) (totalBuy, totalSell, avgEntry float64) {
	var buyQty float64
	for _, t := range trades {
		if t.Side == domain.SideBuy {
			totalBuy += t.Total
			buyQty += t.Amount
		} else {
			totalSell += t.Total
		}
	}
	if buyQty > 0 {
		avgEntry = totalBuy / buyQty
	}
	return totalBuy, totalSell, avgEntry
}
