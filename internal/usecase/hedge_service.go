package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"go.uber.org/zap"
)

// budgetSpec is the hard-coded request budget for one platform family.
type budgetSpec struct {
	limit  float64
	window time.Duration
	cost   float64 // units per stop replacement
}

var platformBudgets = map[string]budgetSpec{
	// Request-weight quota, ~2 weight per cancel+place.
	"kucoin": {limit: 4000, window: 30 * time.Second, cost: 2},
	// Order-count quota, 1 order per replacement.
	"binance": {limit: 50, window: 10 * time.Second, cost: 1},
}

var defaultBudget = budgetSpec{limit: 50, window: 10 * time.Second, cost: 1}

// HedgeReport summarizes one hedge pass.
type HedgeReport struct {
	Processed int
	Skipped   int
}

// HedgeService maintains the per-asset highest-price ratchet and keeps a
// protective stop order working below it on each platform.
type HedgeService struct {
	registry    domain.ExchangeRegistry
	balances    domain.BalanceRepository
	highs       domain.HighestPriceRepository
	logger      *zap.Logger
	stablecoins map[string]bool

	// onlyPlatform restricts the default all-holdings mode to one platform
	// when configured; explicit asset lists ignore it.
	onlyPlatform string

	newBudget func(platform string) (*RateBudget, float64) // For testing
}

func NewHedgeService(
	registry domain.ExchangeRegistry,
	balances domain.BalanceRepository,
	highs domain.HighestPriceRepository,
	stablecoins []string,
	onlyPlatform string,
	logger *zap.Logger,
) *HedgeService {
	stable := make(map[string]bool, len(stablecoins))
	for _, s := range stablecoins {
		stable[s] = true
	}
	return &HedgeService{
		registry:     registry,
		balances:     balances,
		highs:        highs,
		logger:       logger,
		stablecoins:  stable,
		onlyPlatform: onlyPlatform,
		newBudget:    budgetForPlatform,
	}
}

func budgetForPlatform(platform string) (*RateBudget, float64) {
	spec, ok := platformBudgets[platform]
	if !ok {
		spec = defaultBudget
	}
	return NewRateBudget(spec.limit, spec.window), spec.cost
}

// HedgeAssets runs the trailing-stop pass. An empty key list processes every
// held non-stablecoin asset across platforms. A single failing asset is
// logged and skipped; the pass always completes.
func (s *HedgeService) HedgeAssets(ctx context.Context, keys []domain.AssetKey) (HedgeReport, error) {
	var report HedgeReport

	byPlatform, err := s.groupByPlatform(ctx, keys)
	if err != nil {
		return report, err
	}

	// Explicit keys can name platforms this process is not connected to.
	for platform, bases := range byPlatform {
		if _, ok := s.registry.Get(platform); !ok {
			s.logger.Warn("Skipping assets on unknown platform",
				zap.String("platform", platform), zap.Int("assets", len(bases)))
			report.Skipped += len(bases)
		}
	}

	for _, platform := range s.registry.Platforms() {
		bases := byPlatform[platform]
		if len(bases) == 0 {
			continue
		}
		ex, _ := s.registry.Get(platform)

		quantities, err := s.loadQuantities(ctx, platform)
		if err != nil {
			s.logger.Error("Skipping platform, failed to load balances",
				zap.String("platform", platform), zap.Error(err))
			report.Skipped += len(bases)
			continue
		}

		budget, cost := s.newBudget(platform)
		for _, base := range bases {
			if quantities[base] <= 0 {
				// Position is gone; a stale ratchet record is ignored.
				s.logger.Debug("No position, asset skipped",
					zap.String("platform", platform), zap.String("base", base))
				report.Skipped++
				continue
			}
			if err := s.hedgeOne(ctx, ex, budget, cost, base, quantities[base]); err != nil {
				s.logger.Warn("Hedge update failed, asset skipped this pass",
					zap.String("platform", platform),
					zap.String("base", base),
					zap.Error(err))
				report.Skipped++
				continue
			}
			report.Processed++
		}
	}

	s.logger.Info("Hedge pass complete",
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

// groupByPlatform resolves the asset list for this pass, ordered per
// platform. Without explicit keys it walks all stored holdings, minus
// stablecoins, optionally restricted to one configured platform.
func (s *HedgeService) groupByPlatform(ctx context.Context, keys []domain.AssetKey) (map[string][]string, error) {
	grouped := make(map[string][]string)

	if len(keys) > 0 {
		for _, k := range keys {
			grouped[k.Platform] = append(grouped[k.Platform], k.Base)
		}
		return grouped, nil
	}

	for _, platform := range s.registry.Platforms() {
		if s.onlyPlatform != "" && platform != s.onlyPlatform {
			continue
		}
		balances, err := s.balances.GetBalances(ctx, platform)
		if err != nil {
			return nil, fmt.Errorf("failed to load balances for %s: %w", platform, err)
		}
		for _, b := range balances {
			if b.Quantity <= 0 || s.stablecoins[b.Base] {
				continue
			}
			grouped[platform] = append(grouped[platform], b.Base)
		}
	}
	return grouped, nil
}

func (s *HedgeService) loadQuantities(ctx context.Context, platform string) (map[string]float64, error) {
	balances, err := s.balances.GetBalances(ctx, platform)
	if err != nil {
		return nil, err
	}
	quantities := make(map[string]float64, len(balances))
	for _, b := range balances {
		quantities[b.Base] = b.Quantity
	}
	return quantities, nil
}

// hedgeOne applies the ratchet state machine to a single asset. The budget
// is consulted before any order traffic; it waits, never skips.
func (s *HedgeService) hedgeOne(ctx context.Context, ex domain.Exchange, budget *RateBudget, cost float64, base string, quantity float64) error {
	price, err := ex.FetchTicker(ctx, base)
	if err != nil {
		return fmt.Errorf("fetch ticker: %w", err)
	}
	if price <= 0 {
		return fmt.Errorf("invalid ticker price %f for %s", price, base)
	}

	high, exists, err := s.highs.GetHighestPrice(ctx, ex.Name(), base)
	if err != nil {
		return fmt.Errorf("load highest price: %w", err)
	}

	if exists && price <= high {
		// Stop below the high is already working exchange-side.
		return nil
	}

	budget.Spend(cost)

	stopPrice := price * (1 - TrailPercent)
	if exists {
		stopPrice = math.Max(high, price) * (1 - TrailPercent)
	}

	if err := s.replaceStop(ctx, ex, base, quantity, stopPrice); err != nil {
		return err
	}

	// Ratchet moves only after the replacement stop is confirmed, so a
	// failed placement is retried on the next pass.
	if err := s.highs.SetHighestPrice(ctx, ex.Name(), base, price); err != nil {
		return fmt.Errorf("persist highest price: %w", err)
	}

	s.logger.Info("Trailing stop updated",
		zap.String("platform", ex.Name()),
		zap.String("base", base),
		zap.Float64("price", price),
		zap.Float64("stop", stopPrice))
	return nil
}

// replaceStop cancels any working stop orders for the asset and places a
// fresh one sized to the full balance.
func (s *HedgeService) replaceStop(ctx context.Context, ex domain.Exchange, base string, quantity, stopPrice float64) error {
	open, err := ex.FetchOpenOrders(ctx, base)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	var stopIDs []string
	for _, o := range open {
		if o.Type == "stop_loss" {
			stopIDs = append(stopIDs, o.ID)
		}
	}

	cancelled := false
	if len(stopIDs) > 0 {
		if err := ex.CancelOrders(ctx, base, stopIDs); err != nil {
			return fmt.Errorf("cancel stop orders: %w", err)
		}
		cancelled = true
	}

	if _, err := ex.PlaceStopLossOrder(ctx, base, quantity, stopPrice); err != nil {
		if cancelled {
			// Asset is unprotected until the next pass re-issues the stop.
			s.logger.Error("CRITICAL: stop cancelled but replacement failed",
				zap.String("platform", ex.Name()),
				zap.String("base", base),
				zap.Error(err))
		}
		return fmt.Errorf("place stop order: %w", err)
	}
	return nil
}
