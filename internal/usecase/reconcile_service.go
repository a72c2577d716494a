package usecase

import (
	"context"
	"fmt"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"go.uber.org/zap"
)

// ReconcileService detects balance movements per platform and pulls the
// authoritative trade history for every asset that moved.
type ReconcileService struct {
	registry domain.ExchangeRegistry
	balances domain.BalanceRepository
	trades   domain.TradeRepository
	logger   *zap.Logger
}

func NewReconcileService(
	registry domain.ExchangeRegistry,
	balances domain.BalanceRepository,
	trades domain.TradeRepository,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		registry: registry,
		balances: balances,
		trades:   trades,
		logger:   logger,
	}
}

// ReconcileBalances diffs the stored snapshot against a fresh fetch, syncs
// trades for every difference and persists the new snapshot. Returns the
// number of differences processed. A failed trade fetch for one asset is
// logged and retried on the next pass; it never aborts the batch.
func (s *ReconcileService) ReconcileBalances(ctx context.Context, platform string) (int, error) {
	ex, ok := s.registry.Get(platform)
	if !ok {
		return 0, fmt.Errorf("unknown platform: %s", platform)
	}

	current, err := ex.FetchBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balances for %s: %w", platform, err)
	}

	previous, err := s.balances.GetBalances(ctx, platform)
	if err != nil {
		return 0, fmt.Errorf("failed to load stored balances for %s: %w", platform, err)
	}

	diffs := DiffBalances(previous, current)
	failed := make(map[string]bool)
	for _, d := range diffs {
		if err := s.syncTrades(ctx, ex, d.Base); err != nil {
			s.logger.Warn("Trade sync failed, will retry next pass",
				zap.String("platform", d.Platform),
				zap.String("base", d.Base),
				zap.Error(err))
			failed[d.Base] = true
		}
	}

	// Assets whose sync failed keep their stored rows in the snapshot, so
	// the same difference shows up again next pass and the sync is retried.
	snapshot := current
	if len(failed) > 0 {
		snapshot = make([]domain.Balance, 0, len(current))
		for _, b := range current {
			if !failed[b.Base] {
				snapshot = append(snapshot, b)
			}
		}
		for _, b := range previous {
			if failed[b.Base] {
				snapshot = append(snapshot, b)
			}
		}
	}

	if err := s.balances.SaveBalances(ctx, platform, snapshot); err != nil {
		return len(diffs), fmt.Errorf("failed to save balances for %s: %w", platform, err)
	}

	s.logger.Info("Reconciled balances",
		zap.String("platform", platform),
		zap.Int("differences", len(diffs)))
	return len(diffs), nil
}

// syncTrades fetches the full history for one base and inserts only records
// not already stored.
func (s *ReconcileService) syncTrades(ctx context.Context, ex domain.Exchange, base string) error {
	fetched, err := ex.FetchTrades(ctx, base)
	if err != nil {
		return fmt.Errorf("fetch trades: %w", err)
	}
	if len(fetched) == 0 {
		return nil
	}

	existing, err := s.trades.GetTrades(ctx)
	if err != nil {
		return fmt.Errorf("load stored trades: %w", err)
	}

	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[t.Key()] = true
	}

	var fresh []domain.Trade
	for _, t := range fetched {
		if t.Price <= 0 || t.Amount <= 0 {
			s.logger.Warn("Skipping malformed trade",
				zap.String("platform", t.Platform),
				zap.String("pair", t.Pair),
				zap.String("order_id", t.OrderID))
			continue
		}
		if !known[t.Key()] {
			known[t.Key()] = true
			fresh = append(fresh, t)
		}
	}

	if len(fresh) == 0 {
		return nil
	}
	if err := s.trades.InsertTrades(ctx, fresh); err != nil {
		return fmt.Errorf("insert trades: %w", err)
	}

	s.logger.Info("Synced trades",
		zap.String("platform", ex.Name()),
		zap.String("base", base),
		zap.Int("new", len(fresh)))
	return nil
}
