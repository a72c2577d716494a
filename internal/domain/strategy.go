package domain

// StrategyConfig is the externally edited per-asset strategy selection.
// Maps are keyed by platform name.
type StrategyConfig struct {
	Base        string
	Names       map[string]string
	MaxExposure map[string]float64
}

// NameFor returns the configured strategy name for a platform, empty when
// none is set.
func (c *StrategyConfig) NameFor(platform string) string {
	if c == nil {
		return ""
	}
	return c.Names[platform]
}

// ExposureFor returns the exposure cap for a platform, or def when unset.
func (c *StrategyConfig) ExposureFor(platform string, def float64) float64 {
	if c == nil {
		return def
	}
	if v, ok := c.MaxExposure[platform]; ok && v > 0 {
		return v
	}
	return def
}

// RecoveryState is the computed recovery-cycle bookkeeping for one holding.
// Pure function of cumulative totals and strategy config, never persisted.
type RecoveryState struct {
	MaxExposition   float64
	Ratio           float64
	RecupShad       float64
	RecupTpX        float64
	TotalShadCycles int
	RecupTp1        float64
}

// TakeProfitTier is one price/amount rung of the sell ladder.
type TakeProfitTier struct {
	Price  float64
	Amount float64
}

// TakeProfitLadder is the 5-tier exit plan for a holding. Filled marks tiers
// already covered by an open sell order on the exchange.
type TakeProfitLadder struct {
	Tiers  [5]TakeProfitTier
	Filled [5]bool
}
