package usecase

import (
	"math"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
)

const (
	// MinTradeSize is the smallest viable order in quote units; exchanges
	// reject anything below ~5 USD.
	MinTradeSize = 5.05

	// ErrorAllowed is the tolerance band for cycle completion: a cycle
	// counts as done once 95% of its target has been recovered.
	ErrorAllowed = 0.05

	// TrailPercent is the distance of the protective stop below the
	// highest observed price.
	TrailPercent = 0.01
)

var strategyRatios = map[string]float64{
	"shad":   2,
	"shad4":  4,
	"shad8":  8,
	"shad16": 16,
}

// StrategyRatio maps a strategy name to its recovery multiplier. Unknown
// names fall back to 8.
func StrategyRatio(name string) float64 {
	if r, ok := strategyRatios[name]; ok {
		return r
	}
	return 8
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeRecoveryState derives the recovery-cycle bookkeeping for one holding
// from its cumulative buy/sell totals and strategy config. All outputs are
// finite and non-negative except TotalShadCycles, where -1 means no cycle has
// started.
func ComputeRecoveryState(totalBuy, totalSell, maxExposure float64, strategyName string) domain.RecoveryState {
	state := domain.RecoveryState{Ratio: StrategyRatio(strategyName)}

	// Exposure is capped by the strategy but never pushed above what was
	// actually bought, and never below the minimum trade size unless the
	// position itself is smaller.
	state.MaxExposition = totalBuy
	if totalBuy >= MinTradeSize {
		state.MaxExposition = math.Min(totalBuy, maxExposure)
		if state.MaxExposition < MinTradeSize {
			state.MaxExposition = MinTradeSize
		}
	}

	// Sells first pay back the principal outside the cap; only the excess
	// counts as recovered.
	overCap := totalBuy - state.MaxExposition
	if totalSell > 0 && totalSell > overCap {
		state.RecupShad = math.Round(totalSell - overCap)
	}

	state.RecupTpX = round2(state.MaxExposition * state.Ratio * 0.5)

	state.TotalShadCycles = -1
	exposureNearCap := state.MaxExposition >= maxExposure*(1-ErrorAllowed)
	sellsNearTarget := state.RecupTpX > 0 && state.RecupShad >= state.RecupTpX*(1-ErrorAllowed)
	if state.RecupTpX > 0 && (exposureNearCap || sellsNearTarget) {
		state.TotalShadCycles = int(math.Floor(ErrorAllowed + state.RecupShad/state.RecupTpX))
	}

	state.RecupTp1 = firstTierTarget(totalBuy, totalSell, state)
	return state
}

// firstTierTarget computes how much quote value the first ladder tier should
// recover. Unrecovered principal comes first; after that the remainder of the
// current cycle.
func firstTierTarget(totalBuy, totalSell float64, state domain.RecoveryState) float64 {
	tp1 := state.RecupTpX

	if state.MaxExposition < totalBuy {
		principalLeft := totalBuy - state.MaxExposition - totalSell
		switch {
		case principalLeft > 0:
			tp1 = math.Round(principalLeft)
		case state.TotalShadCycles >= 0:
			tp1 = round2(float64(state.TotalShadCycles+1)*state.RecupTpX - state.RecupShad)
		default:
			tp1 = round2(state.RecupTpX - state.RecupShad)
		}
	} else if state.TotalShadCycles >= 0 {
		tp1 = round2(float64(state.TotalShadCycles+1)*state.RecupTpX - state.RecupShad)
	}

	if tp1 < MinTradeSize {
		tp1 = state.RecupTpX
	}
	return tp1
}

// BuildLadder allocates the 5-tier take-profit ladder. Tier 1 recovers
// RecupTp1; tiers 2-5 each sell half of what remains, priced to recover
// RecupTpX plus the platform fee. A zero average entry price or an exhausted
// balance yields zero-valued tiers, never NaN.
func BuildLadder(state domain.RecoveryState, balance, averageEntryPrice, feePercent float64) domain.TakeProfitLadder {
	var ladder domain.TakeProfitLadder
	remaining := balance
	feeMult := 1 + feePercent/100

	if remaining > 0 {
		if state.TotalShadCycles > -1 {
			amount := remaining / 2
			ladder.Tiers[0] = domain.TakeProfitTier{
				Price:  state.RecupTp1 / amount,
				Amount: amount,
			}
		} else if averageEntryPrice > 0 {
			amount := state.RecupTp1 / averageEntryPrice
			if amount > remaining {
				amount = remaining
			}
			ladder.Tiers[0] = domain.TakeProfitTier{
				Price:  averageEntryPrice,
				Amount: amount,
			}
		}
		remaining -= ladder.Tiers[0].Amount
	}

	for i := 1; i < len(ladder.Tiers); i++ {
		if remaining <= 0 {
			break
		}
		amount := remaining / 2
		ladder.Tiers[i] = domain.TakeProfitTier{
			Price:  state.RecupTpX / amount * feeMult,
			Amount: amount,
		}
		remaining -= amount
	}

	return ladder
}

// LadderStatus matches open sell orders against ladder tiers. A tier is
// considered working on the exchange when an order's amount and price are
// both within 1% relative tolerance of the tier's.
func LadderStatus(openOrders []domain.Order, ladder domain.TakeProfitLadder) [5]bool {
	var filled [5]bool
	const tolerance = 0.01

	for i, tier := range ladder.Tiers {
		if tier.Amount <= 0 || tier.Price <= 0 {
			continue
		}
		for _, o := range openOrders {
			if o.Side != domain.SideSell {
				continue
			}
			if within(o.Amount, tier.Amount, tolerance) && within(o.Price, tier.Price, tolerance) {
				filled[i] = true
				break
			}
		}
	}
	return filled
}

func within(value, target, tolerance float64) bool {
	return math.Abs(value-target)/target <= tolerance
}
