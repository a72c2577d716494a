package usecase

import "github.com/vitos/crypto_portfolio_guard/internal/domain"

// kindRank orders difference kinds by specificity for deduplication.
var kindRank = map[domain.DiffKind]int{
	domain.DiffBalanceChanged: 1,
	domain.DiffNewSymbol:      2,
	domain.DiffZeroedOut:      3,
}

// DiffBalances compares a stored balance snapshot against a fresh one and
// classifies every holding that moved. Pure and idempotent: identical
// snapshots produce an empty result.
func DiffBalances(previous, current []domain.Balance) []domain.BalanceDifference {
	prevByKey := make(map[domain.AssetKey]domain.Balance, len(previous))
	for _, b := range previous {
		prevByKey[domain.AssetKey{Base: b.Base, Platform: b.Platform}] = b
	}

	found := make(map[domain.AssetKey]domain.DiffKind)
	var order []domain.AssetKey

	record := func(key domain.AssetKey, kind domain.DiffKind) {
		existing, ok := found[key]
		if !ok {
			order = append(order, key)
		}
		if !ok || kindRank[kind] > kindRank[existing] {
			found[key] = kind
		}
	}

	seen := make(map[domain.AssetKey]bool, len(current))
	for _, b := range current {
		key := domain.AssetKey{Base: b.Base, Platform: b.Platform}
		seen[key] = true

		prev, ok := prevByKey[key]
		if !ok {
			record(key, domain.DiffNewSymbol)
			continue
		}
		if prev.Quantity != b.Quantity {
			record(key, domain.DiffBalanceChanged)
		}
	}

	for _, b := range previous {
		key := domain.AssetKey{Base: b.Base, Platform: b.Platform}
		if !seen[key] && b.Quantity != 0 {
			record(key, domain.DiffZeroedOut)
		}
	}

	diffs := make([]domain.BalanceDifference, 0, len(order))
	for _, key := range order {
		diffs = append(diffs, domain.BalanceDifference{
			Base:     key.Base,
			Platform: key.Platform,
			Kind:     found[key],
		})
	}
	return diffs
}
