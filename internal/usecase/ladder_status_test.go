package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"github.com/vitos/crypto_portfolio_guard/internal/usecase"
)

func ladderOf(tiers ...domain.TakeProfitTier) domain.TakeProfitLadder {
	var ladder domain.TakeProfitLadder
	copy(ladder.Tiers[:], tiers)
	return ladder
}

func sellOrder(amount, price float64) domain.Order {
	return domain.Order{Side: domain.SideSell, Type: "limit", Amount: amount, Price: price}
}

func TestLadderStatus_ExactMatch(t *testing.T) {
	ladder := ladderOf(
		domain.TakeProfitTier{Price: 100, Amount: 2},
		domain.TakeProfitTier{Price: 200, Amount: 1},
	)
	orders := []domain.Order{sellOrder(1, 200)}

	filled := usecase.LadderStatus(orders, ladder)
	assert.Equal(t, [5]bool{false, true, false, false, false}, filled)
}

func TestLadderStatus_WithinOnePercent(t *testing.T) {
	ladder := ladderOf(domain.TakeProfitTier{Price: 100, Amount: 2})

	// 0.9% off on both dimensions still matches.
	filled := usecase.LadderStatus([]domain.Order{sellOrder(2.018, 100.9)}, ladder)
	assert.True(t, filled[0])

	// 1.5% off on price does not.
	filled = usecase.LadderStatus([]domain.Order{sellOrder(2, 101.5)}, ladder)
	assert.False(t, filled[0])

	// Amount off alone breaks the match too.
	filled = usecase.LadderStatus([]domain.Order{sellOrder(2.1, 100)}, ladder)
	assert.False(t, filled[0])
}

func TestLadderStatus_BuyOrdersIgnored(t *testing.T) {
	ladder := ladderOf(domain.TakeProfitTier{Price: 100, Amount: 2})
	orders := []domain.Order{{Side: domain.SideBuy, Amount: 2, Price: 100}}

	filled := usecase.LadderStatus(orders, ladder)
	assert.False(t, filled[0])
}

func TestLadderStatus_ZeroTiersNeverMatch(t *testing.T) {
	var ladder domain.TakeProfitLadder // all zero
	orders := []domain.Order{sellOrder(0, 0)}

	filled := usecase.LadderStatus(orders, ladder)
	assert.Equal(t, [5]bool{}, filled)
}
