package domain

import (
	"fmt"
	"time"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is one executed fill, immutable once stored.
type Trade struct {
	Base        string
	Quote       string
	Pair        string
	Side        Side
	Price       float64
	Amount      float64
	Total       float64
	Fee         float64
	FeeCurrency string
	Timestamp   time.Time
	Platform    string
	OrderID     string // exchange order id, may be empty
}

// Key returns the deduplication key: (platform, order id) when the exchange
// reports one, otherwise (platform, pair, timestamp, side, amount).
func (t Trade) Key() string {
	if t.OrderID != "" {
		return t.Platform + "|" + t.OrderID
	}
	return fmt.Sprintf("%s|%s|%d|%s|%.8f", t.Platform, t.Pair, t.Timestamp.UnixMilli(), t.Side, t.Amount)
}

// Order is an order currently open on an exchange.
type Order struct {
	ID        string
	Platform  string
	Base      string
	Pair      string
	Side      Side
	Type      string // "limit" or "stop_loss"
	Price     float64
	StopPrice float64
	Amount    float64
	CreatedAt time.Time
}
