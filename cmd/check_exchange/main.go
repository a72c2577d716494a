package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"github.com/vitos/crypto_portfolio_guard/internal/infrastructure/exchange"
	"go.uber.org/zap"
)

// Manual smoke tool: prints balances and a ticker for one platform.
// Usage: check_exchange <binance|kucoin> [base]
func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("usage: check_exchange <binance|kucoin> [base]")
		os.Exit(1)
	}
	platform := os.Args[1]

	log := zap.NewNop()
	var ex domain.Exchange
	switch platform {
	case "binance":
		ex = exchange.NewBinanceAdapter(
			os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"),
			"", "", "USDC", 0.1, log)
	case "kucoin":
		ex = exchange.NewKucoinAdapter(
			os.Getenv("KUCOIN_API_KEY"), os.Getenv("KUCOIN_API_SECRET"),
			os.Getenv("KUCOIN_PASSPHRASE"), "", "USDT", 0.1, log)
	default:
		fmt.Printf("unknown platform: %s\n", platform)
		os.Exit(1)
	}

	ctx := context.Background()

	balances, err := ex.FetchBalances(ctx)
	if err != nil {
		fmt.Printf("FetchBalances failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d balances on %s:\n", len(balances), platform)
	for _, b := range balances {
		fmt.Printf("  %-8s qty=%.8f available=%.8f\n", b.Base, b.Quantity, b.Available)
	}

	if len(os.Args) > 2 {
		base := os.Args[2]
		price, err := ex.FetchTicker(ctx, base)
		if err != nil {
			fmt.Printf("FetchTicker(%s) failed: %v\n", base, err)
			os.Exit(1)
		}
		fmt.Printf("%s last price: %f\n", base, price)
	}
}
