package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"github.com/vitos/crypto_portfolio_guard/internal/infrastructure/exchange"
	"github.com/vitos/crypto_portfolio_guard/internal/infrastructure/logger"
	"github.com/vitos/crypto_portfolio_guard/internal/infrastructure/marketdata"
	"github.com/vitos/crypto_portfolio_guard/internal/infrastructure/storage"
	"github.com/vitos/crypto_portfolio_guard/internal/usecase"
	"github.com/vitos/crypto_portfolio_guard/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchanges []struct {
		Name       string  `yaml:"name"`
		Quote      string  `yaml:"quote"`
		FeePercent float64 `yaml:"fee_percent"`
	} `yaml:"exchanges"`
	Storage struct {
		DBPath       string `yaml:"db_path"`
		RedisAddr    string `yaml:"redis_addr"`
		CacheTTLSecs int    `yaml:"cache_ttl_seconds"`
	} `yaml:"storage"`
	MarketData struct {
		Symbols        []string `yaml:"symbols"`
		RefreshMinutes int      `yaml:"refresh_minutes"`
	} `yaml:"marketdata"`
	Strategy struct {
		DefaultMaxExposure float64  `yaml:"default_max_exposure"`
		Stablecoins        []string `yaml:"stablecoins"`
	} `yaml:"strategy"`
	Reconcile struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"reconcile"`
	Hedge struct {
		IntervalSeconds int    `yaml:"interval_seconds"`
		Platform        string `yaml:"platform"`
	} `yaml:"hedge"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// Secrets come from .env / environment, everything else from yaml.
	_ = godotenv.Load()

	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	sqlite, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}

	// The cache is opportunistic: without a redis address the store is
	// used directly.
	var balanceRepo domain.BalanceRepository = sqlite
	var tradeRepo domain.TradeRepository = sqlite
	if cfg.Storage.RedisAddr != "" {
		cache := storage.NewRedisCache(cfg.Storage.RedisAddr)
		if err := cache.Ping(context.Background()); err != nil {
			log.Warn("Redis unreachable, continuing without cache", zap.Error(err))
		} else {
			ttl := time.Duration(cfg.Storage.CacheTTLSecs) * time.Second
			cached := storage.NewCachedStore(sqlite, cache, ttl, log)
			balanceRepo = cached
			tradeRepo = cached
		}
	}

	var adapters []domain.Exchange
	var binanceAdapter *exchange.BinanceAdapter
	for _, exCfg := range cfg.Exchanges {
		switch exCfg.Name {
		case "binance":
			binanceAdapter = exchange.NewBinanceAdapter(
				os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"),
				"", "", exCfg.Quote, exCfg.FeePercent, log)
			adapters = append(adapters, binanceAdapter)
		case "kucoin":
			adapters = append(adapters, exchange.NewKucoinAdapter(
				os.Getenv("KUCOIN_API_KEY"), os.Getenv("KUCOIN_API_SECRET"),
				os.Getenv("KUCOIN_PASSPHRASE"), "", exCfg.Quote, exCfg.FeePercent, log))
		default:
			log.Fatal("Unknown exchange in config", zap.String("name", exCfg.Name))
		}
	}
	registry := exchange.NewRegistry(adapters...)

	cmc := marketdata.NewCMCClient(
		os.Getenv("CMC_API_KEY"),
		cfg.MarketData.Symbols,
		time.Duration(cfg.MarketData.RefreshMinutes)*time.Minute)

	priceCache := exchange.NewPriceCache()
	if binanceAdapter != nil {
		binanceAdapter.OnPriceUpdate(func(base string, price float64) {
			priceCache.Update("binance", base, price)
		})
	}

	reconcileSvc := usecase.NewReconcileService(registry, balanceRepo, tradeRepo, log)
	hedgeSvc := usecase.NewHedgeService(registry, balanceRepo, sqlite,
		cfg.Strategy.Stablecoins, cfg.Hedge.Platform, log)
	assetSvc := usecase.NewAssetService(registry, balanceRepo, tradeRepo, sqlite,
		cmc, priceCache, cfg.Strategy.DefaultMaxExposure, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Reconcile Loop
	go func() {
		interval := time.Duration(cfg.Reconcile.IntervalSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			for _, platform := range registry.Platforms() {
				if _, err := reconcileSvc.ReconcileBalances(ctx, platform); err != nil {
					log.Error("Reconcile pass failed",
						zap.String("platform", platform), zap.Error(err))
				}
			}

			// Keep the live price stream aligned with current holdings.
			if binanceAdapter != nil {
				balances, err := balanceRepo.GetBalances(ctx, "binance")
				if err == nil {
					var bases []string
					for _, b := range balances {
						if b.Quantity > 0 {
							bases = append(bases, b.Base)
						}
					}
					if err := binanceAdapter.SubscribeTickers(bases); err != nil {
						log.Warn("Ticker subscription failed", zap.Error(err))
					}
				}
			}

			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}()

	// Hedge Loop
	go func() {
		interval := time.Duration(cfg.Hedge.IntervalSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := hedgeSvc.HedgeAssets(ctx, nil); err != nil {
					log.Error("Hedge pass failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, reconcileSvc, hedgeSvc, assetSvc, tradeRepo, registry, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	sqlite.Close()
}
