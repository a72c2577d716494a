package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"github.com/vitos/crypto_portfolio_guard/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	reconcile *usecase.ReconcileService
	hedge     *usecase.HedgeService
	assets    *usecase.AssetService
	trades    domain.TradeRepository
	registry  domain.ExchangeRegistry
	logger    *zap.Logger
}

func NewServer(
	port int,
	reconcile *usecase.ReconcileService,
	hedge *usecase.HedgeService,
	assets *usecase.AssetService,
	trades domain.TradeRepository,
	registry domain.ExchangeRegistry,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		reconcile: reconcile,
		hedge:     hedge,
		assets:    assets,
		trades:    trades,
		registry:  registry,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /api/assets", s.handleAssets)
	s.router.HandleFunc("GET /api/trades", s.handleTrades)
	s.router.HandleFunc("POST /api/reconcile", s.handleReconcile)
	s.router.HandleFunc("POST /api/hedge", s.handleHedge)
	s.router.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
