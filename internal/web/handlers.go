package web

import (
	"encoding/json"
	"net/http"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.assets.ComputeAssetMetrics(r.Context())
	if err != nil {
		s.logger.Error("Failed to compute asset metrics", zap.Error(err))
		http.Error(w, "Failed to compute asset metrics", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, assets)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.trades.GetTrades(r.Context())
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, trades)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	if platform == "" {
		http.Error(w, "platform query parameter required", http.StatusBadRequest)
		return
	}

	count, err := s.reconcile.ReconcileBalances(r.Context(), platform)
	if err != nil {
		s.logger.Error("Reconcile failed", zap.String("platform", platform), zap.Error(err))
		http.Error(w, "Reconcile failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]int{"differences": count})
}

func (s *Server) handleHedge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Assets []domain.AssetKey `json:"assets"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	report, err := s.hedge.HedgeAssets(r.Context(), body.Assets)
	if err != nil {
		s.logger.Error("Hedge pass failed", zap.Error(err))
		http.Error(w, "Hedge pass failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, report)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"platforms": s.registry.Platforms(),
	})
}
