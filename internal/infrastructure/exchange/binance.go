package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"go.uber.org/zap"
)

const (
	BinanceBaseURL = "https://api.binance.com"
	BinanceWSURL   = "wss://stream.binance.com:9443/ws"
)

type BinanceAdapter struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	wsURL      string
	quote      string
	feePercent float64
	client     *http.Client
	logger     *zap.Logger

	wsConn    *websocket.Conn
	callbacks []func(base string, price float64)
	mu        sync.Mutex
}

func NewBinanceAdapter(apiKey, apiSecret, baseURL, wsURL, quote string, feePercent float64, logger *zap.Logger) *BinanceAdapter {
	if baseURL == "" {
		baseURL = BinanceBaseURL
	}
	if wsURL == "" {
		wsURL = BinanceWSURL
	}
	return &BinanceAdapter{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		wsURL:      wsURL,
		quote:      quote,
		feePercent: feePercent,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (b *BinanceAdapter) Name() string {
	return "binance"
}

func (b *BinanceAdapter) FeePercent() float64 {
	return b.feePercent
}

func (b *BinanceAdapter) symbol(base string) string {
	return strings.ToUpper(base) + b.quote
}

func (b *BinanceAdapter) base(symbol string) string {
	return strings.TrimSuffix(symbol, b.quote)
}

// --- REST API ---

func (b *BinanceAdapter) sign(query string) string {
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// sendSigned issues an authenticated request; params go in the query string
// with a timestamp and HMAC signature appended.
func (b *BinanceAdapter) sendSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")

	query := params.Encode()
	query += "&signature=" + b.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("binance API error: %s", string(body))
	}
	return body, nil
}

func (b *BinanceAdapter) FetchBalances(ctx context.Context) ([]domain.Balance, error) {
	resp, err := b.sendSigned(ctx, "GET", "/api/v3/account", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	var balances []domain.Balance
	for _, raw := range result.Balances {
		free, _ := strconv.ParseFloat(raw.Free, 64)
		locked, _ := strconv.ParseFloat(raw.Locked, 64)
		if free+locked == 0 {
			continue
		}
		balances = append(balances, domain.Balance{
			Platform:  b.Name(),
			Base:      raw.Asset,
			Quantity:  free + locked,
			Available: free,
		})
	}
	return balances, nil
}

func (b *BinanceAdapter) FetchTicker(ctx context.Context, base string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET",
		b.baseURL+"/api/v3/ticker/price?symbol="+b.symbol(base), nil)
	if err != nil {
		return 0, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("binance ticker error: %s", string(body))
	}

	var result struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(result.Price, 64)
}

func (b *BinanceAdapter) FetchTrades(ctx context.Context, base string) ([]domain.Trade, error) {
	params := url.Values{}
	params.Set("symbol", b.symbol(base))

	resp, err := b.sendSigned(ctx, "GET", "/api/v3/myTrades", params)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		OrderID         int64  `json:"orderId"`
		Price           string `json:"price"`
		Qty             string `json:"qty"`
		QuoteQty        string `json:"quoteQty"`
		Commission      string `json:"commission"`
		CommissionAsset string `json:"commissionAsset"`
		Time            int64  `json:"time"`
		IsBuyer         bool   `json:"isBuyer"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, err
	}

	trades := make([]domain.Trade, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		amount, _ := strconv.ParseFloat(r.Qty, 64)
		total, _ := strconv.ParseFloat(r.QuoteQty, 64)
		fee, _ := strconv.ParseFloat(r.Commission, 64)

		side := domain.SideSell
		if r.IsBuyer {
			side = domain.SideBuy
		}
		trades = append(trades, domain.Trade{
			Base:        strings.ToUpper(base),
			Quote:       b.quote,
			Pair:        b.symbol(base),
			Side:        side,
			Price:       price,
			Amount:      amount,
			Total:       total,
			Fee:         fee,
			FeeCurrency: r.CommissionAsset,
			Timestamp:   time.UnixMilli(r.Time),
			Platform:    b.Name(),
			OrderID:     strconv.FormatInt(r.OrderID, 10),
		})
	}
	return trades, nil
}

func (b *BinanceAdapter) FetchOpenOrders(ctx context.Context, base string) ([]domain.Order, error) {
	params := url.Values{}
	if base != "" {
		params.Set("symbol", b.symbol(base))
	}

	resp, err := b.sendSigned(ctx, "GET", "/api/v3/openOrders", params)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		OrderID   int64  `json:"orderId"`
		Symbol    string `json:"symbol"`
		Side      string `json:"side"`
		Type      string `json:"type"`
		Price     string `json:"price"`
		StopPrice string `json:"stopPrice"`
		OrigQty   string `json:"origQty"`
		Time      int64  `json:"time"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		stopPrice, _ := strconv.ParseFloat(r.StopPrice, 64)
		amount, _ := strconv.ParseFloat(r.OrigQty, 64)

		orderType := "limit"
		if strings.HasPrefix(r.Type, "STOP_LOSS") {
			orderType = "stop_loss"
		}
		side := domain.SideBuy
		if r.Side == "SELL" {
			side = domain.SideSell
		}
		orders = append(orders, domain.Order{
			ID:        strconv.FormatInt(r.OrderID, 10),
			Platform:  b.Name(),
			Base:      b.base(r.Symbol),
			Pair:      r.Symbol,
			Side:      side,
			Type:      orderType,
			Price:     price,
			StopPrice: stopPrice,
			Amount:    amount,
			CreatedAt: time.UnixMilli(r.Time),
		})
	}
	return orders, nil
}

func (b *BinanceAdapter) CancelOrders(ctx context.Context, base string, orderIDs []string) error {
	for _, id := range orderIDs {
		params := url.Values{}
		params.Set("symbol", b.symbol(base))
		params.Set("orderId", id)
		if _, err := b.sendSigned(ctx, "DELETE", "/api/v3/order", params); err != nil {
			return fmt.Errorf("cancel order %s: %w", id, err)
		}
	}
	return nil
}

func (b *BinanceAdapter) PlaceStopLossOrder(ctx context.Context, base string, amount, stopPrice float64) (string, error) {
	params := url.Values{}
	params.Set("symbol", b.symbol(base))
	params.Set("side", "SELL")
	params.Set("type", "STOP_LOSS_LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", strconv.FormatFloat(amount, 'f', 8, 64))
	params.Set("stopPrice", strconv.FormatFloat(stopPrice, 'f', 8, 64))
	// Limit price slightly under the trigger so the order fills through a
	// fast move.
	params.Set("price", strconv.FormatFloat(stopPrice*0.995, 'f', 8, 64))

	resp, err := b.sendSigned(ctx, "POST", "/api/v3/order", params)
	if err != nil {
		return "", err
	}

	var result struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	return strconv.FormatInt(result.OrderID, 10), nil
}

// --- WebSocket ---

// OnPriceUpdate registers a callback for live miniTicker prices.
func (b *BinanceAdapter) OnPriceUpdate(callback func(base string, price float64)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, callback)
}

// SubscribeTickers connects the stream if needed and subscribes to the
// miniTicker channel of every base.
func (b *BinanceAdapter) SubscribeTickers(bases []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wsConn == nil {
		c, _, err := websocket.DefaultDialer.Dial(b.wsURL, nil)
		if err != nil {
			return err
		}
		b.wsConn = c
		go b.readLoop()
	}
	return b.subscribe(bases)
}

func (b *BinanceAdapter) subscribe(bases []string) error {
	if len(bases) == 0 {
		return nil
	}
	params := make([]string, len(bases))
	for i, base := range bases {
		params[i] = strings.ToLower(b.symbol(base)) + "@miniTicker"
	}
	return b.wsConn.WriteJSON(map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     time.Now().UnixMilli(),
	})
}

func (b *BinanceAdapter) readLoop() {
	defer func() {
		b.wsConn.Close()
		b.mu.Lock()
		b.wsConn = nil
		b.mu.Unlock()
	}()

	for {
		_, message, err := b.wsConn.ReadMessage()
		if err != nil {
			b.logger.Warn("WS read error", zap.Error(err))
			return
		}

		var event struct {
			EventType string `json:"e"`
			Symbol    string `json:"s"`
			Close     string `json:"c"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		if event.EventType != "24hrMiniTicker" {
			continue
		}

		price, err := strconv.ParseFloat(event.Close, 64)
		if err != nil || price <= 0 {
			continue
		}

		b.mu.Lock()
		callbacks := b.callbacks
		b.mu.Unlock()
		for _, cb := range callbacks {
			cb(b.base(event.Symbol), price)
		}
	}
}
