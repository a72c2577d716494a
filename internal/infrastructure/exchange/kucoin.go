package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vitos/crypto_portfolio_guard/internal/domain"
	"go.uber.org/zap"
)

const KucoinBaseURL = "https://api.kucoin.com"

type KucoinAdapter struct {
	apiKey     string
	apiSecret  string
	passphrase string
	baseURL    string
	quote      string
	feePercent float64
	client     *http.Client
	logger     *zap.Logger
}

func NewKucoinAdapter(apiKey, apiSecret, passphrase, baseURL, quote string, feePercent float64, logger *zap.Logger) *KucoinAdapter {
	if baseURL == "" {
		baseURL = KucoinBaseURL
	}
	return &KucoinAdapter{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		baseURL:    baseURL,
		quote:      quote,
		feePercent: feePercent,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (k *KucoinAdapter) Name() string {
	return "kucoin"
}

func (k *KucoinAdapter) FeePercent() float64 {
	return k.feePercent
}

func (k *KucoinAdapter) symbol(base string) string {
	return strings.ToUpper(base) + "-" + k.quote
}

func (k *KucoinAdapter) base(symbol string) string {
	return strings.TrimSuffix(symbol, "-"+k.quote)
}

// --- REST API ---

func (k *KucoinAdapter) hmacB64(payload string) string {
	h := hmac.New(sha256.New, []byte(k.apiSecret))
	h.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// sendRequest signs per KC API v2: base64 HMAC of timestamp+method+path+body,
// passphrase signed the same way.
func (k *KucoinAdapter) sendRequest(ctx context.Context, method, path string, payload map[string]interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("KC-API-KEY", k.apiKey)
	req.Header.Set("KC-API-SIGN", k.hmacB64(timestamp+method+path+string(body)))
	req.Header.Set("KC-API-TIMESTAMP", timestamp)
	req.Header.Set("KC-API-PASSPHRASE", k.hmacB64(k.passphrase))
	req.Header.Set("KC-API-KEY-VERSION", "2")
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("kucoin API error: %s", string(respBody))
	}
	return respBody, nil
}

func (k *KucoinAdapter) checkCode(resp []byte) error {
	var envelope struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return err
	}
	if envelope.Code != "200000" {
		return fmt.Errorf("kucoin error %s: %s", envelope.Code, envelope.Msg)
	}
	return nil
}

func (k *KucoinAdapter) FetchBalances(ctx context.Context) ([]domain.Balance, error) {
	resp, err := k.sendRequest(ctx, "GET", "/api/v1/accounts?type=trade", nil)
	if err != nil {
		return nil, err
	}
	if err := k.checkCode(resp); err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			Currency  string `json:"currency"`
			Balance   string `json:"balance"`
			Available string `json:"available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	var balances []domain.Balance
	for _, raw := range result.Data {
		quantity, _ := strconv.ParseFloat(raw.Balance, 64)
		available, _ := strconv.ParseFloat(raw.Available, 64)
		if quantity == 0 {
			continue
		}
		balances = append(balances, domain.Balance{
			Platform:  k.Name(),
			Base:      raw.Currency,
			Quantity:  quantity,
			Available: available,
		})
	}
	return balances, nil
}

func (k *KucoinAdapter) FetchTicker(ctx context.Context, base string) (float64, error) {
	resp, err := k.sendRequest(ctx, "GET", "/api/v1/market/orderbook/level1?symbol="+k.symbol(base), nil)
	if err != nil {
		return 0, err
	}
	if err := k.checkCode(resp); err != nil {
		return 0, err
	}

	var result struct {
		Data struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, err
	}
	if result.Data.Price == "" {
		return 0, fmt.Errorf("no ticker for %s", k.symbol(base))
	}
	return strconv.ParseFloat(result.Data.Price, 64)
}

func (k *KucoinAdapter) FetchTrades(ctx context.Context, base string) ([]domain.Trade, error) {
	resp, err := k.sendRequest(ctx, "GET", "/api/v1/fills?symbol="+k.symbol(base), nil)
	if err != nil {
		return nil, err
	}
	if err := k.checkCode(resp); err != nil {
		return nil, err
	}

	var result struct {
		Data struct {
			Items []struct {
				Symbol      string `json:"symbol"`
				OrderID     string `json:"orderId"`
				Side        string `json:"side"`
				Price       string `json:"price"`
				Size        string `json:"size"`
				Funds       string `json:"funds"`
				Fee         string `json:"fee"`
				FeeCurrency string `json:"feeCurrency"`
				CreatedAt   int64  `json:"createdAt"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	trades := make([]domain.Trade, 0, len(result.Data.Items))
	for _, r := range result.Data.Items {
		price, _ := strconv.ParseFloat(r.Price, 64)
		amount, _ := strconv.ParseFloat(r.Size, 64)
		total, _ := strconv.ParseFloat(r.Funds, 64)
		fee, _ := strconv.ParseFloat(r.Fee, 64)

		side := domain.SideBuy
		if r.Side == "sell" {
			side = domain.SideSell
		}
		trades = append(trades, domain.Trade{
			Base:        strings.ToUpper(base),
			Quote:       k.quote,
			Pair:        r.Symbol,
			Side:        side,
			Price:       price,
			Amount:      amount,
			Total:       total,
			Fee:         fee,
			FeeCurrency: r.FeeCurrency,
			Timestamp:   time.UnixMilli(r.CreatedAt),
			Platform:    k.Name(),
			OrderID:     r.OrderID,
		})
	}
	return trades, nil
}

// FetchOpenOrders merges active limit orders and untriggered stop orders.
func (k *KucoinAdapter) FetchOpenOrders(ctx context.Context, base string) ([]domain.Order, error) {
	symbolParam := ""
	if base != "" {
		symbolParam = "&symbol=" + k.symbol(base)
	}

	orders, err := k.fetchOrderPage(ctx, "/api/v1/orders?status=active"+symbolParam, "limit")
	if err != nil {
		return nil, err
	}
	stops, err := k.fetchOrderPage(ctx, "/api/v1/stop-order?status=NEW"+symbolParam, "stop_loss")
	if err != nil {
		return nil, err
	}
	return append(orders, stops...), nil
}

func (k *KucoinAdapter) fetchOrderPage(ctx context.Context, path, orderType string) ([]domain.Order, error) {
	resp, err := k.sendRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	if err := k.checkCode(resp); err != nil {
		return nil, err
	}

	var result struct {
		Data struct {
			Items []struct {
				ID        string `json:"id"`
				Symbol    string `json:"symbol"`
				Side      string `json:"side"`
				Price     string `json:"price"`
				StopPrice string `json:"stopPrice"`
				Size      string `json:"size"`
				CreatedAt int64  `json:"createdAt"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(result.Data.Items))
	for _, r := range result.Data.Items {
		price, _ := strconv.ParseFloat(r.Price, 64)
		stopPrice, _ := strconv.ParseFloat(r.StopPrice, 64)
		amount, _ := strconv.ParseFloat(r.Size, 64)

		side := domain.SideBuy
		if r.Side == "sell" {
			side = domain.SideSell
		}
		orders = append(orders, domain.Order{
			ID:        r.ID,
			Platform:  k.Name(),
			Base:      k.base(r.Symbol),
			Pair:      r.Symbol,
			Side:      side,
			Type:      orderType,
			Price:     price,
			StopPrice: stopPrice,
			Amount:    amount,
			CreatedAt: time.UnixMilli(r.CreatedAt),
		})
	}
	return orders, nil
}

// CancelOrders tries the stop-order endpoint first; ids of plain limit
// orders fall through to the orders endpoint.
func (k *KucoinAdapter) CancelOrders(ctx context.Context, base string, orderIDs []string) error {
	for _, id := range orderIDs {
		resp, err := k.sendRequest(ctx, "DELETE", "/api/v1/stop-order/"+id, nil)
		if err == nil && k.checkCode(resp) == nil {
			continue
		}
		resp, err = k.sendRequest(ctx, "DELETE", "/api/v1/orders/"+id, nil)
		if err != nil {
			return fmt.Errorf("cancel order %s: %w", id, err)
		}
		if err := k.checkCode(resp); err != nil {
			return fmt.Errorf("cancel order %s: %w", id, err)
		}
	}
	return nil
}

func (k *KucoinAdapter) PlaceStopLossOrder(ctx context.Context, base string, amount, stopPrice float64) (string, error) {
	payload := map[string]interface{}{
		"clientOid": fmt.Sprintf("%d", time.Now().UnixNano()),
		"side":      "sell",
		"symbol":    k.symbol(base),
		"type":      "limit",
		"stop":      "loss",
		"stopPrice": strconv.FormatFloat(stopPrice, 'f', 8, 64),
		"price":     strconv.FormatFloat(stopPrice*0.995, 'f', 8, 64),
		"size":      strconv.FormatFloat(amount, 'f', 8, 64),
	}

	resp, err := k.sendRequest(ctx, "POST", "/api/v1/stop-order", payload)
	if err != nil {
		return "", err
	}
	if err := k.checkCode(resp); err != nil {
		return "", err
	}

	var result struct {
		Data struct {
			OrderID string `json:"orderId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	return result.Data.OrderID, nil
}
