// Package checkout は外部バックエンドの決済フロー連携機能を提供する。
// セッション作成と決済確定の2段階の呼び出しを仲介する。
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/haffnet/portal/internal/model"
)

// maxResponseBytes は決済APIレスポンスの最大読み取りサイズ。
const maxResponseBytes = 1 * 1024 * 1024

// CreateSessionInput は決済セッション作成の入力。
type CreateSessionInput struct {
	OrganizationID string            `json:"organizationId"`
	ProductID      string            `json:"productId"`
	Quantity       int               `json:"quantity,omitempty"`
	CustomerEmail  string            `json:"customerEmail"`
	CustomerName   string            `json:"customerName"`
	CustomerPhone  string            `json:"customerPhone,omitempty"`
	PaymentMethod  string            `json:"paymentMethod"` // free / stripe / invoice
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Session は作成済みの決済セッション。
type Session struct {
	SessionID        string `json:"sessionId"`
	OrganizationID   string `json:"organizationId"`
	ProductID        string `json:"productId"`
	CustomerEmail    string `json:"customerEmail"`
	CustomerName     string `json:"customerName"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	PaymentMethod    string `json:"paymentMethod"`
	Status           string `json:"status"`
	CreatedAt        int64  `json:"createdAt"`
	StripeSessionURL string `json:"stripeSessionUrl,omitempty"`
}

// ConfirmInput は決済確定の入力。
type ConfirmInput struct {
	SessionID         string `json:"sessionId"`
	CheckoutSessionID string `json:"checkoutSessionId"`
	// PaymentIntentID は"free"、"invoice"、またはStripeのpayment intent ID。
	PaymentIntentID string `json:"paymentIntentId"`
}

// Result は決済確定の結果。
type Result struct {
	Success       bool   `json:"success"`
	TicketID      string `json:"ticketId,omitempty"`
	TicketNumber  string `json:"ticketNumber,omitempty"`
	QRCode        string `json:"qrCode,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	InvoiceID     string `json:"invoiceId,omitempty"`
}

// Client は外部バックエンドの決済APIクライアント。
// 全リクエストにBearer APIキーを付与する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// backendEnvelope は決済APIのレスポンスエンベロープ。
type backendEnvelope struct {
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CreateSession は決済セッションを作成する。
// 業務上の失敗（商品不正、申込締切等）はAPIErrorで、
// 通信失敗・サーバー障害はGoのエラーで返す。
func (c *Client) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, *model.APIError, error) {
	raw, apiErr, err := c.post(ctx, "/checkout/sessions", input)
	if err != nil || apiErr != nil {
		return nil, apiErr, err
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}
	return &session, nil, nil
}

// Confirm は決済を確定する。
// セッション作成と同様に業務失敗と通信失敗を区別して返す。
func (c *Client) Confirm(ctx context.Context, input ConfirmInput) (*Result, *model.APIError, error) {
	raw, apiErr, err := c.post(ctx, "/checkout/confirm", input)
	if err != nil || apiErr != nil {
		return nil, apiErr, err
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to parse checkout result: %w", err)
	}
	result.Success = true
	return &result, nil, nil
}

// post はBearer APIキー付きでPOSTリクエストを実行する。
// 4xxレスポンスは業務失敗（PAYMENT_FAILED）、5xxと通信エラーはGoのエラーにする。
func (c *Client) post(ctx context.Context, endpoint string, payload any) (json.RawMessage, *model.APIError, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("checkout API request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, nil, fmt.Errorf("checkout API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read checkout response: %w", err)
	}

	var envelope backendEnvelope
	// 非JSONレスポンスはエンベロープ空のまま扱う
	_ = json.Unmarshal(respBody, &envelope)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if envelope.Data != nil {
			return envelope.Data, nil, nil
		}
		return respBody, nil, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// 業務上の拒否。バックエンドのメッセージをそのまま利用者に届ける
		reason := envelope.Message
		if reason == "" {
			reason = fmt.Sprintf("checkout rejected with status %d", resp.StatusCode)
		}
		c.logger.Warn("checkout rejected by backend",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewPaymentFailedError(reason), nil

	default:
		c.logger.Error("checkout API returned error status",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, nil, fmt.Errorf("checkout API returned status %d", resp.StatusCode)
	}
}
