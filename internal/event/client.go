// Package event は外部バックエンドのイベントカタログ連携機能を提供する。
// カタログAPIの呼び出し、定員情報の算出、説明文のサニタイズを含む。
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/haffnet/portal/internal/security"
)

// maxResponseBytes はカタログAPIレスポンスの最大読み取りサイズ。
const maxResponseBytes = 5 * 1024 * 1024

// Event はカタログAPIが返すイベント。
// 定員関連フィールドはサーバー側で算出して付与する。
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
	Status      string `json:"status,omitempty"`

	StartDate int64  `json:"startDate,omitempty"` // エポックミリ秒
	EndDate   int64  `json:"endDate,omitempty"`   // エポックミリ秒
	Location  string `json:"location,omitempty"`

	Capacity      *int `json:"capacity,omitempty"`      // 最大定員。nilは無制限
	Registrations int  `json:"registrations,omitempty"` // 現在の申込数

	// 算出フィールド
	SpotsRemaining *int   `json:"spotsRemaining,omitempty"`
	CapacityText   string `json:"capacityText,omitempty"`
	SpotsText      string `json:"spotsText,omitempty"`
	WarningText    string `json:"warningText,omitempty"`
}

// ListParams はイベント一覧取得のクエリパラメータ。
type ListParams struct {
	Subtype   string
	Status    string
	Upcoming  bool
	StartDate int64 // エポックミリ秒。0は未指定
	EndDate   int64
	Limit     int
	Offset    int
}

// ListResult はイベント一覧取得の結果。
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
}

// Client は外部バックエンドのイベントカタログAPIクライアント。
// 全リクエストにBearer APIキーを付与する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	sanitizer  security.ContentSanitizerService
	baseURL    string
	apiKey     string

	// now は「今後の開催のみ」フィルタの基準時刻。テストで差し替える。
	now func() int64
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, sanitizer security.ContentSanitizerService, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		sanitizer:  sanitizer,
		baseURL:    baseURL,
		apiKey:     apiKey,
		now:        func() int64 { return time.Now().UnixMilli() },
	}
}

// List は公開イベントの一覧を取得する。
// Upcoming=trueの場合は現在時刻以降に開始するイベントに絞り込む。
// 説明文はサニタイズ済み、定員表示フィールドは算出済みで返す。
func (c *Client) List(ctx context.Context, params ListParams) (*ListResult, error) {
	q := url.Values{}
	if params.Subtype != "" {
		q.Set("subtype", params.Subtype)
	}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.Upcoming {
		q.Set("startDate", strconv.FormatInt(c.now(), 10))
	}
	if params.StartDate > 0 {
		q.Set("startDate", strconv.FormatInt(params.StartDate, 10))
	}
	if params.EndDate > 0 {
		q.Set("endDate", strconv.FormatInt(params.EndDate, 10))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	endpoint := "/events"
	if query := q.Encode(); query != "" {
		endpoint += "?" + query
	}

	var result ListResult
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	for i := range result.Events {
		c.decorate(&result.Events[i])
	}

	return &result, nil
}

// Get はイベントをIDで取得する。存在しない場合はnilを返す。
func (c *Client) Get(ctx context.Context, eventID string) (*Event, error) {
	var event Event
	err := c.getJSON(ctx, "/events/"+url.PathEscape(eventID), &event)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	c.decorate(&event)
	return &event, nil
}

// decorate は説明文のサニタイズと定員表示フィールドの算出を行う。
func (c *Client) decorate(e *Event) {
	e.Description = c.sanitizer.Sanitize(e.Description)

	info := ComputeCapacity(e.Capacity, e.Registrations)
	e.SpotsRemaining = info.SpotsRemaining
	e.CapacityText = info.CapacityText
	e.SpotsText = info.SpotsText
	e.WarningText = info.WarningText
}

// statusError はカタログAPIの非200レスポンスを表す。
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("catalog API returned status %d", e.code)
}

// isNotFound はエラーが404レスポンス由来かを判定する。
func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

// getJSON はBearer APIキー付きでGETリクエストを実行し、JSONレスポンスをデコードする。
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("catalog API request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("catalog API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("catalog API returned error status",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read catalog response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse catalog response: %w", err)
	}

	return nil
}
