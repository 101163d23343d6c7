package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/haffnet/portal/internal/model"
)

// Status は外部から観測できる認証状態。
type Status int

const (
	// StatusUnauthenticated は未ログイン状態。
	StatusUnauthenticated Status = iota
	// StatusAuthenticating は認証処理中（ローディング）状態。
	StatusAuthenticating
	// StatusAuthenticated はログイン済み状態。
	StatusAuthenticated
)

// String はStatusの表示名を返す。
func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Result は認証操作の結果。例外をUIに漏らさず、全経路がこの型に収束する。
type Result struct {
	Success bool
	User    model.PublicUser
	// ErrorCode はSuccess=falseのときのコード。
	// 通信自体の失敗はNETWORK_ERRORで、業務上の失敗と区別される。
	ErrorCode string
	Message   string
}

// Client はポータルAPIの認証エンドポイントを呼び出すアダプター。
// スレッドセーフ。状態は常にサーバー検証に基づいて更新される。
type Client struct {
	httpClient *http.Client
	baseURL    string
	store      *CredentialsStore
	logger     *slog.Logger

	mu     sync.RWMutex
	status Status
	token  string
	user   model.PublicUser
}

// NewClient はClientを生成する。
// storeに保存済みトークンがあってもBootstrapを呼ぶまで未ログイン扱い。
func NewClient(httpClient *http.Client, baseURL string, store *CredentialsStore, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		store:      store,
		logger:     logger,
		status:     StatusUnauthenticated,
	}
}

// Bootstrap は保存済みトークンの検証を行い初期状態を確定する。
// トークンが無い、または検証に失敗した場合はキャッシュを消去して未ログインにする。
func (c *Client) Bootstrap(ctx context.Context) Status {
	creds, err := c.store.Load()
	if err != nil || creds == nil {
		c.setUnauthenticated()
		return StatusUnauthenticated
	}

	c.mu.Lock()
	c.status = StatusAuthenticating
	c.token = creds.Token
	c.mu.Unlock()

	valid, user := c.verifyRemote(ctx, creds.Token)
	if !valid {
		c.setUnauthenticated()
		_ = c.store.Clear()
		return StatusUnauthenticated
	}

	c.setAuthenticated(creds.Token, user)
	return StatusAuthenticated
}

// Status は現在の認証状態をサーバー検証で再導出して返す。
// ローカルキャッシュはヒントに過ぎず、ここでの検証結果が常に優先される。
func (c *Client) Status(ctx context.Context) (Status, model.PublicUser) {
	c.mu.RLock()
	token := c.token
	status := c.status
	c.mu.RUnlock()

	if token == "" || status == StatusUnauthenticated {
		return StatusUnauthenticated, model.PublicUser{}
	}

	valid, user := c.verifyRemote(ctx, token)
	if !valid {
		c.setUnauthenticated()
		_ = c.store.Clear()
		return StatusUnauthenticated, model.PublicUser{}
	}

	c.setAuthenticated(token, user)
	return StatusAuthenticated, user
}

// CurrentUser はローカルに保持しているユーザープロジェクションを返す。
// 表示用のヒントであり、保護された操作の前にはStatusで再検証すること。
func (c *Client) CurrentUser() (model.PublicUser, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.status == StatusAuthenticated
}

// Register は新規登録を行い、成功時にトークンを保存してログイン状態にする。
func (c *Client) Register(ctx context.Context, email, password string, firstName, lastName, phone *string) Result {
	payload := map[string]any{
		"email":    email,
		"password": password,
	}
	if firstName != nil {
		payload["firstName"] = *firstName
	}
	if lastName != nil {
		payload["lastName"] = *lastName
	}
	if phone != nil {
		payload["phone"] = *phone
	}
	return c.authenticate(ctx, "/auth/register", payload)
}

// Login はログインを行い、成功時にトークンを保存してログイン状態にする。
func (c *Client) Login(ctx context.Context, email, password string) Result {
	return c.authenticate(ctx, "/auth/login", map[string]any{
		"email":    email,
		"password": password,
	})
}

// VerifyOAuth はIdP検証済みのOAuthアイデンティティでログインする。
func (c *Client) VerifyOAuth(ctx context.Context, provider, oauthID, email string, firstName, lastName *string) Result {
	payload := map[string]any{
		"provider": provider,
		"oauthId":  oauthID,
		"email":    email,
	}
	if firstName != nil {
		payload["firstName"] = *firstName
	}
	if lastName != nil {
		payload["lastName"] = *lastName
	}
	return c.authenticate(ctx, "/auth/oauth/verify", payload)
}

// Logout はサーバーへの破棄呼び出しを投げ、結果を待たずにローカル状態を消去する。
// サーバー側の失敗はログのみに記録する（トークンは期限で自然消滅する）。
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token != "" {
		go func() {
			revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(revokeCtx, http.MethodPost, c.baseURL+"/auth/logout", nil)
			if err != nil {
				return
			}
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				c.logger.Warn("logout request failed", slog.String("error", err.Error()))
				return
			}
			resp.Body.Close()
		}()
	}

	c.setUnauthenticated()
	_ = c.store.Clear()
}

// authenticate はregister/login/oauth verifyの共通処理。
// 呼び出し中はauthenticating状態になり、結果に応じて遷移する。
func (c *Client) authenticate(ctx context.Context, endpoint string, payload map[string]any) Result {
	c.mu.Lock()
	c.status = StatusAuthenticating
	c.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		c.setUnauthenticated()
		return networkFailure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		c.setUnauthenticated()
		return networkFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setUnauthenticated()
		return networkFailure(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.setUnauthenticated()
		return networkFailure(err)
	}

	var parsed struct {
		Success      bool             `json:"success"`
		SessionToken string           `json:"sessionToken"`
		User         model.PublicUser `json:"user"`
		Error        string           `json:"error"`
		Message      string           `json:"message"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.setUnauthenticated()
		return networkFailure(fmt.Errorf("unexpected response: %w", err))
	}

	if !parsed.Success {
		c.setUnauthenticated()
		return Result{
			ErrorCode: parsed.Error,
			Message:   parsed.Message,
		}
	}

	c.setAuthenticated(parsed.SessionToken, parsed.User)
	if err := c.store.Save(&Credentials{Token: parsed.SessionToken, User: parsed.User}); err != nil {
		// 永続化失敗はセッション自体には影響しない
		c.logger.Warn("failed to persist credentials", slog.String("error", err.Error()))
	}

	return Result{Success: true, User: parsed.User}
}

// verifyRemote はGET /auth/sessionでトークンを検証する。
// 通信失敗は検証失敗として扱う（フェイルクローズ）。
func (c *Client) verifyRemote(ctx context.Context, token string) (bool, model.PublicUser) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/session", nil)
	if err != nil {
		return false, model.PublicUser{}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("session verification request failed", slog.String("error", err.Error()))
		return false, model.PublicUser{}
	}
	defer resp.Body.Close()

	var parsed struct {
		Valid bool             `json:"valid"`
		User  model.PublicUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, model.PublicUser{}
	}

	return parsed.Valid, parsed.User
}

func (c *Client) setAuthenticated(token string, user model.PublicUser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusAuthenticated
	c.token = token
	c.user = user
}

func (c *Client) setUnauthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusUnauthenticated
	c.token = ""
	c.user = model.PublicUser{}
}

// networkFailure は通信エラーをNETWORK_ERRORのResultに変換する。
func networkFailure(err error) Result {
	return Result{
		ErrorCode: model.ErrCodeNetworkError,
		Message:   fmt.Sprintf("Network error: %s", err.Error()),
	}
}
