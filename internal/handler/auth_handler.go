// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/haffnet/portal/internal/auth"
	"github.com/haffnet/portal/internal/middleware"
	"github.com/haffnet/portal/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, input auth.RegisterInput) (*auth.AuthOutcome, error)
	Login(ctx context.Context, email, password string) (*auth.AuthOutcome, error)
	VerifyOAuthToken(ctx context.Context, input auth.OAuthInput) (*auth.AuthOutcome, error)
	VerifySession(ctx context.Context, token string) (*auth.SessionStatus, error)
	Logout(ctx context.Context, token string) error
}

// AuthRecorder はハンドラーが記録するメトリクスのインターフェース。
type AuthRecorder interface {
	RecordAuthOutcome(operation, result string)
	RecordVerifyResult(result string)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthRecorder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, metrics AuthRecorder) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
	}
}

// registerRequest はPOST /auth/registerのリクエストボディ。
type registerRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// loginRequest はPOST /auth/loginのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// oauthVerifyRequest はPOST /auth/oauth/verifyのリクエストボディ。
// provider/oauthId/emailはIdP検証済みの値として受け取る。
type oauthVerifyRequest struct {
	Provider  string  `json:"provider"`
	OAuthID   string  `json:"oauthId"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// authSuccessResponse は認証成功時のレスポンスボディ。
type authSuccessResponse struct {
	Success      bool             `json:"success"`
	SessionToken string           `json:"sessionToken"`
	User         model.PublicUser `json:"user"`
}

// sessionStatusResponse はGET /auth/sessionのレスポンスボディ。
type sessionStatusResponse struct {
	Valid bool              `json:"valid"`
	User  *model.PublicUser `json:"user,omitempty"`
	Error string            `json:"error,omitempty"`
}

// Register はメール+パスワードで新規登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if msg, ok := validateCredentials(req.Email, req.Password); !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(msg))
		return
	}

	outcome, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		slog.Error("register failed", slog.String("error", err.Error()))
		h.metrics.RecordAuthOutcome("register", model.ErrCodeInternalError)
		middleware.WriteInternalServerError(w)
		return
	}

	h.writeOutcome(w, "register", outcome, http.StatusConflict)
}

// Login はメール+パスワードでログインする。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Email and password are required"))
		return
	}

	outcome, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Error("login failed", slog.String("error", err.Error()))
		h.metrics.RecordAuthOutcome("login", model.ErrCodeInternalError)
		middleware.WriteInternalServerError(w)
		return
	}

	h.writeOutcome(w, "login", outcome, http.StatusUnauthorized)
}

// VerifyOAuth はIdP検証済みのOAuthアイデンティティからセッションを発行する。
// POST /auth/oauth/verify
func (h *AuthHandler) VerifyOAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if req.Provider == "" || req.OAuthID == "" || strings.TrimSpace(req.Email) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("provider, oauthId and email are required"))
		return
	}

	outcome, err := h.service.VerifyOAuthToken(r.Context(), auth.OAuthInput{
		Provider:  req.Provider,
		OAuthID:   req.OAuthID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		slog.Error("oauth verify failed", slog.String("error", err.Error()))
		h.metrics.RecordAuthOutcome("oauth", model.ErrCodeInternalError)
		middleware.WriteInternalServerError(w)
		return
	}

	h.writeOutcome(w, "oauth", outcome, http.StatusConflict)
}

// Session はBearerトークンのセッションを検証し現在のユーザーを返す。
// 有効・無効にかかわらず200で応答する（無効はvalid:falseで表現）。
// GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		h.metrics.RecordVerifyResult(model.ErrCodeSessionNotFound)
		middleware.WriteJSON(w, http.StatusOK, sessionStatusResponse{
			Valid: false,
			Error: model.ErrCodeSessionNotFound,
		})
		return
	}

	status, err := h.service.VerifySession(r.Context(), token)
	if err != nil {
		slog.Error("session verify failed", slog.String("error", err.Error()))
		h.metrics.RecordVerifyResult(model.ErrCodeInternalError)
		middleware.WriteInternalServerError(w)
		return
	}

	if !status.Valid {
		h.metrics.RecordVerifyResult(status.ErrorCode)
		middleware.WriteJSON(w, http.StatusOK, sessionStatusResponse{
			Valid: false,
			Error: status.ErrorCode,
		})
		return
	}

	h.metrics.RecordVerifyResult("valid")
	user := status.User
	middleware.WriteJSON(w, http.StatusOK, sessionStatusResponse{
		Valid: true,
		User:  &user,
	})
}

// logoutRequest はBearerヘッダーを送れないクライアント向けのボディフォールバック。
type logoutRequest struct {
	SessionToken string `json:"sessionToken"`
}

// Logout はセッションを破棄する。トークン不明でも常に成功を返す（冪等）。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		var req logoutRequest
		// ボディ無しも許容する
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.SessionToken
		}
	}

	if token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			slog.Error("logout failed", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
			return
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeOutcome は認証結果をHTTPレスポンスへ変換する共通処理。
// failureStatusは業務上の失敗（USER_EXISTS等）に対応するステータスコード。
func (h *AuthHandler) writeOutcome(w http.ResponseWriter, operation string, outcome *auth.AuthOutcome, failureStatus int) {
	if outcome.Failure != nil {
		h.metrics.RecordAuthOutcome(operation, outcome.Failure.Code)
		middleware.WriteErrorResponse(w, failureStatus, outcome.Failure)
		return
	}

	h.metrics.RecordAuthOutcome(operation, "success")
	middleware.WriteJSON(w, http.StatusOK, authSuccessResponse{
		Success:      true,
		SessionToken: outcome.SessionToken,
		User:         outcome.User,
	})
}

// validateCredentials は登録時のメール・パスワードの形式を検証する。
func validateCredentials(email, password string) (string, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "Email is required", false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "Email address is malformed", false
	}
	if password == "" {
		return "Password is required", false
	}
	return "", true
}
