package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/haffnet/portal/internal/checkout"
	"github.com/haffnet/portal/internal/middleware"
	"github.com/haffnet/portal/internal/model"
)

// CheckoutServiceInterface は決済ハンドラーが必要とするクライアントのインターフェース。
type CheckoutServiceInterface interface {
	CreateSession(ctx context.Context, input checkout.CreateSessionInput) (*checkout.Session, *model.APIError, error)
	Confirm(ctx context.Context, input checkout.ConfirmInput) (*checkout.Result, *model.APIError, error)
}

// CheckoutHandler は決済フローのHTTPハンドラー。
// セッションミドルウェアの内側に配置され、認証済みユーザーのみが到達する。
type CheckoutHandler struct {
	service CheckoutServiceInterface
}

// NewCheckoutHandler はCheckoutHandlerを生成する。
func NewCheckoutHandler(service CheckoutServiceInterface) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// CreateSession は決済セッションを作成する。
// 顧客メールアドレスが未指定の場合はログイン中ユーザーのものを使う。
// POST /api/checkout/sessions
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var input checkout.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if input.CustomerEmail == "" {
		input.CustomerEmail = user.Email
	}

	if input.ProductID == "" || input.PaymentMethod == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("productId and paymentMethod are required"))
		return
	}

	session, apiErr, err := h.service.CreateSession(r.Context(), input)
	if err != nil {
		slog.Error("failed to create checkout session",
			slog.String("user_id", user.UserID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": session,
	})
}

// Confirm は決済を確定する。
// POST /api/checkout/confirm
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var input checkout.ConfirmInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("Invalid request body"))
		return
	}

	if input.SessionID == "" || input.PaymentIntentID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("sessionId and paymentIntentId are required"))
		return
	}

	result, apiErr, err := h.service.Confirm(r.Context(), input)
	if err != nil {
		slog.Error("failed to confirm checkout", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}
