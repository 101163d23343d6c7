package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/haffnet/portal/internal/middleware"
	"github.com/haffnet/portal/internal/news"
)

// NewsServiceInterface はお知らせハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	Latest(ctx context.Context) ([]news.Item, error)
}

// NewsHandler はダッシュボードのお知らせのHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface) *NewsHandler {
	return &NewsHandler{service: service}
}

// List は最新のお知らせを返す。機能無効時は空のリスト。
// GET /api/news
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Latest(r.Context())
	if err != nil {
		slog.Error("failed to fetch news", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}
