package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/haffnet/portal/internal/event"
	"github.com/haffnet/portal/internal/middleware"
	"github.com/haffnet/portal/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするカタログクライアントのインターフェース。
type EventServiceInterface interface {
	List(ctx context.Context, params event.ListParams) (*event.ListResult, error)
	Get(ctx context.Context, eventID string) (*event.Event, error)
}

// EventHandler はイベントカタログのHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// List は公開イベントの一覧を返す。
// GET /api/events?subtype=&status=&upcoming=&limit=&offset=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := event.ListParams{
		Subtype:  q.Get("subtype"),
		Status:   q.Get("status"),
		Upcoming: q.Get("upcoming") == "true",
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("limit must be a non-negative integer"))
			return
		}
		params.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("offset must be a non-negative integer"))
			return
		}
		params.Offset = n
	}

	result, err := h.service.List(r.Context(), params)
	if err != nil {
		slog.Error("failed to list events", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Get はイベントをIDで返す。存在しない場合は404。
// GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("event ID is required"))
		return
	}

	ev, err := h.service.Get(r.Context(), eventID)
	if err != nil {
		slog.Error("failed to get event",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if ev == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewEventNotFoundError(eventID))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, ev)
}
