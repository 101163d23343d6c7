package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haffnet/portal/internal/middleware"
)

// Pinger はヘルスチェックが必要とするDB接続確認のインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionVerifier   middleware.SessionVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPRecorder      middleware.HTTPRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthMetrics AuthRecorder

	// イベントカタログ・決済・お知らせ
	EventService    EventServiceInterface
	CheckoutService CheckoutServiceInterface
	NewsService     NewsServiceInterface

	// プロフィール
	Organizations OrganizationLookup

	// 運用
	DB             Pinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Metrics → Logging
//
// 認証エンドポイント（/auth/*）はIP単位のレート制限のみを通し、
// 決済エンドポイント（/api/checkout/*）はセッション検証とコンタクト単位の
// レート制限の内側に配置する。
func NewRouter(deps *RouterDeps, loggingMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	if loggingMiddleware != nil {
		r.Use(loggingMiddleware)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthMetrics)
	eventHandler := NewEventHandler(deps.EventService)
	checkoutHandler := NewCheckoutHandler(deps.CheckoutService)
	newsHandler := NewNewsHandler(deps.NewsService)
	profileHandler := NewProfileHandler(deps.Organizations)

	// --- 認証エンドポイント ---
	// 未認証で到達するためIP単位のレート制限をかける
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/oauth/verify", authHandler.VerifyOAuth)
		})

		// セッション検証はレンダリングごとに呼ばれるため制限の外に置く
		r.Get("/session", authHandler.Session)
		r.Post("/logout", authHandler.Logout)
	})

	// --- 公開カタログ ---
	r.Get("/api/events", eventHandler.List)
	r.Get("/api/events/{id}", eventHandler.Get)
	r.Get("/api/news", newsHandler.List)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/me", profileHandler.Me)
		r.Post("/api/checkout/sessions", checkoutHandler.CreateSession)
		r.Post("/api/checkout/confirm", checkoutHandler.Confirm)
	})

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	return r
}

// healthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
				})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
