// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/haffnet/portal/internal/auth"
	"github.com/haffnet/portal/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにコンタクトIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// userContextKey はリクエストコンテキストに公開プロジェクションを格納するためのキー。
var userContextKey = contextKey("user")

// SessionVerifier はセッション検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*auth.SessionStatus, error)
}

// BearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーが無い、または形式が異なる場合は空文字列を返す。
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// NewSessionMiddleware はBearerトークンのセッションを検証するミドルウェアを返す。
// 認証済みコンタクトIDと公開プロジェクションをリクエストコンテキストに注入する。
// トークン欠落・検証失敗はいずれも401 Unauthorizedを返す。
// 検証は読み取り専用であり、リクエストごとに呼んでも状態を変えない。
func NewSessionMiddleware(verifier SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			status, err := verifier.VerifySession(r.Context(), token)
			if err != nil {
				slog.Error("failed to verify session",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !status.Valid {
				// SESSION_NOT_FOUND / SESSION_EXPIRED / CONTACT_NOT_FOUND は
				// いずれも未ログイン扱い
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, status.User.UserID)
			ctx = context.WithValue(ctx, userContextKey, status.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからコンタクトIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// UserFromContext はリクエストコンテキストから公開プロジェクションを取得する。
func UserFromContext(ctx context.Context) (model.PublicUser, error) {
	user, ok := ctx.Value(userContextKey).(model.PublicUser)
	if !ok {
		return model.PublicUser{}, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストにコンタクトIDとプロジェクションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user model.PublicUser) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, user.UserID)
	return context.WithValue(ctx, userContextKey, user)
}
