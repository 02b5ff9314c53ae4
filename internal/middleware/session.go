// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chirper/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// userContextKey はリクエストコンテキストにユーザーを格納するためのキー。
	userContextKey = contextKey("user")
)

// SessionResolver はセッションIDからユーザーを解決するインターフェース。
// auth.ServiceのResolveSessionを想定する。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*model.User, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効なセッションであればユーザーとユーザーIDをリクエストコンテキストに注入する。
// 未認証のリクエストもそのまま後続に渡す。認証必須のルートにはNewRequireAuthMiddlewareを併用する。
func NewSessionMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			// 2. セッションの有効性を検証
			user, err := resolver.ResolveSession(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			// 3. 認証済みユーザーをコンテキストに注入
			ctx := ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAuthMiddleware は未認証のリクエストをloginPathへ302リダイレクトするミドルウェアを返す。
func NewRequireAuthMiddleware(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := UserIDFromContext(r.Context()); err != nil {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewGuestOnlyMiddleware は認証済みのリクエストをhomePathへ302リダイレクトするミドルウェアを返す。
// ログイン画面や登録画面に使用する。
func NewGuestOnlyMiddleware(homePath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := UserIDFromContext(r.Context()); err == nil {
				http.Redirect(w, r, homePath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithUser はコンテキストにユーザーとそのIDを注入する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	setLogUserID(ctx, user.ID)
	ctx = context.WithValue(ctx, userContextKey, user)
	return ContextWithUserID(ctx, user.ID)
}
