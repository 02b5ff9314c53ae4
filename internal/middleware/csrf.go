package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chirper/internal/model"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	csrfCookieName = "csrf_token"

	// CSRFHeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFFormField はフォームの隠しフィールドからCSRFトークンを読み取る際のフィールド名。
	CSRFFormField = "_token"
)

var csrfTokenContextKey = contextKey("csrf_token")

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxAge       int // Cookieの有効期間（秒）。0の場合は24時間
}

// NewCSRFMiddleware はCSRFトークンの生成・検証ミドルウェアを返す。
// すべてのリクエストでトークンをコンテキストに格納し、テンプレートから参照できるようにする。
// 状態変更メソッド（POST, PUT, PATCH, DELETE）はCookieのトークンと、
// ヘッダーX-CSRF-Tokenまたはフォームフィールド_tokenの一致を必須とする。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	if config.MaxAge == 0 {
		config.MaxAge = 86400 // 24時間
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookieToken := ""
			if c, err := r.Cookie(csrfCookieName); err == nil {
				cookieToken = c.Value
			}

			// 安全なメソッドはトークン検証をスキップ
			if isSafeMethod(r.Method) {
				token := cookieToken
				if token == "" {
					var err error
					token, err = generateCSRFToken()
					if err != nil {
						slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
						WriteErrorResponse(w, r, http.StatusInternalServerError, model.NewInternalError())
						return
					}
					setCSRFCookie(w, token, config)
				}
				next.ServeHTTP(w, r.WithContext(ContextWithCSRFToken(r.Context(), token)))
				return
			}

			// 状態変更メソッド: CSRFトークンを検証
			if cookieToken == "" {
				rejectCSRF(w, r, "missing cookie token")
				return
			}

			requestToken := r.Header.Get(CSRFHeaderName)
			if requestToken == "" {
				requestToken = r.PostFormValue(CSRFFormField)
			}
			if requestToken == "" {
				rejectCSRF(w, r, "missing request token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(requestToken)) != 1 {
				rejectCSRF(w, r, "token mismatch")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithCSRFToken(r.Context(), cookieToken)))
		})
	}
}

// CSRFTokenFromContext はリクエストコンテキストからCSRFトークンを取得する。
// CSRFミドルウェアを通過していない場合は空文字列を返す。
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenContextKey).(string)
	return token
}

// ContextWithCSRFToken はコンテキストにCSRFトークンを注入する。
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfTokenContextKey, token)
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Warn("CSRF validation failed: "+reason,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	WriteErrorResponse(w, r, http.StatusForbidden, model.NewCSRFError())
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func setCSRFCookie(w http.ResponseWriter, token string, config CSRFConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   config.MaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateCSRFToken は暗号的に安全なCSRFトークンを生成する。
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
