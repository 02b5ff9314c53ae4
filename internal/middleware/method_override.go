package middleware

import (
	"net/http"
	"strings"
)

// MethodOverrideField はHTMLフォームから送信メソッドを指定する隠しフィールド名。
const MethodOverrideField = "_method"

// NewMethodOverrideMiddleware はPOSTフォームの_methodフィールドに従って
// リクエストメソッドをPUT、PATCH、DELETEに書き換えるミドルウェアを返す。
// ルーティングより前に適用する必要がある。
func NewMethodOverrideMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && isFormRequest(r) {
				switch method := strings.ToUpper(r.PostFormValue(MethodOverrideField)); method {
				case http.MethodPut, http.MethodPatch, http.MethodDelete:
					r.Method = method
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isFormRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}
