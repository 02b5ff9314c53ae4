package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/chirper/internal/model"
)

// NewBodyLimitMiddleware はリクエストボディをmaxBytesに制限するミドルウェアを返す。
// 状態変更メソッドのフォームはここで解析し、上限を超えた場合は413を返す。
// 解析済みのフォームは後続のMethodOverrideやCSRF検証からそのまま参照される。
func NewBodyLimitMiddleware(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || maxBytes <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxBytes {
				rejectOversized(w, r, maxBytes)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			if !isSafeMethod(r.Method) && isFormRequest(r) {
				if err := parseForm(r, maxBytes); err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						rejectOversized(w, r, maxBytes)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseForm(r *http.Request, maxBytes int64) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxBytes)
	}
	return r.ParseForm()
}

func rejectOversized(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	slog.Warn("request body too large",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int64("content_length", r.ContentLength),
		slog.Int64("max_bytes", maxBytes),
	)
	WriteErrorResponse(w, r, http.StatusRequestEntityTooLarge, model.NewPayloadTooLargeError(maxBytes))
}
