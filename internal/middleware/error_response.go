package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/chirper/internal/model"
)

// ErrorResponseBody はJSONエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse はミドルウェア層で発生したエラーを統一フォーマットで書き込む。
// JSONを受け付けるクライアントにはJSONを、それ以外にはプレーンテキストを返す。
// 画面を伴うエラーページはハンドラー層でテンプレートから描画する。
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, appErr *model.AppError) {
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(ErrorResponseBody{
			Code:     appErr.Code,
			Message:  appErr.Message,
			Category: appErr.Category,
			Action:   appErr.Action,
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, "%s\n%s\n", appErr.Message, appErr.Action)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, http.StatusInternalServerError, model.NewInternalError())
}

func wantsJSON(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
