// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chirper/internal/middleware"
	"github.com/hitoshi/chirper/internal/model"
	"github.com/hitoshi/chirper/internal/view"
)

// Renderer はテンプレート名を指定してHTMLを描画するインターフェース。
// view.Rendererが実装する。
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data *view.Data) error
}

// pageRenderer はハンドラー共通の画面描画処理をまとめる。
type pageRenderer struct {
	renderer Renderer
}

// data はリクエストコンテキストのユーザーとCSRFトークンを設定したテンプレートデータを返す。
func (p pageRenderer) data(r *http.Request, title string, content any) *view.Data {
	return &view.Data{
		Title:     title,
		User:      middleware.UserFromContext(r.Context()),
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Content:   content,
	}
}

// render はテンプレートを描画する。描画に失敗した場合は500を返す。
func (p pageRenderer) render(w http.ResponseWriter, r *http.Request, status int, name string, data *view.Data) {
	if err := p.renderer.Render(w, status, name, data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w, r)
	}
}

// renderError はAppErrorをエラー画面として描画する。
func (p pageRenderer) renderError(w http.ResponseWriter, r *http.Request, status int, appErr *model.AppError) {
	data := p.data(r, "エラー", view.ErrorContent{Status: status, Error: appErr})
	p.render(w, r, status, view.ErrorPage, data)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPレスポンスに変換する。
// 未認証の場合はログイン画面へリダイレクトする。
func (p pageRenderer) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		if appErr.Code == model.ErrCodeUnauthorized {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		p.renderError(w, r, mapAppErrorToHTTPStatus(appErr), appErr)
		return
	}

	// AppError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.renderError(w, r, http.StatusInternalServerError, model.NewInternalError())
}

// mapAppErrorToHTTPStatus はAppErrorコードからHTTPステータスコードにマッピングする。
func mapAppErrorToHTTPStatus(appErr *model.AppError) int {
	switch appErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeCSRF:
		return http.StatusForbidden
	case model.ErrCodeChirpNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidation, model.ErrCodeInvalidCredentials, model.ErrCodeEmailTaken:
		return http.StatusUnprocessableEntity
	case model.ErrCodeOAuthFailed:
		return http.StatusBadRequest
	case model.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// asValidationError はerrが*model.ValidationErrorであればそれを返す。
func asValidationError(err error) (*model.ValidationError, bool) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
