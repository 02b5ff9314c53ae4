package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chirper/internal/middleware"
	"github.com/hitoshi/chirper/internal/model"
	"github.com/hitoshi/chirper/internal/view"
)

const (
	loginPath        = "/login"
	oauthStateCookie = "oauth_state"
)

// registerInput は新規登録フォームの入力値。
type registerInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// loginInput はログインフォームの入力値。
type loginInput struct {
	Email    string
	Password string
}

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	OAuthEnabled() bool
	GetLoginURL(state string) (string, error)
	Register(ctx context.Context, in registerInput) (*model.Session, error)
	Login(ctx context.Context, in loginInput) (*model.Session, error)
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・新規登録・ログアウトとGoogle OAuthのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	pages   pageRenderer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, renderer Renderer) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		pages:   pageRenderer{renderer: renderer},
	}
}

// ShowLogin はログイン画面を表示する。
// GET /login
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.renderAuthForm(w, r, http.StatusOK, view.AuthLogin, "ログイン", nil, nil)
}

// Login はメールアドレスとパスワードでログインする。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	in := loginInput{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	session, err := h.service.Login(r.Context(), in)
	if err != nil {
		if verr, ok := asValidationError(err); ok {
			old := map[string]string{"email": in.Email}
			h.renderAuthForm(w, r, http.StatusUnprocessableEntity, view.AuthLogin, "ログイン", verr, old)
			return
		}
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	http.Redirect(w, r, chirpsPath, http.StatusFound)
}

// ShowRegister は新規登録画面を表示する。
// GET /register
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.renderAuthForm(w, r, http.StatusOK, view.AuthRegister, "新規登録", nil, nil)
}

// Register はユーザーを登録し、そのままログインさせる。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	in := registerInput{
		Name:                 r.PostFormValue("name"),
		Email:                r.PostFormValue("email"),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	}

	session, err := h.service.Register(r.Context(), in)
	if err != nil {
		if verr, ok := asValidationError(err); ok {
			old := map[string]string{"name": in.Name, "email": in.Email}
			h.renderAuthForm(w, r, http.StatusUnprocessableEntity, view.AuthRegister, "新規登録", verr, old)
			return
		}
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	http.Redirect(w, r, chirpsPath, http.StatusFound)
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.service.OAuthEnabled() {
		h.pages.renderError(w, r, http.StatusNotFound, model.NewNotFoundError())
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		h.pages.renderError(w, r, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	url, err := h.service.GetLoginURL(state)
	if err != nil {
		h.pages.handleServiceError(w, r, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		slog.Warn("oauth state mismatch")
		h.pages.renderError(w, r, http.StatusBadRequest, model.NewOAuthFailedError("ログイン要求の有効期限が切れたか、不正なリクエストです。"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.pages.renderError(w, r, http.StatusBadRequest, model.NewOAuthFailedError("認可コードが指定されていません。"))
		return
	}

	// 3. 認証処理
	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.pages.handleServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	http.Redirect(w, r, chirpsPath, http.StatusFound)
}

// Logout はセッションを破棄してログイン画面へリダイレクトする。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginPath, http.StatusFound)
}

func (h *AuthHandler) renderAuthForm(w http.ResponseWriter, r *http.Request, status int, name, title string, verr *model.ValidationError, old map[string]string) {
	data := h.pages.data(r, title, view.AuthForm{GoogleEnabled: h.service.OAuthEnabled()})
	data.Errors = verr
	data.Old = old
	h.pages.render(w, r, status, name, data)
}

// setSessionCookie はセッションCookie（HTTP Only）を設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
