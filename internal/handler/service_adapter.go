package handler

import (
	"context"
	"errors"

	"github.com/hitoshi/chirper/internal/auth"
	"github.com/hitoshi/chirper/internal/chirp"
	"github.com/hitoshi/chirper/internal/model"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// OAuthEnabled はGoogleログインが利用可能かを返す。
func (a *AuthServiceAdapter) OAuthEnabled() bool {
	return a.svc.OAuthEnabled()
}

// GetLoginURL はOAuth認証URLを返す。OAuthが無効な場合はNotFoundとする。
func (a *AuthServiceAdapter) GetLoginURL(state string) (string, error) {
	url, err := a.svc.GetLoginURL(state)
	return url, toOAuthError(err)
}

// Register はフォーム入力をauth.RegisterFormに変換して登録する。
func (a *AuthServiceAdapter) Register(ctx context.Context, in registerInput) (*model.Session, error) {
	return a.svc.Register(ctx, auth.RegisterForm{
		Name:                 in.Name,
		Email:                in.Email,
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
	})
}

// Login はフォーム入力をauth.LoginFormに変換して認証する。
func (a *AuthServiceAdapter) Login(ctx context.Context, in loginInput) (*model.Session, error) {
	return a.svc.Login(ctx, auth.LoginForm{
		Email:    in.Email,
		Password: in.Password,
	})
}

// HandleCallback はOAuthコールバックを処理する。
// 利用者に起因する失敗はAppErrorに変換する。
func (a *AuthServiceAdapter) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	session, err := a.svc.HandleCallback(ctx, code)
	if err != nil {
		return nil, toOAuthError(err)
	}
	return session, nil
}

// Logout はセッションを破棄する。
func (a *AuthServiceAdapter) Logout(ctx context.Context, sessionID string) error {
	return a.svc.Logout(ctx, sessionID)
}

// toOAuthError はauthパッケージのエラーを画面表示用のAppErrorに変換する。
func toOAuthError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrOAuthDisabled):
		return model.NewNotFoundError()
	case errors.Is(err, auth.ErrEmailNotVerified):
		return model.NewOAuthFailedError("Googleアカウントのメールアドレスが確認されていません。")
	default:
		return err
	}
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*AuthServiceAdapter)(nil)
var _ ChirpServiceInterface = (*chirp.Service)(nil)
