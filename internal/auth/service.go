// Package auth はパスワード認証、Google OAuth認証、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/chirper/internal/metrics"
	"github.com/hitoshi/chirper/internal/model"
	"github.com/hitoshi/chirper/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ErrOAuthDisabled はOAuthプロバイダーが設定されていないことを示す。
var ErrOAuthDisabled = errors.New("oauth provider is not configured")

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewService はServiceを生成する。
// oauthがnilの場合はOAuthログインを無効とする。collectorはnilでもよい。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
		metrics:     collector,
		now:         time.Now,
	}
}

// OAuthEnabled はOAuthログインが利用可能かを返す。
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return s.oauth.GetLoginURL(state), nil
}

// Register は新規ユーザーをパスワード付きで登録し、セッションを発行する。
// 入力不備や登録済みメールアドレスの場合は*model.ValidationErrorを返す。
func (s *Service) Register(ctx context.Context, form RegisterForm) (*model.Session, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))

	if err := validateForm(form); err != nil {
		s.recordValidationFailure(err, "register")
		return nil, err
	}

	hash, err := HashPassword(form.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        form.Email,
		Name:         form.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			verr := model.NewValidationError()
			verr.Add("email", model.NewEmailTakenError().Message)
			return nil, verr
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("provider", "password"),
	)

	return s.createSession(ctx, user.ID)
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
// 認証に失敗した場合はどちらが誤っているかを区別せず、emailフィールドのValidationErrorを返す。
func (s *Service) Login(ctx context.Context, form LoginForm) (*model.Session, error) {
	form.Email = strings.TrimSpace(form.Email)

	if err := validateForm(form); err != nil {
		s.recordValidationFailure(err, "login")
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, form.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.HasPassword() {
		s.recordLogin("password", false)
		return nil, invalidCredentials()
	}

	ok, err := ComparePassword(form.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.recordLogin("password", false)
		return nil, invalidCredentials()
	}

	s.recordLogin("password", true)
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider", "password"),
	)

	return s.createSession(ctx, user.ID)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// identityが登録済みならそのユーザーでログインする。
// 未登録で同じメールアドレスのユーザーが存在すればidentityを紐付け、
// 存在しなければusersとidentitiesを同時に作成する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if s.oauth == nil {
		return nil, ErrOAuthDisabled
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.recordLogin(oauthMethod(nil), false)
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string
	switch {
	case identity != nil:
		userID = identity.UserID
		slog.Info("user logged in",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	default:
		userID, err = s.linkOrCreateUser(ctx, userInfo)
		if err != nil {
			return nil, err
		}
	}

	s.recordLogin(oauthMethod(userInfo), true)
	return s.createSession(ctx, userID)
}

// linkOrCreateUser はOAuthユーザー情報に対応するユーザーを特定または作成し、そのIDを返す。
func (s *Service) linkOrCreateUser(ctx context.Context, userInfo *OAuthUserInfo) (string, error) {
	now := s.now()
	identity := &model.Identity{
		ID:             uuid.New().String(),
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	existing, err := s.userRepo.FindByEmail(ctx, userInfo.Email)
	if err != nil {
		return "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		identity.UserID = existing.ID
		if err := s.identRepo.Create(ctx, identity); err != nil {
			return "", fmt.Errorf("failed to link identity: %w", err)
		}
		slog.Info("identity linked to existing user",
			slog.String("user_id", existing.ID),
			slog.String("provider", userInfo.Provider),
		)
		return existing.ID, nil
	}

	name := strings.TrimSpace(userInfo.Name)
	if name == "" {
		name = strings.SplitN(userInfo.Email, "@", 2)[0]
	}
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     strings.ToLower(userInfo.Email),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity.UserID = user.ID

	if err := s.userRepo.CreateWithIdentity(ctx, user, identity); err != nil {
		return "", fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", userInfo.Provider),
	)
	return user.ID, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// ResolveSession はセッションIDに対応するユーザーを返す。
// セッションが存在しない、期限切れ、またはユーザーが削除済みの場合はnilを返す。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func invalidCredentials() *model.ValidationError {
	verr := model.NewValidationError()
	verr.Add("email", model.NewInvalidCredentialsError().Message)
	return verr
}

func oauthMethod(info *OAuthUserInfo) string {
	if info == nil || info.Provider == "" {
		return "oauth"
	}
	return info.Provider
}

func (s *Service) recordLogin(method string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordLoginAttempt(method, success)
	}
}

func (s *Service) recordValidationFailure(err error, form string) {
	var verr *model.ValidationError
	if s.metrics != nil && errors.As(err, &verr) {
		s.metrics.RecordValidationFailure(form)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
