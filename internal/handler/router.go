package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chirper/internal/metrics"
	"github.com/hitoshi/chirper/internal/middleware"
	"github.com/hitoshi/chirper/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger          *slog.Logger
	Metrics         metrics.MetricsCollector
	SessionResolver middleware.SessionResolver
	CSRFConfig      middleware.CSRFConfig
	FormMaxBytes    int64

	// 画面描画
	Renderer Renderer

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// チャープ
	ChirpService ChirpServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → BodyLimit → MethodOverride → (ルーティング) → CSRF → Session
//
// MethodOverrideはルーティングより前に適用する必要があるため、ルートのミドルウェアとして登録する。
// /chirps 配下はさらにRequireAuthで未認証リクエストを/loginへリダイレクトする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewBodyLimitMiddleware(deps.FormMaxBytes))
	r.Use(middleware.NewMethodOverrideMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Renderer)
	chirpHandler := NewChirpHandler(deps.ChirpService, deps.Renderer)
	pages := pageRenderer{renderer: deps.Renderer}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pages.renderError(w, r, http.StatusNotFound, model.NewNotFoundError())
	})

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 画面 ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, chirpsPath, http.StatusFound)
		})

		// 認証不要のルート（ログイン済みの場合は一覧へリダイレクト）
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewGuestOnlyMiddleware(chirpsPath))

			r.Get("/login", authHandler.ShowLogin)
			r.Post("/login", authHandler.Login)
			r.Get("/register", authHandler.ShowRegister)
			r.Post("/register", authHandler.Register)
			r.Get("/auth/google/login", authHandler.GoogleLogin)
			r.Get("/auth/google/callback", authHandler.GoogleCallback)
		})

		r.Post("/logout", authHandler.Logout)

		// 認証が必要なルート
		r.Route(chirpsPath, func(r chi.Router) {
			r.Use(middleware.NewRequireAuthMiddleware(loginPath))

			r.Get("/", chirpHandler.Index)
			r.Post("/", chirpHandler.Store)
			r.Get("/create", chirpHandler.Create)

			r.Route("/{"+chirpIDParam+"}", func(r chi.Router) {
				r.Get("/", chirpHandler.Show)
				r.Get("/edit", chirpHandler.Edit)
				r.Put("/", chirpHandler.Update)
				r.Patch("/", chirpHandler.Update)
				r.Delete("/", chirpHandler.Destroy)
			})
		})
	})

	return r
}
