package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kota-pro/Scharade-HomePage/internal/auth"
	"github.com/kota-pro/Scharade-HomePage/internal/metrics"
	"github.com/kota-pro/Scharade-HomePage/internal/middleware"
	"github.com/kota-pro/Scharade-HomePage/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger          *slog.Logger
	SessionResolver middleware.SessionResolver
	RateLimiter     *middleware.RateLimiter

	// 認証
	AuthService       AuthServiceInterface
	AuthConfig        AuthHandlerConfig
	InstagramProvider auth.InstagramProvider // 未設定の場合はnil

	// ポートフォリオ編集
	Portfolio  PortfolioClient
	URLGuard   security.URLGuardService
	Sanitizer  security.TextSanitizerService
	GradeField string

	// お問い合わせ
	Mailer ContactSender // SMTP未設定の場合はnil

	// 運用
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer
	DB       *sql.DB

	// 未ログイン時に編集ページからリダイレクトするパス
	LoginPath string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → Session
//
// Sessionミドルウェアは認証済みならユーザーをコンテキストに注入するだけで、
// リクエストを拒否しない。拒否はルートグループ単位のポリシーミドルウェアが行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	igHandler := NewInstagramHandler(deps.AuthService, deps.InstagramProvider, deps.AuthConfig, deps.Metrics)
	portfolioHandler := NewPortfolioHandler(deps.Portfolio, deps.URLGuard, deps.Sanitizer, deps.GradeField)
	contactHandler := NewContactHandler(deps.Mailer, deps.Sanitizer)
	healthHandler := NewHealthHandler(deps.DB)
	pagesHandler := NewPagesHandler()

	// 認証エンドポイント（IP単位のレート制限つき）
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)

		// Instagram OAuthフロー
		r.Get("/instagram/start", igHandler.Start)
		r.Get("/instagram/callback", igHandler.Callback)
	})

	// ポートフォリオ編集（承認済み・連携済み会員のみ）
	r.Route("/api/portfolio", func(r chi.Router) {
		r.Use(middleware.RequirePortfolioAccess())

		r.Post("/update", portfolioHandler.Update)
		r.Post("/upload", portfolioHandler.Upload)
	})

	// お問い合わせ
	r.Post("/api/contact", contactHandler.Send)

	// 編集ページ（未ログインはログインページへリダイレクト）
	r.With(middleware.RequireLoginRedirect(deps.LoginPath)).Get("/portfolio/edit", pagesHandler.EditPage)

	// 運用エンドポイント
	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	return r
}
