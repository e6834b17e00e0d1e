// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kota-pro/Scharade-HomePage/internal/auth"
	"github.com/kota-pro/Scharade-HomePage/internal/cms"
	"github.com/kota-pro/Scharade-HomePage/internal/config"
	"github.com/kota-pro/Scharade-HomePage/internal/database"
	"github.com/kota-pro/Scharade-HomePage/internal/handler"
	"github.com/kota-pro/Scharade-HomePage/internal/logger"
	"github.com/kota-pro/Scharade-HomePage/internal/mailer"
	"github.com/kota-pro/Scharade-HomePage/internal/metrics"
	"github.com/kota-pro/Scharade-HomePage/internal/middleware"
	"github.com/kota-pro/Scharade-HomePage/internal/repository"
	"github.com/kota-pro/Scharade-HomePage/internal/security"
	"github.com/kota-pro/Scharade-HomePage/internal/session"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリとセッション管理の初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	sessionManager := session.NewManager(userRepo, sessionRepo, collector)

	// 4. セキュリティサービスの初期化
	urlGuard := security.NewURLGuard()
	sanitizer := security.NewTextSanitizer()

	// 5. 外部サービスクライアントの初期化
	// 外部HTTP呼び出しはすべてSSRF防止クライアント経由で行う
	cmsClient := cms.NewClient(cms.Config{
		ServiceDomain:     cfg.MicroCMSServiceDomain,
		APIKey:            cfg.MicroCMSAPIKey,
		PortfolioEndpoint: cfg.MicroCMSPortfolioEndpoint,
	}, urlGuard.NewSafeClient(15*time.Second))

	var igProvider auth.InstagramProvider
	if cfg.InstagramConfigured() {
		igProvider = auth.NewInstagramOAuthProvider(auth.InstagramConfig{
			ClientID:     cfg.InstagramClientID,
			ClientSecret: cfg.InstagramClientSecret,
			RedirectURI:  cfg.InstagramRedirectURI,
		}, urlGuard.NewSafeClient(10*time.Second))
	} else {
		slog.Warn("instagram oauth is not configured; /api/auth/instagram/* will return 500")
	}

	var contactMailer handler.ContactSender
	if cfg.ContactConfigured() {
		contactMailer = mailer.NewMailer(mailer.Config{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.ContactFrom,
			To:       cfg.ContactTo,
		})
	} else {
		slog.Warn("contact mailer is not configured; /api/contact will return 500")
	}

	// 6. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionManager, cmsClient, igProvider, auth.ServiceConfig{
		SessionTTL:  cfg.SessionTTL,
		RememberTTL: cfg.RememberTTL,
	})

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.AuthRateLimit))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:          slog.Default(),
		SessionResolver: sessionManager,
		RateLimiter:     rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},
		InstagramProvider: igProvider,

		Portfolio:  cmsClient,
		URLGuard:   urlGuard,
		Sanitizer:  sanitizer,
		GradeField: cfg.MicroCMSGradeField,

		Mailer: contactMailer,

		Metrics:  collector,
		Gatherer: registry,
		DB:       db,

		LoginPath: cfg.LoginPath,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
