// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 各フローが個別にos.Getenvを呼ぶことはしない。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// Session
	SessionTTL  time.Duration // 通常ログインのセッション有効期間
	RememberTTL time.Duration // remember me指定時のセッション有効期間

	// microCMS（ポートフォリオのプロビジョニングと更新）
	MicroCMSServiceDomain     string
	MicroCMSAPIKey            string
	MicroCMSPortfolioEndpoint string
	MicroCMSGradeField        string // gradeフィールドのフィールドID

	// Instagram OAuth。未設定でも起動は可能で、
	// フロー開始時にサーバー設定エラーを返す。
	InstagramClientID     string
	InstagramClientSecret string
	InstagramRedirectURI  string

	// 認証エンドポイントのレート制限（req/min/IP）
	AuthRateLimit int

	// 未ログイン時に編集ページからリダイレクトするログインページのパス
	LoginPath string

	// お問い合わせメール。未設定の場合、contactエンドポイントは500を返す。
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	ContactFrom  string
	ContactTo    string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.MicroCMSServiceDomain = os.Getenv("MICROCMS_SERVICE_DOMAIN")
	if cfg.MicroCMSServiceDomain == "" {
		missing = append(missing, "MICROCMS_SERVICE_DOMAIN")
	}

	cfg.MicroCMSAPIKey = os.Getenv("MICROCMS_API_KEY")
	if cfg.MicroCMSAPIKey == "" {
		missing = append(missing, "MICROCMS_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 8*time.Hour)
	cfg.RememberTTL = getEnvDuration("SESSION_REMEMBER_TTL", 30*24*time.Hour)

	cfg.MicroCMSPortfolioEndpoint = getEnvString("MICROCMS_PORTFOLIO_ENDPOINT", "portfolio")
	cfg.MicroCMSGradeField = getEnvString("MICROCMS_PORTFOLIO_GRADE_FIELD", "grade")

	cfg.InstagramClientID = os.Getenv("INSTAGRAM_CLIENT_ID")
	cfg.InstagramClientSecret = os.Getenv("INSTAGRAM_CLIENT_SECRET")
	cfg.InstagramRedirectURI = os.Getenv("INSTAGRAM_REDIRECT_URI")

	cfg.AuthRateLimit = getEnvInt("AUTH_RATE_LIMIT", 10)
	cfg.LoginPath = getEnvString("LOGIN_PATH", "/login")

	cfg.SMTPAddr = os.Getenv("SMTP_ADDR")
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.ContactFrom = getEnvString("CONTACT_FROM", "")
	cfg.ContactTo = getEnvString("CONTACT_TO", "")

	return cfg, nil
}

// InstagramConfigured はInstagram OAuthの開始に必要な設定が揃っているかを返す。
// コールバック処理にはさらにClientSecretが必要。
func (c *Config) InstagramConfigured() bool {
	return c.InstagramClientID != "" && c.InstagramClientSecret != "" && c.InstagramRedirectURI != ""
}

// ContactConfigured はお問い合わせメールの送信に必要な設定が揃っているかを返す。
func (c *Config) ContactConfigured() bool {
	return c.SMTPAddr != "" && c.ContactFrom != "" && c.ContactTo != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
