// Package auth は会員登録、ログイン、Instagram OAuthの認証フローを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kota-pro/Scharade-HomePage/internal/model"
	"github.com/kota-pro/Scharade-HomePage/internal/password"
	"github.com/kota-pro/Scharade-HomePage/internal/repository"
	"github.com/kota-pro/Scharade-HomePage/internal/session"
)

// portfolioNameMaxLength はポートフォリオ名の最大文字数。
const portfolioNameMaxLength = 50

// instagramFallbackName はユーザー名が取得できなかった場合の会員名。
const instagramFallbackName = "Instagram User"

// PortfolioProvisioner は会員登録時の初期ポートフォリオ作成インターフェース。
// cms.Clientが実装する。
type PortfolioProvisioner interface {
	CreatePortfolio(ctx context.Context, name string) (string, error)
}

// ServiceConfig はServiceの設定。
type ServiceConfig struct {
	SessionTTL  time.Duration // 通常ログインのセッション有効期間
	RememberTTL time.Duration // remember me指定時のセッション有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users      repository.UserRepository
	sessions   *session.Manager
	portfolios PortfolioProvisioner
	instagram  InstagramProvider // 未設定の場合はnil
	config     ServiceConfig
}

// NewService はServiceを生成する。instagramはnilでもよい。
// configのTTLが未指定の場合はsessionパッケージの既定値を使う。
func NewService(
	users repository.UserRepository,
	sessions *session.Manager,
	portfolios PortfolioProvisioner,
	instagram InstagramProvider,
	config ServiceConfig,
) *Service {
	if config.SessionTTL <= 0 {
		config.SessionTTL = session.DefaultTTL
	}
	if config.RememberTTL <= 0 {
		config.RememberTTL = session.RememberTTL
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		portfolios: portfolios,
		instagram:  instagram,
		config:     config,
	}
}

// SignupInput は会員登録の入力。
type SignupInput struct {
	Name            string
	PortfolioName   string
	Email           string
	Password        string
	PasswordConfirm string
}

// NormalizeEmail はemailを比較・保存用に正規化する（trim + 小文字化）。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup は会員を登録し、初期ポートフォリオをプロビジョニングする。
// ポートフォリオ作成に失敗した場合、会員は作成されない（全か無か）。
// セッションは発行しない。登録後のログインは別操作。
func (s *Service) Signup(ctx context.Context, input SignupInput) error {
	name := strings.TrimSpace(input.Name)
	portfolioName := strings.TrimSpace(input.PortfolioName)
	email := NormalizeEmail(input.Email)

	if name == "" {
		return model.NewValidationError("Name is required.")
	}
	if portfolioName == "" {
		return model.NewValidationError("Portfolio name is required.")
	}
	if len([]rune(portfolioName)) > portfolioNameMaxLength {
		return model.NewValidationError("Portfolio name is too long (max 50).")
	}
	if email == "" {
		return model.NewValidationError("Email is required.")
	}
	if len(input.Password) < 8 {
		return model.NewValidationError("Password must be at least 8 characters.")
	}
	if input.Password != input.PasswordConfirm {
		return model.NewValidationError("Passwords do not match.")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if existing != nil && existing.HasCredentials() {
		return model.NewEmailConflictError()
	}

	// 外部ポートフォリオを先に作成する。失敗したら会員は作らない。
	portfolioID, err := s.portfolios.CreatePortfolio(ctx, portfolioName)
	if err != nil {
		slog.Error("portfolio provisioning failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return model.NewUpstreamError("Account was not created because portfolio provisioning failed.")
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Approved:     true,
		PortfolioID:  portfolioID,
		CreatedAt:    time.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		// 一意チェックとINSERTの間に同じemailで登録された場合
		if repository.IsUniqueViolation(err) {
			return model.NewEmailConflictError()
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("portfolio_id", portfolioID),
	)
	return nil
}

// LoginInput はログインの入力。
type LoginInput struct {
	Email    string
	Password string
	Remember bool
}

// Login は認証情報を検証してセッションを発行する。
// 戻り値のtime.Durationはセッションクッキーの有効期間。
// emailとパスワードのどちらが誤りかは応答から区別できない。
func (s *Service) Login(ctx context.Context, input LoginInput) (*model.Session, time.Duration, error) {
	email := NormalizeEmail(input.Email)

	if email == "" {
		return nil, 0, model.NewValidationError("Email is required.")
	}
	if input.Password == "" {
		return nil, 0, model.NewValidationError("Password is required.")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.HasCredentials() {
		return nil, 0, model.NewInvalidCredentialsError()
	}
	if !password.Verify(input.Password, user.PasswordHash) {
		return nil, 0, model.NewInvalidCredentialsError()
	}
	if !user.Approved {
		return nil, 0, model.NewPendingApprovalError()
	}

	ttl := s.config.SessionTTL
	if input.Remember {
		ttl = s.config.RememberTTL
	}

	sess, err := s.sessions.Create(ctx, user.ID, ttl)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return sess, ttl, nil
}

// Logout はセッションを破棄する。存在しないセッションでも成功する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

// HandleInstagramCallback はInstagram OAuthコールバックの認可コードを処理し、
// セッションを発行する。未登録の場合は会員を自動作成し、
// 登録済みの場合は連携情報（ユーザー名）を最新化する。
func (s *Service) HandleInstagramCallback(ctx context.Context, code string) (*model.Session, time.Duration, error) {
	if s.instagram == nil {
		return nil, 0, model.NewServerMisconfiguredError()
	}

	token, err := s.instagram.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("instagram token exchange failed", slog.String("error", err.Error()))
		return nil, 0, model.NewUpstreamError("Token exchange failed.")
	}

	// ユーザー名の取得はベストエフォート。失敗してもログインは続行する。
	username, err := s.instagram.FetchUsername(ctx, token.AccessToken)
	if err != nil {
		slog.Warn("failed to fetch instagram username", slog.String("error", err.Error()))
		username = ""
	}

	identity := model.InstagramIdentity{ID: token.UserID, Username: username}

	user, err := s.users.FindByInstagramID(ctx, token.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find user by instagram ID: %w", err)
	}

	if user == nil {
		name := username
		if name == "" {
			name = instagramFallbackName
		}
		user = &model.User{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     "",
			Approved:  true,
			Instagram: &identity,
			CreatedAt: time.Now(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, 0, fmt.Errorf("failed to create instagram user: %w", err)
		}
		slog.Info("new instagram user created", slog.String("user_id", user.ID))
	} else {
		if err := s.users.UpdateInstagramIdentity(ctx, user.ID, identity); err != nil {
			return nil, 0, fmt.Errorf("failed to update instagram identity: %w", err)
		}
		slog.Info("existing instagram user logged in", slog.String("user_id", user.ID))
	}

	// OAuthログインはremember無しの既定TTL
	sess, err := s.sessions.Create(ctx, user.ID, s.config.SessionTTL)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create session: %w", err)
	}

	return sess, s.config.SessionTTL, nil
}
