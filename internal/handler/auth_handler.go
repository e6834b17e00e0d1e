package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kota-pro/Scharade-HomePage/internal/auth"
	"github.com/kota-pro/Scharade-HomePage/internal/metrics"
	"github.com/kota-pro/Scharade-HomePage/internal/middleware"
	"github.com/kota-pro/Scharade-HomePage/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, input auth.SignupInput) error
	Login(ctx context.Context, input auth.LoginInput) (*model.Session, time.Duration, error)
	Logout(ctx context.Context, sessionID string) error
	HandleInstagramCallback(ctx context.Context, code string) (*model.Session, time.Duration, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler は会員登録・ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: collector,
	}
}

// setSessionCookie はセッションクッキーを設定する。
func setSessionCookie(w http.ResponseWriter, config AuthHandlerConfig, sessionID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションクッキーを削除する。
func clearSessionCookie(w http.ResponseWriter, config AuthHandlerConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// authResult はAPIErrorをメトリクスの結果ラベルに変換する。
func authResult(err error) string {
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		return metrics.ResultUpstreamFailure
	}
	switch apiErr.Category {
	case model.CategoryConflict:
		return metrics.ResultConflict
	case model.CategoryUpstream:
		return metrics.ResultUpstreamFailure
	case model.CategoryAuth:
		if apiErr.Status == http.StatusForbidden {
			return metrics.ResultPending
		}
		return metrics.ResultInvalid
	default:
		return metrics.ResultInvalid
	}
}

// Signup は会員を登録する。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input auth.SignupInput

	if isJSONRequest(r) {
		var body struct {
			Name            string `json:"name"`
			PortfolioName   string `json:"portfolioName"`
			Email           string `json:"email"`
			Password        string `json:"password"`
			PasswordConfirm string `json:"passwordConfirm"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			middleware.WriteAPIError(w, model.NewValidationError("Invalid payload."))
			return
		}
		input = auth.SignupInput{
			Name:            body.Name,
			PortfolioName:   body.PortfolioName,
			Email:           body.Email,
			Password:        body.Password,
			PasswordConfirm: body.PasswordConfirm,
		}
	} else {
		if err := r.ParseForm(); err != nil {
			middleware.WriteAPIError(w, model.NewValidationError("Invalid payload."))
			return
		}
		input = auth.SignupInput{
			Name:            r.PostFormValue("name"),
			PortfolioName:   r.PostFormValue("portfolioName"),
			Email:           r.PostFormValue("email"),
			Password:        r.PostFormValue("password"),
			PasswordConfirm: r.PostFormValue("passwordConfirm"),
		}
	}

	if err := h.service.Signup(r.Context(), input); err != nil {
		h.metrics.RecordSignup(authResult(err))
		middleware.WriteError(w, err)
		return
	}

	h.metrics.RecordSignup(metrics.ResultSuccess)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Account created."})
}

// Login は認証情報を検証し、セッションクッキーを発行する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input auth.LoginInput

	if isJSONRequest(r) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Remember bool   `json:"remember"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			middleware.WriteAPIError(w, model.NewValidationError("Invalid payload."))
			return
		}
		input = auth.LoginInput{Email: body.Email, Password: body.Password, Remember: body.Remember}
	} else {
		if err := r.ParseForm(); err != nil {
			middleware.WriteAPIError(w, model.NewValidationError("Invalid payload."))
			return
		}
		// フォーム送信ではチェックボックスの有無でremember判定
		_, remember := r.PostForm["remember"]
		input = auth.LoginInput{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			Remember: remember,
		}
	}

	session, ttl, err := h.service.Login(r.Context(), input)
	if err != nil {
		h.metrics.RecordLogin(authResult(err))
		middleware.WriteError(w, err)
		return
	}

	setSessionCookie(w, h.config, session.ID, ttl)
	h.metrics.RecordLogin(metrics.ResultSuccess)
	writeOK(w)
}

// Logout はセッションを破棄し、クッキーを削除する。
// セッションが存在しなくても成功する（冪等）。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			// ログアウト失敗してもクッキーはクリアする
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	clearSessionCookie(w, h.config)
	writeOK(w)
}

// Me は現在のログイン会員情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		middleware.WriteAPIError(w, model.NewAuthRequiredError())
		return
	}

	body := map[string]any{
		"id":          user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"approved":    user.Approved,
		"portfolioId": user.PortfolioID,
	}
	if user.Instagram != nil {
		body["instagram"] = map[string]any{
			"id":       user.Instagram.ID,
			"username": user.Instagram.Username,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": body})
}
