package handler

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kota-pro/Scharade-HomePage/internal/auth"
	"github.com/kota-pro/Scharade-HomePage/internal/metrics"
	"github.com/kota-pro/Scharade-HomePage/internal/middleware"
	"github.com/kota-pro/Scharade-HomePage/internal/model"
)

const (
	// stateCookieName はCSRF対策のstate値を保持するクッキー。
	stateCookieName = "ig_state"
	// nextCookieName はログイン後の戻り先パスを保持するクッキー。
	nextCookieName = "ig_next"
	// oauthCookieMaxAge はOAuthフロー中の一時クッキーの有効期間（秒）。
	oauthCookieMaxAge = 600
)

// InstagramHandler はInstagram OAuthフローのHTTPハンドラー。
type InstagramHandler struct {
	service  AuthServiceInterface
	provider auth.InstagramProvider // 未設定の場合はnil
	config   AuthHandlerConfig
	metrics  metrics.MetricsCollector
}

// NewInstagramHandler はInstagramHandlerを生成する。providerはnilでもよい。
func NewInstagramHandler(
	service AuthServiceInterface,
	provider auth.InstagramProvider,
	config AuthHandlerConfig,
	collector metrics.MetricsCollector,
) *InstagramHandler {
	return &InstagramHandler{
		service:  service,
		provider: provider,
		config:   config,
		metrics:  collector,
	}
}

// setOAuthCookie はOAuthフロー中の一時クッキーを設定する。
func (h *InstagramHandler) setOAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   oauthCookieMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearOAuthCookie はOAuthフロー中の一時クッキーを削除する。
func (h *InstagramHandler) clearOAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Start はInstagram OAuthフローを開始する。
// GET /api/auth/instagram/start?next=/portfolio/edit
func (h *InstagramHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		middleware.WriteAPIError(w, model.NewServerMisconfiguredError())
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	next := sanitizeNextPath(r.URL.Query().Get("next"))

	h.setOAuthCookie(w, stateCookieName, state)
	h.setOAuthCookie(w, nextCookieName, next)

	http.Redirect(w, r, h.provider.BuildAuthorizeURL(state), http.StatusFound)
}

// Callback はInstagram OAuthコールバックを処理する。
// GET /api/auth/instagram/callback?code=xxx&state=yyy
func (h *InstagramHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		middleware.WriteAPIError(w, model.NewServerMisconfiguredError())
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	var expectedState, next string
	if c, err := r.Cookie(stateCookieName); err == nil {
		expectedState = c.Value
	}
	if c, err := r.Cookie(nextCookieName); err == nil {
		next = c.Value
	}
	next = sanitizeNextPath(next)

	// 結果に関係なく一時クッキーは破棄する
	h.clearOAuthCookie(w, stateCookieName)
	h.clearOAuthCookie(w, nextCookieName)

	if code == "" {
		h.metrics.RecordOAuthCallback(metrics.ResultInvalid)
		middleware.WriteAPIError(w, model.NewValidationError("Missing code."))
		return
	}
	if state == "" || expectedState == "" || state != expectedState {
		h.metrics.RecordOAuthCallback(metrics.ResultInvalid)
		middleware.WriteAPIError(w, model.NewValidationError("Invalid state."))
		return
	}

	session, ttl, err := h.service.HandleInstagramCallback(r.Context(), code)
	if err != nil {
		h.metrics.RecordOAuthCallback(authResult(err))
		middleware.WriteError(w, err)
		return
	}

	setSessionCookie(w, h.config, session.ID, ttl)
	h.metrics.RecordOAuthCallback(metrics.ResultSuccess)
	http.Redirect(w, r, next, http.StatusFound)
}

// sanitizeNextPath は戻り先パスをサイト内パスに制限する。
// オープンリダイレクト防止のため、絶対URLやスキーム相対URLは"/"に丸める。
func sanitizeNextPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
