// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/kota-pro/Scharade-HomePage/internal/model"
)

// SessionCookieName はセッションクッキーの名前。
const SessionCookieName = "session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userContextKey    = contextKey("user")
	sessionContextKey = contextKey("session")
)

// SessionResolver はセッションIDを会員とセッションに解決するインターフェース。
// session.Managerが実装する。無効なIDは(nil, nil, nil)に解決される。
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*model.User, *model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを解決し、
// 会員とセッションをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストも拒否せず通過させる。アクセス制御は
// RequirePortfolioAccessやRequireLoginRedirectなどの後段が行う。
func NewSessionMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, session, err := resolver.Resolve(r.Context(), cookie.Value)
			if err != nil {
				// 解決失敗は未認証として続行する。制御系の失敗で公開ページまで落とさない。
				slog.Error("failed to resolve session", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = context.WithValue(ctx, sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済み会員を取得する。
// 未認証の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// 未認証の場合はnilを返す。
func SessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// ContextWithUser はコンテキストに会員とセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User, session *model.Session) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, sessionContextKey, session)
}

// RequirePortfolioAccess はポートフォリオAPIのアクセス制御ミドルウェアを返す。
// 未認証は401、未承認は403、ポートフォリオ未連携は403を返す。
// 判定順は認証 → 承認 → 連携の順で固定。
func RequirePortfolioAccess() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				WriteAPIError(w, model.NewAuthRequiredError())
				return
			}
			if !user.Approved {
				WriteAPIError(w, model.NewPendingApprovalError())
				return
			}
			if user.PortfolioID == "" {
				WriteAPIError(w, model.NewPortfolioNotLinkedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLoginRedirect はHTMLページ向けのアクセス制御ミドルウェアを返す。
// 未認証の場合、元のパスをnextパラメータに載せてログインページへ302リダイレクトする。
func RequireLoginRedirect(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) == nil {
				target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
