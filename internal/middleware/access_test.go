package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kota-pro/Scharade-HomePage/internal/model"
)

// mockResolver はSessionResolverのモック。
type mockResolver struct {
	resolveFn func(ctx context.Context, sessionID string) (*model.User, *model.Session, error)
}

func (m *mockResolver) Resolve(ctx context.Context, sessionID string) (*model.User, *model.Session, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, sessionID)
	}
	return nil, nil, nil
}

var _ SessionResolver = (*mockResolver)(nil)

func approvedUser() *model.User {
	return &model.User{ID: "u1", Name: "Hanako", Approved: true, PortfolioID: "p1"}
}

func validSession() *model.Session {
	return &model.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
}

// captureHandler はコンテキストの内容を記録する終端ハンドラー。
func captureHandler(user **model.User, session **model.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*user = UserFromContext(r.Context())
		*session = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionMiddleware_NoCookie_PassesThroughUnauthenticated(t *testing.T) {
	var gotUser *model.User
	var gotSession *model.Session
	handler := NewSessionMiddleware(&mockResolver{})(captureHandler(&gotUser, &gotSession))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (no rejection)", w.Code)
	}
	if gotUser != nil || gotSession != nil {
		t.Error("context should be empty without a cookie")
	}
}

func TestSessionMiddleware_ValidCookie_InjectsUserAndSession(t *testing.T) {
	user := approvedUser()
	session := validSession()
	resolver := &mockResolver{
		resolveFn: func(_ context.Context, sessionID string) (*model.User, *model.Session, error) {
			if sessionID != "s1" {
				t.Errorf("resolved session ID = %q, want s1", sessionID)
			}
			return user, session, nil
		},
	}

	var gotUser *model.User
	var gotSession *model.Session
	handler := NewSessionMiddleware(resolver)(captureHandler(&gotUser, &gotSession))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "s1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if gotUser == nil || gotUser.ID != "u1" {
		t.Errorf("context user = %+v, want u1", gotUser)
	}
	if gotSession == nil || gotSession.ID != "s1" {
		t.Errorf("context session = %+v, want s1", gotSession)
	}
}

func TestSessionMiddleware_InvalidCookie_PassesThroughUnauthenticated(t *testing.T) {
	var gotUser *model.User
	var gotSession *model.Session
	handler := NewSessionMiddleware(&mockResolver{})(captureHandler(&gotUser, &gotSession))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-or-forged"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if gotUser != nil {
		t.Error("invalid session must not authenticate")
	}
}

func TestSessionMiddleware_ResolverError_ContinuesUnauthenticated(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(_ context.Context, _ string) (*model.User, *model.Session, error) {
			return nil, nil, errors.New("db down")
		},
	}

	var gotUser *model.User
	var gotSession *model.Session
	handler := NewSessionMiddleware(resolver)(captureHandler(&gotUser, &gotSession))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "s1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (resolver failure must not break public pages)", w.Code)
	}
	if gotUser != nil {
		t.Error("resolver failure should resolve to unauthenticated")
	}
}

func TestRequirePortfolioAccess_Ordering(t *testing.T) {
	cases := []struct {
		name        string
		user        *model.User
		wantStatus  int
		wantMessage string
	}{
		{"unauthenticated", nil, 401, "Authentication required."},
		{"unapproved", &model.User{ID: "u1", Approved: false, PortfolioID: "p1"}, 403, "Your account is pending approval."},
		{"no portfolio", &model.User{ID: "u1", Approved: true}, 403, "Portfolio not linked to your account."},
		{"ok", approvedUser(), 200, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequirePortfolioAccess()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPatch, "/api/portfolio", nil)
			if tc.user != nil {
				req = req.WithContext(ContextWithUser(req.Context(), tc.user, validSession()))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantMessage != "" {
				body := w.Body.String()
				if !strings.Contains(body, tc.wantMessage) || !strings.Contains(body, `"ok":false`) {
					t.Errorf("body = %q, want message %q", body, tc.wantMessage)
				}
			}
		})
	}
}

func TestRequireLoginRedirect(t *testing.T) {
	handler := RequireLoginRedirect("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 未認証は302でログインページへ
	req := httptest.NewRequest(http.MethodGet, "/portfolio/edit?tab=photos", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	location := w.Header().Get("Location")
	if location != "/login?next=%2Fportfolio%2Fedit%3Ftab%3Dphotos" {
		t.Errorf("Location = %q", location)
	}

	// 認証済みは通過
	req = httptest.NewRequest(http.MethodGet, "/portfolio/edit", nil)
	req = req.WithContext(ContextWithUser(req.Context(), approvedUser(), validSession()))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
