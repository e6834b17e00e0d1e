package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestBuildAuthorizeURL_ContainsRequiredParams(t *testing.T) {
	p := NewInstagramOAuthProvider(InstagramConfig{
		ClientID:    "client-123",
		RedirectURI: "https://example.com/api/auth/instagram/callback",
	}, nil)

	raw := p.BuildAuthorizeURL("state-abc")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse authorize URL: %v", err)
	}

	if !strings.HasPrefix(raw, "https://api.instagram.com/oauth/authorize?") {
		t.Errorf("authorize URL = %q, want instagram authorize endpoint", raw)
	}

	q := parsed.Query()
	want := map[string]string{
		"client_id":     "client-123",
		"redirect_uri":  "https://example.com/api/auth/instagram/callback",
		"scope":         "user_profile",
		"response_type": "code",
		"state":         "state-abc",
	}
	for key, val := range want {
		if got := q.Get(key); got != val {
			t.Errorf("param %s = %q, want %q", key, got, val)
		}
	}
}

func TestExchangeCode_Success(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		io.WriteString(w, `{"access_token":"IGQVJ-token","user_id":17841400000000000}`)
	}))
	defer server.Close()

	p := NewInstagramOAuthProvider(InstagramConfig{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RedirectURI:  "https://example.com/cb",
		TokenURL:     server.URL,
	}, nil)

	token, err := p.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if token.AccessToken != "IGQVJ-token" {
		t.Errorf("access token = %q", token.AccessToken)
	}
	// 数値のuser_idが文字列として取り出せること
	if token.UserID != "17841400000000000" {
		t.Errorf("user ID = %q, want 17841400000000000", token.UserID)
	}

	if gotForm.Get("grant_type") != "authorization_code" {
		t.Errorf("grant_type = %q", gotForm.Get("grant_type"))
	}
	if gotForm.Get("code") != "auth-code" {
		t.Errorf("code = %q", gotForm.Get("code"))
	}
	if gotForm.Get("client_secret") != "secret-456" {
		t.Errorf("client_secret = %q", gotForm.Get("client_secret"))
	}
}

func TestExchangeCode_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error_message":"Invalid authorization code"}`)
	}))
	defer server.Close()

	p := NewInstagramOAuthProvider(InstagramConfig{TokenURL: server.URL}, nil)

	if _, err := p.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error for non-200 token response")
	}
}

func TestExchangeCode_IncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access_token":""}`)
	}))
	defer server.Close()

	p := NewInstagramOAuthProvider(InstagramConfig{TokenURL: server.URL}, nil)

	if _, err := p.ExchangeCode(context.Background(), "auth-code"); err == nil {
		t.Fatal("expected error for incomplete token response")
	}
}

func TestFetchUsername_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fields") != "id,username" {
			t.Errorf("fields = %q, want id,username", r.URL.Query().Get("fields"))
		}
		if r.URL.Query().Get("access_token") != "IGQVJ-token" {
			t.Errorf("access_token = %q", r.URL.Query().Get("access_token"))
		}
		io.WriteString(w, `{"id":"17841400000000000","username":"hanako_photo"}`)
	}))
	defer server.Close()

	p := NewInstagramOAuthProvider(InstagramConfig{GraphURL: server.URL}, nil)

	username, err := p.FetchUsername(context.Background(), "IGQVJ-token")
	if err != nil {
		t.Fatalf("FetchUsername() error = %v", err)
	}
	if username != "hanako_photo" {
		t.Errorf("username = %q, want hanako_photo", username)
	}
}

func TestFetchUsername_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewInstagramOAuthProvider(InstagramConfig{GraphURL: server.URL}, nil)

	if _, err := p.FetchUsername(context.Background(), "expired-token"); err == nil {
		t.Fatal("expected error for non-200 profile response")
	}
}
