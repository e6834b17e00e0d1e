package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultInstagramAuthorizeURL = "https://api.instagram.com/oauth/authorize"
	defaultInstagramTokenURL     = "https://api.instagram.com/oauth/access_token"
	defaultInstagramGraphURL     = "https://graph.instagram.com"
)

// InstagramToken はInstagramトークンエンドポイントのレスポンス。
type InstagramToken struct {
	AccessToken string
	UserID      string
}

// InstagramProvider はInstagram OAuthプロバイダーのインターフェース。
type InstagramProvider interface {
	// BuildAuthorizeURL はInstagramの認可URLを生成する。
	BuildAuthorizeURL(state string) string
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*InstagramToken, error)
	// FetchUsername はアクセストークンでユーザー名を取得する。
	// 取得失敗は呼び出し側でベストエフォートとして扱う。
	FetchUsername(ctx context.Context, accessToken string) (string, error)
}

// InstagramConfig はInstagram OAuthプロバイダーの設定。
type InstagramConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// テスト用にオーバーライド可能なURL
	AuthorizeURL string
	TokenURL     string
	GraphURL     string
}

// InstagramOAuthProvider はInstagram Basic Display APIによる認証を提供する。
type InstagramOAuthProvider struct {
	config     InstagramConfig
	httpClient *http.Client
}

// NewInstagramOAuthProvider はInstagramOAuthProviderを生成する。
// httpClientにはSSRF防止機能付きのクライアントを渡すこと。nilの場合はDefaultClientを使う。
func NewInstagramOAuthProvider(config InstagramConfig, httpClient *http.Client) *InstagramOAuthProvider {
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = defaultInstagramAuthorizeURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultInstagramTokenURL
	}
	if config.GraphURL == "" {
		config.GraphURL = defaultInstagramGraphURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &InstagramOAuthProvider{config: config, httpClient: httpClient}
}

// BuildAuthorizeURL はInstagramの認可URLを生成する。
func (p *InstagramOAuthProvider) BuildAuthorizeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURI},
		"scope":         {"user_profile"},
		"response_type": {"code"},
		"state":         {state},
	}
	return p.config.AuthorizeURL + "?" + params.Encode()
}

// instagramTokenResponse はInstagramのトークンエンドポイントのレスポンス。
// user_idは数値で返るためjson.Numberで受ける。
type instagramTokenResponse struct {
	AccessToken string      `json:"access_token"`
	UserID      json.Number `json:"user_id"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (p *InstagramOAuthProvider) ExchangeCode(ctx context.Context, code string) (*InstagramToken, error) {
	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {p.config.RedirectURI},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp instagramTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" || tokenResp.UserID.String() == "" {
		return nil, fmt.Errorf("incomplete token response")
	}

	return &InstagramToken{
		AccessToken: tokenResp.AccessToken,
		UserID:      tokenResp.UserID.String(),
	}, nil
}

// instagramProfile はグラフAPIの/meエンドポイントのレスポンス。
type instagramProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// FetchUsername はアクセストークンでユーザー名を取得する。
func (p *InstagramOAuthProvider) FetchUsername(ctx context.Context, accessToken string) (string, error) {
	meURL := fmt.Sprintf("%s/me?fields=id,username&access_token=%s", p.config.GraphURL, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create profile request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("profile fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var profile instagramProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}

	return profile.Username, nil
}

// compile-time interface check
var _ InstagramProvider = (*InstagramOAuthProvider)(nil)
