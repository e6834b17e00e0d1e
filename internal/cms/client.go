// Package cms はmicroCMSコンテンツAPI・マネジメントAPIのクライアントを提供する。
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// APIStatusError はmicroCMSが2xx以外を返した場合のエラー。
// 呼び出し側は元のステータスコードとレスポンス本文を参照できる。
type APIStatusError struct {
	StatusCode int
	Body       string
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("microcms api returned status %d: %s", e.StatusCode, e.Body)
}

// Config はmicroCMSクライアントの設定。
type Config struct {
	// ServiceDomain はmicroCMSのサービスドメイン（https://{domain}.microcms.io）。
	ServiceDomain string
	// APIKey はコンテンツAPI・マネジメントAPI共通のAPIキー。
	APIKey string
	// PortfolioEndpoint はポートフォリオのAPIエンドポイント名。
	PortfolioEndpoint string
	// BaseURL はコンテンツAPIのベースURL。空の場合はServiceDomainから導出する。
	// テストでのエンドポイント差し替えに使用する。
	BaseURL string
	// ManagementBaseURL はマネジメントAPIのベースURL。空の場合はServiceDomainから導出する。
	ManagementBaseURL string
}

// Client はmicroCMSへのアクセスを提供する。
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient はmicroCMSクライアントを生成する。
// httpClientにはSSRF防止機能付きのクライアントを渡すこと。
func NewClient(config Config, httpClient *http.Client) *Client {
	if config.BaseURL == "" {
		config.BaseURL = fmt.Sprintf("https://%s.microcms.io/api/v1", config.ServiceDomain)
	}
	if config.ManagementBaseURL == "" {
		config.ManagementBaseURL = fmt.Sprintf("https://%s.microcms-management.io/api/v1", config.ServiceDomain)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{config: config, httpClient: httpClient}
}

// CreatePortfolio は会員登録時の初期ポートフォリオコンテンツを作成し、
// 発行されたコンテンツIDを返す。
func (c *Client) CreatePortfolio(ctx context.Context, name string) (string, error) {
	payload := map[string]any{
		"name":              name,
		"hashtags":          []string{},
		"pictures":          []string{},
		"self_introduction": "",
		"instagram":         "",
		"x_url":             "",
		"camera":            "",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal portfolio payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s", c.config.BaseURL, c.config.PortfolioEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call microcms: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read microcms response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("failed to decode microcms response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("microcms response missing content id")
	}

	return created.ID, nil
}

// UpdatePortfolio は指定コンテンツの項目を部分更新する。
// fieldsには更新対象の項目のみを含めること。
func (c *Client) UpdatePortfolio(ctx context.Context, contentID string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal update payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.config.BaseURL, c.config.PortfolioEndpoint, contentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call microcms: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read microcms response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return nil
}

// UploadMedia は画像ファイルをマネジメントAPIのメディアにアップロードし、
// 配信URLを返す。
func (c *Client) UploadMedia(ctx context.Context, filename, contentType string, data io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := createFilePart(writer, filename, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/media", c.config.ManagementBaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-MICROCMS-API-KEY", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call microcms management api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read microcms response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var uploaded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if uploaded.URL == "" {
		return "", fmt.Errorf("microcms upload response missing url")
	}

	return uploaded.URL, nil
}

// createFilePart はContent-Typeヘッダー付きのファイルパートを作成する。
// multipart.Writer.CreateFormFileはapplication/octet-stream固定のため使えない。
func createFilePart(writer *multipart.Writer, filename, contentType string) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}
