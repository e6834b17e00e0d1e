package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kota-pro/Scharade-HomePage/internal/cms"
	"github.com/kota-pro/Scharade-HomePage/internal/middleware"
	"github.com/kota-pro/Scharade-HomePage/internal/model"
	"github.com/kota-pro/Scharade-HomePage/internal/security"
)

const (
	// maxHashtags は保存できるハッシュタグの上限数。超過分は黙って切り捨てる。
	maxHashtags = 30
	// maxUploadSize はアップロード画像の最大バイト数（5MB）。
	maxUploadSize = 5 * 1024 * 1024
)

// PortfolioClient はポートフォリオハンドラーが必要とするCMSクライアントのインターフェース。
type PortfolioClient interface {
	UpdatePortfolio(ctx context.Context, contentID string, fields map[string]any) error
	UploadMedia(ctx context.Context, filename, contentType string, data io.Reader) (string, error)
}

// PortfolioHandler はポートフォリオ編集のHTTPハンドラー。
// 認証・承認・連携の確認はRequirePortfolioAccessミドルウェアが済ませている前提。
type PortfolioHandler struct {
	cms        PortfolioClient
	guard      security.URLGuardService
	sanitizer  security.TextSanitizerService
	gradeField string
}

// NewPortfolioHandler はPortfolioHandlerを生成する。
func NewPortfolioHandler(
	client PortfolioClient,
	guard security.URLGuardService,
	sanitizer security.TextSanitizerService,
	gradeField string,
) *PortfolioHandler {
	return &PortfolioHandler{
		cms:        client,
		guard:      guard,
		sanitizer:  sanitizer,
		gradeField: gradeField,
	}
}

// normalizeURLInput はユーザー入力のURLを検証し、安全なURLのみ返す。
// 不正・危険なURLは空文字に丸める（エラーにはしない）。
func (h *PortfolioHandler) normalizeURLInput(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if err := h.guard.ValidateURL(trimmed); err != nil {
		slog.Warn("rejected unsafe url input", slog.String("error", err.Error()))
		return ""
	}
	return trimmed
}

// Update はポートフォリオの項目を部分更新する。
// 既知の項目のみを許可リスト方式で抽出し、未知の項目は黙って無視する。
// POST /api/portfolio/update
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		middleware.WriteAPIError(w, model.NewAuthRequiredError())
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("Invalid payload."))
		return
	}

	fields := make(map[string]any)

	// 文字列項目。自己紹介はHTMLタグを除去する。
	if v, ok := payload["name"].(string); ok {
		fields["name"] = strings.TrimSpace(v)
	}
	if v, ok := payload["self_introduction"].(string); ok {
		fields["self_introduction"] = h.sanitizer.SanitizeText(v)
	}
	if v, ok := payload["instagram"].(string); ok {
		fields["instagram"] = strings.TrimSpace(v)
	}
	if v, ok := payload["x_url"].(string); ok {
		fields["x_url"] = strings.TrimSpace(v)
	}
	if v, ok := payload["camera"].(string); ok {
		fields["camera"] = strings.TrimSpace(v)
	}

	// アイコンURL。検証を通ったもののみiconとして保存する。
	if iconURL := h.normalizeURLInput(payload["iconUrl"]); iconURL != "" {
		fields["icon"] = iconURL
	}

	if raw, ok := payload["hashtags"].([]any); ok {
		tags := make([]string, 0, len(raw))
		for _, t := range raw {
			tag := strings.TrimSpace(toString(t))
			if tag == "" {
				continue
			}
			tags = append(tags, tag)
			if len(tags) == maxHashtags {
				break
			}
		}
		fields["hashtags"] = tags
	}

	// gradeは文字列と配列の両方を受け付ける。CMS側のフィールド型が
	// 環境によって異なるため、文字列で400が返った場合は配列で再試行する。
	var gradeValue string
	switch v := payload["grade"].(type) {
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			gradeValue = trimmed
			fields[h.gradeField] = trimmed
		}
	case []any:
		arr := make([]string, 0, len(v))
		for _, x := range v {
			if s := strings.TrimSpace(toString(x)); s != "" {
				arr = append(arr, s)
			}
		}
		if len(arr) > 0 {
			fields[h.gradeField] = arr
		}
	}

	if raw, ok := payload["pictures"].([]any); ok {
		urls := make([]string, 0, len(raw))
		for _, entry := range raw {
			if u := h.normalizeURLInput(entry); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			fields["pictures"] = urls
		}
	}

	if len(fields) == 0 {
		middleware.WriteAPIError(w, model.NewValidationError("No fields provided to update."))
		return
	}

	err := h.cms.UpdatePortfolio(r.Context(), user.PortfolioID, fields)
	if err != nil && gradeValue != "" && isGradeTypeError(err) {
		// gradeフィールドが複数選択型の環境向けに配列で再試行
		slog.Warn("retrying portfolio update with grade as array", slog.String("grade", gradeValue))
		fields[h.gradeField] = []string{gradeValue}
		err = h.cms.UpdatePortfolio(r.Context(), user.PortfolioID, fields)
	}
	if err != nil {
		writeCMSError(w, err)
		return
	}

	writeOK(w)
}

// Upload は画像をCMSのメディアにアップロードし、配信URLを返す。
// POST /api/portfolio/upload
func (h *PortfolioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// multipart境界などのオーバーヘッド分だけ上限に余裕を持たせる
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			middleware.WriteAPIError(w, model.NewPayloadTooLargeError())
			return
		}
		middleware.WriteAPIError(w, model.NewValidationError("No file provided."))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		middleware.WriteAPIError(w, model.NewValidationError("Only image files are allowed."))
		return
	}
	if header.Size > maxUploadSize {
		middleware.WriteAPIError(w, model.NewPayloadTooLargeError())
		return
	}

	filename := header.Filename
	if filename == "" {
		filename = "upload.jpg"
	}

	url, err := h.cms.UploadMedia(r.Context(), filename, contentType, file)
	if err != nil {
		writeCMSError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "url": url})
}

// toString はJSONデコード結果の値を文字列化する。
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// isGradeTypeError はCMSのエラーがgradeフィールドの型不一致かどうかを判定する。
func isGradeTypeError(err error) bool {
	var statusErr *cms.APIStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(statusErr.Body, "unexpected data type")
}

// writeCMSError はCMS呼び出しの失敗をHTTPレスポンスに変換する。
// 元のステータスコードは引き継ぎ、レスポンス本文の詳細はログのみに記録する。
func writeCMSError(w http.ResponseWriter, err error) {
	var statusErr *cms.APIStatusError
	if errors.As(err, &statusErr) {
		slog.Error("microcms request failed",
			slog.Int("status", statusErr.StatusCode),
			slog.String("body", statusErr.Body),
		)
		middleware.WriteAPIError(w, &model.APIError{
			Status:   statusErr.StatusCode,
			Message:  "microCMS error.",
			Category: model.CategoryUpstream,
		})
		return
	}
	middleware.WriteError(w, model.NewUpstreamError("Failed to reach microCMS."))
}
