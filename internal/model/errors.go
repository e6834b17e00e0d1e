package model

import (
	"errors"
	"fmt"
)

// エラーカテゴリ。ログとメトリクスの分類に使用する。
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryConflict   = "conflict"
	CategoryUpstream   = "upstream"
	CategoryConfig     = "config"
)

// APIError はAPIレスポンスとして返すエラーを表す。
// ワイヤ上は {ok: false, message: ...} のJSONボディとStatusのHTTPステータスになる。
type APIError struct {
	Status   int
	Message  string
	Category string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%d %s] %s", e.Status, e.Category, e.Message)
}

// AsAPIError はエラーチェーンから*APIErrorを取り出す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NewValidationError は入力検証エラー（400）を生成する。
func NewValidationError(message string) *APIError {
	return &APIError{Status: 400, Message: message, Category: CategoryValidation}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// アカウント列挙を防ぐため、emailとパスワードのどちらが誤りかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{Status: 400, Message: "Invalid email or password.", Category: CategoryAuth}
}

// NewPendingApprovalError は未承認会員エラー（403）を生成する。
func NewPendingApprovalError() *APIError {
	return &APIError{Status: 403, Message: "Your account is pending approval.", Category: CategoryAuth}
}

// NewEmailConflictError は重複email登録エラー（409）を生成する。
func NewEmailConflictError() *APIError {
	return &APIError{Status: 409, Message: "Email already exists.", Category: CategoryConflict}
}

// NewAuthRequiredError は未認証エラー（401）を生成する。
// セッションが存在しない場合と無効な場合を区別しない。
func NewAuthRequiredError() *APIError {
	return &APIError{Status: 401, Message: "Authentication required.", Category: CategoryAuth}
}

// NewPortfolioNotLinkedError はポートフォリオ未連携エラー（403）を生成する。
func NewPortfolioNotLinkedError() *APIError {
	return &APIError{Status: 403, Message: "Portfolio not linked to your account.", Category: CategoryAuth}
}

// NewUpstreamError は外部API呼び出し失敗エラー（502）を生成する。
// 詳細なステータスとボディはログのみに記録し、呼び出し元には要約のみを返すこと。
func NewUpstreamError(message string) *APIError {
	return &APIError{Status: 502, Message: message, Category: CategoryUpstream}
}

// NewServerMisconfiguredError は必須設定の欠落エラー（500）を生成する。
func NewServerMisconfiguredError() *APIError {
	return &APIError{Status: 500, Message: "Server misconfigured.", Category: CategoryConfig}
}

// NewPayloadTooLargeError はアップロードサイズ超過エラー（413）を生成する。
func NewPayloadTooLargeError() *APIError {
	return &APIError{Status: 413, Message: "File too large (max 5MB).", Category: CategoryValidation}
}
