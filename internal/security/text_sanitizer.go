package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト入力のサニタイズ機能のインターフェース。
// 自己紹介文やお問い合わせ本文など、外部システム（CMS・メール）へ渡す
// 自由入力テキストからHTMLタグを除去する。
type TextSanitizerService interface {
	// SanitizeText は入力からすべてのHTMLタグを除去し、前後の空白を落として返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(input string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText は入力からすべてのHTMLタグを除去する。
// bluemondayはタグ除去後にエンティティエスケープを残すため、
// プレーンテキストとして扱えるようアンエスケープしてから返す。
func (s *textSanitizer) SanitizeText(input string) string {
	stripped := s.policy.Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
