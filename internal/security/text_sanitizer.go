// Package security はユーザー入力の無害化を提供する。
//
// 出品やカテゴリのテキスト項目はHTMLとして描画されうるため、
// bluemondayのStrictPolicyでタグをすべて除去してから保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト項目の無害化インターフェース。
type TextSanitizer interface {
	// SanitizeText はHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーは並行利用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグをすべて除去するTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText はタグを除去する。
// StrictPolicyがエスケープした文字実体参照は元の文字に戻す。
func (s *textSanitizer) SanitizeText(raw string) string {
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
