// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は上流が返した2xx以外のレスポンスボディを
// ログとエラーメッセージ向けの1行のプレーンテキストに正規化する。
// プロキシやロードバランサのHTMLエラーページをbluemondayのStrictPolicyで
// タグごと除去する。投稿本文やユーザー名には適用しない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はエラーレスポンスボディのサニタイズのインターフェースを定義する。
// 上流クライアントがStatusErrorを組み立てる際に使用する。
type ContentSanitizerService interface {
	// Sanitize は全てのHTMLタグを除去し、連続する空白を1つにまとめたテキストを返す。
	// script, styleなどの要素は中身ごと除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はレスポンスボディをプレーンテキストに正規化する。
// bluemondayはテキストをHTMLエスケープして返すため、ログに出す前にエンティティを戻す。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}
