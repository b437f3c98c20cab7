package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, data, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDataNotReady      = "DATA_NOT_READY"
	ErrCodeInvalidPostType   = "INVALID_POST_TYPE"
	ErrCodeRefreshInProgress = "REFRESH_IN_PROGRESS"
	ErrCodeRefreshTooSoon    = "REFRESH_TOO_SOON"
	ErrCodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewDataNotReadyError は初回スナップショット公開前のエラーを生成する。
func NewDataNotReadyError() *APIError {
	return &APIError{
		Code:     ErrCodeDataNotReady,
		Message:  "Service Unavailable: Data is initializing or fetch failed.",
		Category: "data",
		Action:   "Please try again shortly.",
	}
}

// NewInvalidPostTypeError は/postsのtypeパラメータが不正な場合のエラーを生成する。
func NewInvalidPostTypeError(postType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPostType,
		Message:  fmt.Sprintf("Missing or invalid 'type' query parameter: %q", postType),
		Category: "validation",
		Action:   "Use 'popular' or 'latest'.",
	}
}

// NewRefreshInProgressError はリフレッシュ実行中に再実行を要求された場合のエラーを生成する。
func NewRefreshInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeRefreshInProgress,
		Message:  "A data refresh is already running.",
		Category: "data",
		Action:   "Wait for the current refresh to finish.",
	}
}

// NewRefreshTooSoonError は前回の更新から最小間隔が経過する前に手動更新を要求された場合のエラーを生成する。
func NewRefreshTooSoonError(retryAfterSec int) *APIError {
	return &APIError{
		Code:     ErrCodeRefreshTooSoon,
		Message:  fmt.Sprintf("The data was refreshed recently. Retry in %d seconds.", retryAfterSec),
		Category: "data",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewRateLimitedError はクライアントごとのレート制限を超過した場合のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal Server Error.",
		Category: "system",
		Action:   "Please try again later.",
	}
}
